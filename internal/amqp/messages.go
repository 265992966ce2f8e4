package amqp

import (
	"encoding/json"
	"time"
)

// OccurrencesGeneratedMessage announces the rows inserted by one
// materialization pass. OccurrenceIDs and Dates are parallel slices.
type OccurrencesGeneratedMessage struct {
	TemplateID    string    `json:"template_id"`
	UserID        string    `json:"user_id"`
	Horizon       string    `json:"horizon"`
	OccurrenceIDs []string  `json:"occurrence_ids"`
	Dates         []string  `json:"dates"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewOccurrencesGeneratedMessage creates an empty message for a pass.
func NewOccurrencesGeneratedMessage(templateID, userID, horizon string) *OccurrencesGeneratedMessage {
	return &OccurrencesGeneratedMessage{
		TemplateID:    templateID,
		UserID:        userID,
		Horizon:       horizon,
		OccurrenceIDs: []string{},
		Dates:         []string{},
		Timestamp:     time.Now(),
	}
}

// Add appends one generated occurrence.
func (m *OccurrencesGeneratedMessage) Add(id, date string) {
	m.OccurrenceIDs = append(m.OccurrenceIDs, id)
	m.Dates = append(m.Dates, date)
}

// Len returns the number of occurrences carried.
func (m *OccurrencesGeneratedMessage) Len() int {
	return len(m.OccurrenceIDs)
}

// ToJSON converts the message to JSON bytes
func (m *OccurrencesGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OccurrencesGeneratedMessageFromJSON creates a message from JSON bytes
func OccurrencesGeneratedMessageFromJSON(data []byte) (*OccurrencesGeneratedMessage, error) {
	var msg OccurrencesGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
