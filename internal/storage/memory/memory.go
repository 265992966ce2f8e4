// Package memory is an in-process store for templates and occurrences with
// the same uniqueness and tombstone rules as the SQLite repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"recurring/internal/core"
)

type slot struct {
	templateID string
	date       string
}

type Store struct {
	mu          sync.Mutex
	templates   map[string]core.Template
	occurrences map[string]core.Occurrence
	slots       map[slot]string
	now         func() time.Time
}

func New() *Store {
	return &Store{
		templates:   make(map[string]core.Template),
		occurrences: make(map[string]core.Occurrence),
		slots:       make(map[slot]string),
		now:         time.Now,
	}
}

func (s *Store) CreateTemplate(_ context.Context, t core.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[t.ID]; ok {
		return fmt.Errorf("template %s already exists", t.ID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	s.templates[t.ID] = t
	return nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return core.Template{}, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return t, nil
}

func (s *Store) ListActiveTemplates(_ context.Context, userID string) ([]core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Template
	for _, t := range s.templates {
		if t.Active && t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListActiveUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var users []string
	for _, t := range s.templates {
		if t.Active && !seen[t.UserID] {
			seen[t.UserID] = true
			users = append(users, t.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}

// UpdateTemplateFields keeps the stored account when f.AccountID is empty.
func (s *Store) UpdateTemplateFields(_ context.Context, id string, f core.FieldValues) error {
	return s.updateTemplate(id, func(t *core.Template) {
		if f.AccountID == "" {
			f.AccountID = t.AccountID
		}
		t.FieldValues = f
	})
}

func (s *Store) SetTemplateActive(_ context.Context, id string, active bool) error {
	return s.updateTemplate(id, func(t *core.Template) { t.Active = active })
}

func (s *Store) UpdateTemplateSchedule(_ context.Context, id string, rule core.Rule, start, end core.Date) error {
	return s.updateTemplate(id, func(t *core.Template) {
		t.Rule, t.StartDate, t.EndDate = rule, start, end
	})
}

func (s *Store) updateTemplate(id string, apply func(*core.Template)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	apply(&t)
	t.UpdatedAt = s.now()
	s.templates[id] = t
	return nil
}

func (s *Store) LatestOccurrenceDate(_ context.Context, templateID string) (core.Date, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		latest core.Date
		found  bool
	)
	for _, o := range s.occurrences {
		if o.TemplateID != templateID || o.IsDeleted() {
			continue
		}
		if !found || o.Date.After(latest) {
			latest, found = o.Date, true
		}
	}
	return latest, found, nil
}

func (s *Store) OccurrenceExists(_ context.Context, templateID string, date core.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[slot{templateID, date.String()}]
	return ok, nil
}

// InsertOccurrences applies the batch atomically: a duplicate ID fails the
// whole batch, a taken slot only skips that row.
func (s *Store) InsertOccurrences(_ context.Context, batch []core.Occurrence) ([]core.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[slot]bool, len(batch))
	ids := make(map[string]bool, len(batch))
	var inserted []core.Occurrence
	for _, o := range batch {
		if _, dup := s.occurrences[o.ID]; dup || ids[o.ID] {
			return nil, fmt.Errorf("occurrence %s already exists", o.ID)
		}
		ids[o.ID] = true
		if o.TemplateID != "" {
			k := slot{o.TemplateID, o.Date.String()}
			if _, taken := s.slots[k]; taken || pending[k] {
				continue
			}
			pending[k] = true
		}
		inserted = append(inserted, o)
	}

	now := s.now()
	for i, o := range inserted {
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		if o.UpdatedAt.IsZero() {
			o.UpdatedAt = o.CreatedAt
		}
		inserted[i] = o
		s.occurrences[o.ID] = o
		if o.TemplateID != "" {
			s.slots[slot{o.TemplateID, o.Date.String()}] = o.ID
		}
	}
	return inserted, nil
}

func (s *Store) UpdateFutureUnmodified(_ context.Context, templateID string, from core.Date, f core.FieldValues) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for id, o := range s.occurrences {
		if o.TemplateID != templateID || o.Modified || o.IsDeleted() || o.Date.Before(from) {
			continue
		}
		account := o.AccountID
		o.FieldValues = f
		if f.AccountID == "" {
			o.AccountID = account
		}
		o.UpdatedAt = now
		s.occurrences[id] = o
		n++
	}
	return n, nil
}

func (s *Store) SoftDeleteFrom(_ context.Context, templateID string, from core.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for id, o := range s.occurrences {
		if o.TemplateID != templateID || o.IsDeleted() || o.Date.Before(from) {
			continue
		}
		deleted := now
		o.DeletedAt = &deleted
		o.UpdatedAt = now
		s.occurrences[id] = o
		n++
	}
	return n, nil
}

func (s *Store) GetOccurrence(_ context.Context, id string) (core.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.occurrences[id]
	if !ok {
		return core.Occurrence{}, fmt.Errorf("%w: %s", core.ErrOccurrenceNotFound, id)
	}
	return o, nil
}

func (s *Store) UpdateOccurrence(_ context.Context, id string, f core.FieldValues) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.occurrences[id]
	if !ok || o.IsDeleted() {
		return fmt.Errorf("%w: %s", core.ErrOccurrenceNotFound, id)
	}
	o.FieldValues = f
	o.Modified = true
	o.UpdatedAt = s.now()
	s.occurrences[id] = o
	return nil
}

func (s *Store) SoftDeleteOccurrence(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.occurrences[id]
	if !ok || o.IsDeleted() {
		return fmt.Errorf("%w: %s", core.ErrOccurrenceNotFound, id)
	}
	now := s.now()
	o.DeletedAt = &now
	o.UpdatedAt = now
	s.occurrences[id] = o
	return nil
}

// ListOccurrences returns live rows for the user between from and to
// inclusive, ordered by date. Zero bounds are open.
func (s *Store) ListOccurrences(_ context.Context, userID string, from, to core.Date) ([]core.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Occurrence
	for _, o := range s.occurrences {
		if o.UserID != userID || o.IsDeleted() {
			continue
		}
		if !from.IsEmpty() && o.Date.Before(from) {
			continue
		}
		if !to.IsEmpty() && o.Date.After(to) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Count returns the number of stored occurrences, tombstones included.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.occurrences)
}
