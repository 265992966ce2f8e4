package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

type (
	Direction string

	// FieldValues are the template-owned fields copied onto every generated
	// occurrence and rewritten by template edits.
	FieldValues struct {
		Name       string
		Amount     Money
		Direction  Direction
		CategoryID string // optional
		AccountID  string // optional
		Note       string
	}

	// Template is the canonical description of a recurring obligation. ID is
	// shared by every occurrence it generates.
	Template struct {
		ID     string
		UserID string
		FieldValues
		StartDate Date
		EndDate   Date // zero means open-ended
		Rule      Rule
		Active    bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Occurrence is a materialized transaction row. Modified marks a row the
	// user edited by hand; template edits no longer touch it.
	Occurrence struct {
		ID         string
		TemplateID string // empty for one-off transactions
		UserID     string
		FieldValues
		Date      Date
		Modified  bool
		DeletedAt *time.Time
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Scope carries the caller identity into a materialization pass instead
	// of process-wide defaults.
	Scope struct {
		UserID           string
		DefaultAccountID string
	}
)

// ParseDirection accepts "income" or "expense", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

func (d Direction) Validate() error {
	switch d {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidDirection
	}
}

func (f FieldValues) Validate() error {
	if len(strings.TrimSpace(f.Name)) == 0 {
		return ErrEmptyName
	}
	if len(f.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := f.Amount.Validate(); err != nil {
		return err
	}
	return f.Direction.Validate()
}

// HasEndDate reports whether the template is bounded.
func (t Template) HasEndDate() bool {
	return !t.EndDate.IsEmpty()
}

// Fields returns a copy of the template-owned fields.
func (t Template) Fields() FieldValues {
	return t.FieldValues
}

// ValidateSchedule checks the rule and the start/end dates.
func (t Template) ValidateSchedule() error {
	if err := t.Rule.Validate(); err != nil {
		return err
	}
	if err := t.StartDate.Validate(); err != nil {
		return errors.Join(errors.New("invalid start date"), err)
	}
	if t.HasEndDate() && t.EndDate.Before(t.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if err := t.FieldValues.Validate(); err != nil {
		return err
	}
	return t.ValidateSchedule()
}

// IsDeleted reports whether the occurrence has been soft-deleted.
func (o Occurrence) IsDeleted() bool {
	return o.DeletedAt != nil
}

func (s Scope) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUser
	}
	return nil
}
