package services

import (
	"context"
	"errors"
	"fmt"

	"recurring/internal/amqp"
	"recurring/internal/core"
)

// OccurrenceStore is the persistence contract for materialized occurrences.
// Implementations must enforce uniqueness of (TemplateID, Date) including
// soft-deleted rows.
type OccurrenceStore interface {
	// LatestOccurrenceDate returns the most recent non-deleted occurrence
	// date for the template. found is false when there is none.
	LatestOccurrenceDate(ctx context.Context, templateID string) (date core.Date, found bool, err error)
	// OccurrenceExists reports whether a row, deleted or not, holds the slot.
	OccurrenceExists(ctx context.Context, templateID string, date core.Date) (bool, error)
	// InsertOccurrences writes the batch atomically, silently skipping rows
	// whose slot is already taken, and returns the rows actually inserted.
	InsertOccurrences(ctx context.Context, batch []core.Occurrence) ([]core.Occurrence, error)
	// UpdateFutureUnmodified rewrites the fields of live, unmodified rows dated
	// on or after from. An empty AccountID leaves the stored account alone.
	UpdateFutureUnmodified(ctx context.Context, templateID string, from core.Date, fields core.FieldValues) (int, error)
	SoftDeleteFrom(ctx context.Context, templateID string, from core.Date) (int, error)

	GetOccurrence(ctx context.Context, id string) (core.Occurrence, error)
	// UpdateOccurrence rewrites one row and marks it modified.
	UpdateOccurrence(ctx context.Context, id string, fields core.FieldValues) error
	SoftDeleteOccurrence(ctx context.Context, id string) error
	ListOccurrences(ctx context.Context, userID string, from, to core.Date) ([]core.Occurrence, error)
}

// TemplateStore persists recurring templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t core.Template) error
	GetTemplate(ctx context.Context, id string) (core.Template, error)
	ListActiveTemplates(ctx context.Context, userID string) ([]core.Template, error)
	ListActiveUsers(ctx context.Context) ([]string, error)
	UpdateTemplateFields(ctx context.Context, id string, fields core.FieldValues) error
	SetTemplateActive(ctx context.Context, id string, active bool) error
	UpdateTemplateSchedule(ctx context.Context, id string, rule core.Rule, start, end core.Date) error
}

// Store is satisfied by backends that hold both templates and occurrences.
type Store interface {
	OccurrenceStore
	TemplateStore
}

// Publisher announces newly generated occurrences.
type Publisher interface {
	PublishOccurrencesGenerated(ctx context.Context, msg *amqp.OccurrencesGeneratedMessage) error
}

// storeErr wraps a backend failure so callers can match ErrStoreUnavailable.
// Not-found sentinels pass through untouched.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrTemplateNotFound) || errors.Is(err, core.ErrOccurrenceNotFound) ||
		errors.Is(err, core.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", core.ErrStoreUnavailable, op, err)
}
