package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recurring/internal/core"
	"recurring/internal/log"
)

// DefaultMaxStepsPerPass bounds the number of new occurrences one pass queues.
const DefaultMaxStepsPerPass = 10000

// Status describes the outcome of a materialization pass.
type Status string

const (
	StatusInactive  Status = "inactive"
	StatusUpToDate  Status = "up_to_date"
	StatusGenerated Status = "generated"
	// StatusPartial means the pass stopped at the step limit after inserting
	// a prefix of the missing dates; the next pass resumes from there.
	StatusPartial Status = "partial"
)

// Result reports what a single pass did for one template.
type Result struct {
	TemplateID string
	Horizon    core.Date
	Status     Status
	Candidates int // dates walked, including skipped ones
	Skipped    int // dates already holding a row or tombstone
	Inserted   []core.Occurrence
}

// InsertedCount returns the number of rows written by the pass.
func (r Result) InsertedCount() int {
	return len(r.Inserted)
}

// Materializer turns a template into concrete occurrence rows up to a horizon.
// It holds no per-template state; callers serialise passes for the same
// template when they need to.
type Materializer struct {
	store    OccurrenceStore
	policy   core.ClampPolicy
	maxSteps int
	now      func() time.Time
	newID    func() string
	logger   *log.Logger
}

// MaterializerOption configures a Materializer.
type MaterializerOption func(*Materializer)

// WithClampPolicy selects how month-end dates are carried between steps.
func WithClampPolicy(p core.ClampPolicy) MaterializerOption {
	return func(m *Materializer) { m.policy = p }
}

// WithMaxSteps overrides DefaultMaxStepsPerPass. Non-positive values are ignored.
func WithMaxSteps(n int) MaterializerOption {
	return func(m *Materializer) {
		if n > 0 {
			m.maxSteps = n
		}
	}
}

func WithClock(now func() time.Time) MaterializerOption {
	return func(m *Materializer) { m.now = now }
}

func WithIDGenerator(newID func() string) MaterializerOption {
	return func(m *Materializer) { m.newID = newID }
}

func WithLogger(l *log.Logger) MaterializerOption {
	return func(m *Materializer) { m.logger = l }
}

// NewMaterializer creates a materializer over store.
func NewMaterializer(store OccurrenceStore, opts ...MaterializerOption) *Materializer {
	m := &Materializer{
		store:    store,
		policy:   core.AnchorToStartDay,
		maxSteps: DefaultMaxStepsPerPass,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   log.Default(log.ComponentMaterializer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the configured clamp policy.
func (m *Materializer) Policy() core.ClampPolicy {
	return m.policy
}

// Materialize ensures every occurrence of tmpl dated on or before horizon
// exists. Calling it again with the same or an earlier horizon inserts
// nothing. A store failure aborts the pass before anything is written.
// When more than maxSteps dates are missing, the earliest maxSteps are
// inserted and ErrStepLimitExceeded is returned with the partial result.
func (m *Materializer) Materialize(ctx context.Context, tmpl core.Template, horizon core.Date, scope core.Scope) (Result, error) {
	res := Result{TemplateID: tmpl.ID, Horizon: horizon}

	if err := tmpl.Rule.Validate(); err != nil {
		return res, err
	}
	if tmpl.ID == "" {
		return res, core.ErrMissingTemplateID
	}
	if err := scope.Validate(); err != nil {
		return res, err
	}
	if tmpl.UserID != "" && tmpl.UserID != scope.UserID {
		return res, core.ErrScopeMismatch
	}
	if err := horizon.Validate(); err != nil {
		return res, err
	}

	logger := log.FromContext(ctx, m.logger).With(
		log.FieldTemplateID, tmpl.ID,
		log.FieldUserID, scope.UserID,
		log.FieldHorizon, horizon.String(),
	)

	if !tmpl.Active {
		res.Status = StatusInactive
		logger.DebugContext(ctx, "Template inactive, nothing to materialize")
		return res, nil
	}

	candidate, err := m.firstCandidate(ctx, tmpl)
	if err != nil {
		return res, err
	}

	var (
		queue   []core.Occurrence
		limited bool
	)
	for !candidate.After(horizon) {
		if tmpl.HasEndDate() && candidate.After(tmpl.EndDate) {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if len(queue) == m.maxSteps {
			limited = true
			break
		}
		res.Candidates++

		exists, err := m.store.OccurrenceExists(ctx, tmpl.ID, candidate)
		if err != nil {
			return res, storeErr("occurrence exists", err)
		}
		if exists {
			res.Skipped++
			logger.DebugContext(ctx, "Occurrence already present", log.FieldDate, candidate.String())
		} else {
			queue = append(queue, m.build(tmpl, candidate, scope))
		}

		candidate = m.policy.Step(tmpl.Rule, candidate, tmpl.StartDate)
	}

	if len(queue) == 0 {
		res.Status = StatusUpToDate
		return res, nil
	}

	inserted, err := m.store.InsertOccurrences(ctx, queue)
	if err != nil {
		return res, storeErr("insert occurrences", err)
	}
	res.Inserted = inserted
	res.Skipped += len(queue) - len(inserted)
	if len(inserted) > 0 {
		res.Status = StatusGenerated
	} else {
		res.Status = StatusUpToDate
	}

	logger.InfoContext(ctx, "Materialized occurrences",
		log.FieldCandidates, res.Candidates,
		log.FieldInserted, len(inserted),
		log.FieldSkipped, res.Skipped)

	if limited {
		res.Status = StatusPartial
		logger.WarnContext(ctx, "Step limit reached, remaining dates left for the next pass",
			log.FieldDate, candidate.String())
		return res, fmt.Errorf("%w: template %s stopped at %s after %d new dates",
			core.ErrStepLimitExceeded, tmpl.ID, candidate, m.maxSteps)
	}
	return res, nil
}

// firstCandidate resumes after the cursor, or starts at the template start
// date when there is no cursor or the cursor precedes it.
func (m *Materializer) firstCandidate(ctx context.Context, tmpl core.Template) (core.Date, error) {
	cursor, found, err := m.store.LatestOccurrenceDate(ctx, tmpl.ID)
	if err != nil {
		return core.Date{}, storeErr("latest occurrence date", err)
	}
	if !found {
		return tmpl.StartDate, nil
	}
	next := m.policy.Step(tmpl.Rule, cursor, tmpl.StartDate)
	if next.Before(tmpl.StartDate) {
		return tmpl.StartDate, nil
	}
	return next, nil
}

func (m *Materializer) build(tmpl core.Template, date core.Date, scope core.Scope) core.Occurrence {
	fields := tmpl.Fields()
	if fields.AccountID == "" {
		fields.AccountID = scope.DefaultAccountID
	}
	now := m.now().UTC()
	return core.Occurrence{
		ID:          m.newID(),
		TemplateID:  tmpl.ID,
		UserID:      scope.UserID,
		FieldValues: fields,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
