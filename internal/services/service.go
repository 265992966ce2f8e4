package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recurring/internal/amqp"
	"recurring/internal/core"
	"recurring/internal/log"
)

// RecurringService is the entry point for hosts: it owns template lifecycle,
// materialization, edit propagation and deletion, and serialises every
// mutation of one template behind a per-template lock.
type RecurringService struct {
	templates    TemplateStore
	occurrences  OccurrenceStore
	publisher    Publisher
	materializer *Materializer
	locks        *keyedMutex
	logger       *log.Logger
}

// NewRecurringService wires the service. publisher may be nil, in which case
// no events are sent. opts configure the underlying Materializer.
func NewRecurringService(templates TemplateStore, occurrences OccurrenceStore, publisher Publisher, opts ...MaterializerOption) *RecurringService {
	m := NewMaterializer(occurrences, opts...)
	return &RecurringService{
		templates:    templates,
		occurrences:  occurrences,
		publisher:    publisher,
		materializer: m,
		locks:        newKeyedMutex(),
		logger:       m.logger.WithComponent(log.ComponentService),
	}
}

// Materializer exposes the configured materializer.
func (s *RecurringService) Materializer() *Materializer {
	return s.materializer
}

// CreateTemplate validates t, assigns an ID when missing and stores it as
// active.
func (s *RecurringService) CreateTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	t.Name = strings.TrimSpace(t.Name)
	t.Active = true
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}
	if t.ID == "" {
		t.ID = s.materializer.newID()
	}
	now := s.materializer.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	if err := s.templates.CreateTemplate(ctx, t); err != nil {
		return core.Template{}, storeErr("create template", err)
	}

	s.logger.InfoContext(ctx, "Created recurring template",
		log.FieldTemplateID, t.ID,
		log.FieldUserID, t.UserID,
		log.FieldRule, t.Rule.String(),
		log.FieldAmount, t.Amount.Cents())
	return t, nil
}

func (s *RecurringService) GetTemplate(ctx context.Context, id string) (core.Template, error) {
	if id == "" {
		return core.Template{}, core.ErrMissingTemplateID
	}
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, storeErr("get template", err)
	}
	return t, nil
}

func (s *RecurringService) ListTemplates(ctx context.Context, userID string) ([]core.Template, error) {
	ts, err := s.templates.ListActiveTemplates(ctx, userID)
	if err != nil {
		return nil, storeErr("list templates", err)
	}
	return ts, nil
}

func (s *RecurringService) ListOccurrences(ctx context.Context, userID string, from, to core.Date) ([]core.Occurrence, error) {
	occs, err := s.occurrences.ListOccurrences(ctx, userID, from, to)
	if err != nil {
		return nil, storeErr("list occurrences", err)
	}
	return occs, nil
}

// Materialize runs one pass for the template up to horizon. The template is
// reloaded under its lock so the pass always sees the latest fields.
func (s *RecurringService) Materialize(ctx context.Context, templateID string, horizon core.Date, scope core.Scope) (Result, error) {
	if templateID == "" {
		return Result{}, core.ErrMissingTemplateID
	}
	unlock := s.locks.Lock(templateID)
	defer unlock()

	tmpl, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return Result{TemplateID: templateID, Horizon: horizon}, err
	}

	res, err := s.materializer.Materialize(ctx, tmpl, horizon, scope)
	if res.InsertedCount() > 0 {
		s.publish(ctx, res, scope)
	}
	return res, err
}

// MaterializeUser runs a pass for every active template of the scope user.
// A failing template does not stop the others; all failures are joined.
func (s *RecurringService) MaterializeUser(ctx context.Context, scope core.Scope, horizon core.Date) ([]Result, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	templates, err := s.ListTemplates(ctx, scope.UserID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(templates))
	var errs []error
	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.Materialize(ctx, t.ID, horizon, scope)
		if res.Status == StatusPartial {
			results = append(results, res)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to materialize template",
				log.FieldTemplateID, t.ID,
				log.FieldUserID, scope.UserID,
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("template %s: %w", t.ID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// SetActive pauses or resumes generation. Existing occurrences are kept.
func (s *RecurringService) SetActive(ctx context.Context, templateID string, active bool) error {
	if templateID == "" {
		return core.ErrMissingTemplateID
	}
	unlock := s.locks.Lock(templateID)
	defer unlock()

	if err := s.templates.SetTemplateActive(ctx, templateID, active); err != nil {
		return storeErr("set template active", err)
	}
	s.logger.InfoContext(ctx, "Template activity changed",
		log.FieldTemplateID, templateID,
		"active", active)
	return nil
}

// Reschedule replaces the rule and date range of a template. Occurrences
// already materialized are left as they are.
func (s *RecurringService) Reschedule(ctx context.Context, templateID string, rule core.Rule, start, end core.Date) error {
	probe := core.Template{Rule: rule, StartDate: start, EndDate: end}
	if err := probe.ValidateSchedule(); err != nil {
		return err
	}
	if templateID == "" {
		return core.ErrMissingTemplateID
	}
	unlock := s.locks.Lock(templateID)
	defer unlock()

	if err := s.templates.UpdateTemplateSchedule(ctx, templateID, rule, start, end); err != nil {
		return storeErr("update template schedule", err)
	}
	s.logger.InfoContext(ctx, "Template rescheduled",
		log.FieldTemplateID, templateID,
		log.FieldRule, rule.String(),
		log.FieldDate, start.String())
	return nil
}

func (s *RecurringService) publish(ctx context.Context, res Result, scope core.Scope) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "No publisher configured, skipping occurrences event",
			log.FieldTemplateID, res.TemplateID)
		return
	}

	msg := amqp.NewOccurrencesGeneratedMessage(res.TemplateID, scope.UserID, res.Horizon.String())
	for _, o := range res.Inserted {
		msg.Add(o.ID, o.Date.String())
	}
	if err := s.publisher.PublishOccurrencesGenerated(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish occurrences event",
			log.FieldTemplateID, res.TemplateID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}
