package services

import (
	"context"
	"strings"

	"recurring/internal/core"
	"recurring/internal/log"
)

// EditTemplate stores new field values on the template and rewrites every
// live, unmodified occurrence dated on or after from. Earlier rows, rows the
// user edited and the schedule are left alone. An empty AccountID keeps the
// current account on both the template and the rows. It returns the number
// of occurrences rewritten.
func (s *RecurringService) EditTemplate(ctx context.Context, templateID string, from core.Date, fields core.FieldValues) (int, error) {
	fields.Name = strings.TrimSpace(fields.Name)
	if err := fields.Validate(); err != nil {
		return 0, err
	}
	if err := from.Validate(); err != nil {
		return 0, err
	}
	if templateID == "" {
		return 0, core.ErrMissingTemplateID
	}

	unlock := s.locks.Lock(templateID)
	defer unlock()

	if err := s.templates.UpdateTemplateFields(ctx, templateID, fields); err != nil {
		return 0, storeErr("update template fields", err)
	}
	n, err := s.occurrences.UpdateFutureUnmodified(ctx, templateID, from, fields)
	if err != nil {
		return 0, storeErr("update future occurrences", err)
	}

	s.logger.InfoContext(ctx, "Propagated template edit",
		log.FieldTemplateID, templateID,
		log.FieldOperation, log.OpPropagate,
		log.FieldFromDate, from.String(),
		log.FieldUpdated, n)
	return n, nil
}

// EditOccurrence changes a single occurrence and marks it modified so later
// template edits skip it.
func (s *RecurringService) EditOccurrence(ctx context.Context, id string, fields core.FieldValues) (core.Occurrence, error) {
	fields.Name = strings.TrimSpace(fields.Name)
	if err := fields.Validate(); err != nil {
		return core.Occurrence{}, err
	}

	occ, err := s.occurrences.GetOccurrence(ctx, id)
	if err != nil {
		return core.Occurrence{}, storeErr("get occurrence", err)
	}
	if occ.IsDeleted() {
		return core.Occurrence{}, core.ErrOccurrenceNotFound
	}

	if err := s.occurrences.UpdateOccurrence(ctx, id, fields); err != nil {
		return core.Occurrence{}, storeErr("update occurrence", err)
	}

	occ.FieldValues = fields
	occ.Modified = true
	return occ, nil
}
