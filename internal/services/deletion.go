package services

import (
	"context"

	"recurring/internal/core"
	"recurring/internal/log"
)

// DeleteOccurrence soft-deletes a single row. Its slot stays reserved, so a
// later pass does not bring it back.
func (s *RecurringService) DeleteOccurrence(ctx context.Context, id string) error {
	if err := s.occurrences.SoftDeleteOccurrence(ctx, id); err != nil {
		return storeErr("soft delete occurrence", err)
	}
	s.logger.InfoContext(ctx, "Deleted occurrence",
		log.FieldOperation, log.OpDelete,
		"occurrence_id", id)
	return nil
}

// DeleteFrom soft-deletes every occurrence of the template dated on or after
// from. With deactivate set the template stops generating as well.
func (s *RecurringService) DeleteFrom(ctx context.Context, templateID string, from core.Date, deactivate bool) (int, error) {
	if err := from.Validate(); err != nil {
		return 0, err
	}
	if templateID == "" {
		return 0, core.ErrMissingTemplateID
	}

	unlock := s.locks.Lock(templateID)
	defer unlock()

	if _, err := s.templates.GetTemplate(ctx, templateID); err != nil {
		return 0, storeErr("get template", err)
	}

	n, err := s.occurrences.SoftDeleteFrom(ctx, templateID, from)
	if err != nil {
		return 0, storeErr("soft delete from", err)
	}
	if deactivate {
		if err := s.templates.SetTemplateActive(ctx, templateID, false); err != nil {
			return n, storeErr("set template active", err)
		}
	}

	s.logger.InfoContext(ctx, "Deleted occurrences from date",
		log.FieldTemplateID, templateID,
		log.FieldOperation, log.OpDelete,
		log.FieldFromDate, from.String(),
		log.FieldDeleted, n,
		"deactivated", deactivate)
	return n, nil
}
