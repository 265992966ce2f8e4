package core

import "errors"

var (
	// ErrInvalidRule is returned for a zero or negative interval, an unknown
	// unit, or an unknown legacy cadence name. It is detected before any
	// store access.
	ErrInvalidRule = errors.New("invalid recurrence rule")

	// ErrEndBeforeStart is returned when a template's end date precedes its
	// start date. Templates are validated on creation and on reschedule, so a
	// materialization pass never sees it.
	ErrEndBeforeStart = errors.New("end date before start date")

	// ErrStoreUnavailable wraps every failure reported by an occurrence or
	// template store. A pass that fails with it inserted nothing and can be
	// retried safely.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStepLimitExceeded is returned when a single pass would walk more
	// candidates than the configured limit.
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	ErrTemplateNotFound   = errors.New("template not found")
	ErrOccurrenceNotFound = errors.New("occurrence not found")
	ErrMissingTemplateID  = errors.New("missing template id")
	ErrScopeMismatch      = errors.New("template does not belong to scope user")

	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyUser        = errors.New("empty user id")
)
