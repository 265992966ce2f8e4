package services

import "recurring/internal/core"

// Preview lists the dates a fresh template would produce up to horizon,
// without touching any store. limit caps the result; zero means
// DefaultMaxStepsPerPass.
func Preview(tmpl core.Template, horizon core.Date, policy core.ClampPolicy, limit int) ([]core.Date, error) {
	if err := tmpl.ValidateSchedule(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMaxStepsPerPass
	}

	var dates []core.Date
	for d := tmpl.StartDate; !d.After(horizon); d = policy.Step(tmpl.Rule, d, tmpl.StartDate) {
		if tmpl.HasEndDate() && d.After(tmpl.EndDate) {
			break
		}
		if len(dates) == limit {
			return dates, core.ErrStepLimitExceeded
		}
		dates = append(dates, d)
	}
	return dates, nil
}
