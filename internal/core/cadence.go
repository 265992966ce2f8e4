package core

import (
	"fmt"
	"strings"
)

const (
	Daily   Unit = "daily"
	Weekly  Unit = "weekly"
	Monthly Unit = "monthly"
	Yearly  Unit = "yearly"
)

// Unit is the base period of a recurrence rule.
type Unit string

// Rule is a recurrence cadence: Interval periods of Unit between occurrences.
// The zero Rule means "not recurring" and steps a date onto itself.
type Rule struct {
	Unit     Unit
	Interval int
}

// Legacy cadence names accepted at the boundary.
const (
	CadenceNone        = "NONE"
	CadenceWeekly      = "WEEKLY"
	CadenceMonthly     = "MONTHLY"
	CadenceQuarterly   = "QUARTERLY"
	CadenceFourMonthly = "FOUR_MONTHLY"
	CadenceSemiAnnual  = "SEMI_ANNUAL"
	CadenceAnnual      = "ANNUAL"
)

var legacyCadences = map[string]Rule{
	CadenceNone:        {},
	CadenceWeekly:      {Unit: Weekly, Interval: 1},
	CadenceMonthly:     {Unit: Monthly, Interval: 1},
	CadenceQuarterly:   {Unit: Monthly, Interval: 3},
	CadenceFourMonthly: {Unit: Monthly, Interval: 4},
	CadenceSemiAnnual:  {Unit: Monthly, Interval: 6},
	CadenceAnnual:      {Unit: Yearly, Interval: 1},
}

// ParseLegacyCadence maps a legacy cadence name onto a Rule. NONE yields the
// zero Rule.
func ParseLegacyCadence(name string) (Rule, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	r, ok := legacyCadences[key]
	if !ok {
		return Rule{}, fmt.Errorf("%w: unknown cadence %q", ErrInvalidRule, name)
	}
	return r, nil
}

// ParseRule builds a Rule from a unit name and interval. Legacy cadence
// names are accepted as unit when interval is 0 or 1.
func ParseRule(unit string, interval int) (Rule, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(unit)))
	if _, ok := stepStrategies[u]; !ok {
		legacy, err := ParseLegacyCadence(unit)
		if err != nil {
			return Rule{}, err
		}
		if interval > 1 {
			return Rule{}, fmt.Errorf("%w: legacy cadence %q takes no interval", ErrInvalidRule, unit)
		}
		return legacy, nil
	}
	r := Rule{Unit: u, Interval: interval}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// IsZero reports whether r is the non-recurring rule.
func (r Rule) IsZero() bool {
	return r == Rule{}
}

// Validate rejects the zero rule, unknown units and non-positive intervals.
func (r Rule) Validate() error {
	if r.IsZero() {
		return fmt.Errorf("%w: rule is not recurring", ErrInvalidRule)
	}
	if _, ok := stepStrategies[r.Unit]; !ok {
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidRule, r.Unit)
	}
	if r.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidRule, r.Interval)
	}
	return nil
}

func (r Rule) String() string {
	if r.IsZero() {
		return "none"
	}
	if r.Interval == 1 {
		return string(r.Unit)
	}
	return fmt.Sprintf("%s/%d", r.Unit, r.Interval)
}

// Step advances d by one period of r, clamping month arithmetic to the last
// day of the target month and keeping d's day otherwise (clamp-and-forget).
func (r Rule) Step(d Date) Date {
	return r.StepAnchored(d, d.Day())
}

// StepAnchored advances d by one period of r. For month-based units the day
// of the result is anchorDay, clamped to the length of the target month. The
// zero rule and invalid rules return d unchanged.
func (r Rule) StepAnchored(d Date, anchorDay int) Date {
	step, ok := stepStrategies[r.Unit]
	if !ok || r.Interval <= 0 {
		return d
	}
	return step(d, r.Interval, anchorDay)
}

// stepFunc advances a date by interval periods.
type stepFunc func(d Date, interval, anchorDay int) Date

// stepStrategies maps units to their date arithmetic.
var stepStrategies = map[Unit]stepFunc{
	Daily:   stepDays(1),
	Weekly:  stepDays(7),
	Monthly: stepMonths(1),
	Yearly:  stepMonths(12),
}

func stepDays(days int) stepFunc {
	return func(d Date, interval, _ int) Date {
		return d.AddDays(days * interval)
	}
}

func stepMonths(months int) stepFunc {
	return func(d Date, interval, anchorDay int) Date {
		return AddMonthsClamped(d, months*interval, anchorDay)
	}
}

// AddMonthsClamped moves d forward by n calendar months and sets the day to
// anchorDay, or to the last day of the target month when that month is
// shorter. It never lets the day overflow into the following month.
func AddMonthsClamped(d Date, n, anchorDay int) Date {
	total := d.Year()*12 + (d.Month() - 1) + n
	year, month := total/12, total%12+1
	day := anchorDay
	if last := DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(year, month, day)
}

// ClampPolicy decides which day of month a month-based step lands on when
// the previous occurrence was clamped.
type ClampPolicy int

const (
	// AnchorToStartDay re-derives the day from the template start date on
	// every step: Jan 31, Feb 28, Mar 31, Apr 30.
	AnchorToStartDay ClampPolicy = iota
	// ClampAndForget keeps whatever day the previous occurrence landed on:
	// Jan 31, Feb 28, Mar 28, Apr 28.
	ClampAndForget
)

// Step advances d by r under the policy. start is the template start date.
func (p ClampPolicy) Step(r Rule, d, start Date) Date {
	if p == AnchorToStartDay && !start.IsZero() {
		return r.StepAnchored(d, start.Day())
	}
	return r.Step(d)
}

func (p ClampPolicy) String() string {
	switch p {
	case AnchorToStartDay:
		return "anchor"
	case ClampAndForget:
		return "forget"
	default:
		return fmt.Sprintf("ClampPolicy(%d)", int(p))
	}
}

// ParseClampPolicy accepts "anchor" or "forget".
func ParseClampPolicy(s string) (ClampPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "anchor":
		return AnchorToStartDay, nil
	case "forget":
		return ClampAndForget, nil
	default:
		return 0, fmt.Errorf("unknown clamp policy %q: must be 'anchor' or 'forget'", s)
	}
}
