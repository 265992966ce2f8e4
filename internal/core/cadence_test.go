package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Step(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		from Date
		want Date
	}{
		{"daily", Rule{Daily, 1}, NewDate(2026, 2, 28), NewDate(2026, 3, 1)},
		{"every 3 days", Rule{Daily, 3}, NewDate(2026, 12, 30), NewDate(2027, 1, 2)},
		{"weekly", Rule{Weekly, 1}, NewDate(2026, 1, 29), NewDate(2026, 2, 5)},
		{"biweekly", Rule{Weekly, 2}, NewDate(2026, 1, 1), NewDate(2026, 1, 15)},
		{"monthly", Rule{Monthly, 1}, NewDate(2026, 1, 15), NewDate(2026, 2, 15)},
		{"monthly clamps jan 31", Rule{Monthly, 1}, NewDate(2026, 1, 31), NewDate(2026, 2, 28)},
		{"monthly clamps in leap year", Rule{Monthly, 1}, NewDate(2024, 1, 31), NewDate(2024, 2, 29)},
		{"monthly crosses year", Rule{Monthly, 1}, NewDate(2026, 12, 31), NewDate(2027, 1, 31)},
		{"quarterly", Rule{Monthly, 3}, NewDate(2026, 11, 30), NewDate(2027, 2, 28)},
		{"four monthly", Rule{Monthly, 4}, NewDate(2026, 10, 31), NewDate(2027, 2, 28)},
		{"semi annual", Rule{Monthly, 6}, NewDate(2026, 8, 31), NewDate(2027, 2, 28)},
		{"yearly", Rule{Yearly, 1}, NewDate(2026, 3, 10), NewDate(2027, 3, 10)},
		{"yearly from leap day", Rule{Yearly, 1}, NewDate(2024, 2, 29), NewDate(2025, 2, 28)},
		{"zero rule is identity", Rule{}, NewDate(2026, 5, 5), NewDate(2026, 5, 5)},
		{"invalid interval is identity", Rule{Monthly, 0}, NewDate(2026, 5, 5), NewDate(2026, 5, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.Step(tt.from)
			assert.True(t, got.Equal(tt.want), "Step(%s) = %s, want %s", tt.from, got, tt.want)
		})
	}
}

func TestClampPolicy_MonthEndSequence(t *testing.T) {
	rule := Rule{Monthly, 1}

	walk := func(p ClampPolicy, start Date, n int) []string {
		out := []string{start.String()}
		d := start
		for i := 1; i < n; i++ {
			d = p.Step(rule, d, start)
			out = append(out, d.String())
		}
		return out
	}

	t.Run("anchor returns to day 31", func(t *testing.T) {
		assert.Equal(t,
			[]string{"2026-01-31", "2026-02-28", "2026-03-31", "2026-04-30", "2026-05-31"},
			walk(AnchorToStartDay, NewDate(2026, 1, 31), 5))
	})

	t.Run("anchor in leap year", func(t *testing.T) {
		assert.Equal(t,
			[]string{"2024-01-31", "2024-02-29", "2024-03-31"},
			walk(AnchorToStartDay, NewDate(2024, 1, 31), 3))
	})

	t.Run("forget stays on clamped day", func(t *testing.T) {
		assert.Equal(t,
			[]string{"2026-01-31", "2026-02-28", "2026-03-28", "2026-04-28"},
			walk(ClampAndForget, NewDate(2026, 1, 31), 4))
	})

	t.Run("forget in leap year", func(t *testing.T) {
		assert.Equal(t,
			[]string{"2024-01-31", "2024-02-29", "2024-03-29"},
			walk(ClampAndForget, NewDate(2024, 1, 31), 3))
	})

	t.Run("anchor on yearly leap day", func(t *testing.T) {
		yearly := Rule{Yearly, 1}
		start := NewDate(2024, 2, 29)
		d := AnchorToStartDay.Step(yearly, start, start)
		assert.Equal(t, "2025-02-28", d.String())
		for i := 0; i < 3; i++ {
			d = AnchorToStartDay.Step(yearly, d, start)
		}
		assert.Equal(t, "2028-02-29", d.String())
	})

	t.Run("weekly ignores policy", func(t *testing.T) {
		start := NewDate(2026, 1, 31)
		assert.Equal(t,
			ClampAndForget.Step(Rule{Weekly, 1}, start, start),
			AnchorToStartDay.Step(Rule{Weekly, 1}, start, start))
	})
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"monthly", Rule{Monthly, 1}, false},
		{"every 2 years", Rule{Yearly, 2}, false},
		{"zero rule", Rule{}, true},
		{"zero interval", Rule{Weekly, 0}, true},
		{"negative interval", Rule{Daily, -1}, true},
		{"unknown unit", Rule{Unit("hourly"), 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLegacyCadence(t *testing.T) {
	tests := []struct {
		in   string
		want Rule
	}{
		{"NONE", Rule{}},
		{"WEEKLY", Rule{Weekly, 1}},
		{"monthly", Rule{Monthly, 1}},
		{"QUARTERLY", Rule{Monthly, 3}},
		{"FOUR_MONTHLY", Rule{Monthly, 4}},
		{"semi-annual", Rule{Monthly, 6}},
		{"ANNUAL", Rule{Yearly, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLegacyCadence(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLegacyCadence("FORTNIGHTLY")
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule("Monthly", 2)
	require.NoError(t, err)
	assert.Equal(t, Rule{Monthly, 2}, r)

	r, err = ParseRule("quarterly", 0)
	require.NoError(t, err)
	assert.Equal(t, Rule{Monthly, 3}, r)

	_, err = ParseRule("quarterly", 2)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = ParseRule("weekly", 0)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = ParseRule("hourly", 1)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestParseClampPolicy(t *testing.T) {
	p, err := ParseClampPolicy("")
	require.NoError(t, err)
	assert.Equal(t, AnchorToStartDay, p)

	p, err = ParseClampPolicy("FORGET")
	require.NoError(t, err)
	assert.Equal(t, ClampAndForget, p)
	assert.Equal(t, "forget", p.String())

	_, err = ParseClampPolicy("retry")
	assert.Error(t, err)
}
