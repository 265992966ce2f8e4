package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTemplate() Template {
	return Template{
		ID:     "tpl-1",
		UserID: "user-1",
		FieldValues: FieldValues{
			Name:      "Rent",
			Amount:    MoneyFromCents(120000),
			Direction: Expense,
		},
		StartDate: NewDate(2026, 1, 1),
		Rule:      Rule{Monthly, 1},
		Active:    true,
	}
}

func TestDateValidate(t *testing.T) {
	assert.NoError(t, NewDate(2025, 1, 1).Validate())
	assert.ErrorIs(t, Date{Time: time.Time{}}.Validate(), ErrInvalidDate)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-02-28 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(NewDate(2026, 2, 28)))

	_, err = ParseDate("2026-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseYearMonth(t *testing.T) {
	h, err := ParseYearMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", h.String())

	h, err = ParseYearMonth("2026-04")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-30", h.String())

	_, err = ParseYearMonth("2026-13")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	d := DateOf(time.Date(2026, 3, 1, 1, 30, 0, 0, loc))
	assert.Equal(t, "2026-03-01", d.String())
}

func TestTemplateValidate(t *testing.T) {
	require.NoError(t, validTemplate().Validate())

	tests := []struct {
		name    string
		mutate  func(*Template)
		wantErr error
	}{
		{"missing user", func(tp *Template) { tp.UserID = " " }, ErrEmptyUser},
		{"empty name", func(tp *Template) { tp.Name = "" }, ErrEmptyName},
		{"zero amount", func(tp *Template) { tp.Amount = Money{} }, ErrInvalidAmount},
		{"bad direction", func(tp *Template) { tp.Direction = "transfer" }, ErrInvalidDirection},
		{"zero start", func(tp *Template) { tp.StartDate = Date{} }, ErrInvalidDate},
		{"zero rule", func(tp *Template) { tp.Rule = Rule{} }, ErrInvalidRule},
		{"end before start", func(tp *Template) { tp.EndDate = NewDate(2025, 12, 31) }, ErrEndBeforeStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := validTemplate()
			tt.mutate(&tp)
			assert.ErrorIs(t, tp.Validate(), tt.wantErr)
		})
	}

	t.Run("end equal to start is allowed", func(t *testing.T) {
		tp := validTemplate()
		tp.EndDate = tp.StartDate
		assert.NoError(t, tp.Validate())
	})
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" Income ")
	require.NoError(t, err)
	assert.Equal(t, Income, d)

	_, err = ParseDirection("debit")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func TestSummarize(t *testing.T) {
	deleted := time.Now()
	occs := []Occurrence{
		{FieldValues: FieldValues{Amount: MoneyFromCents(1000), Direction: Income}, Date: NewDate(2026, 1, 5)},
		{FieldValues: FieldValues{Amount: MoneyFromCents(250), Direction: Expense}, Date: NewDate(2026, 1, 6)},
		{FieldValues: FieldValues{Amount: MoneyFromCents(999), Direction: Expense}, Date: NewDate(2026, 1, 7), DeletedAt: &deleted},
		{FieldValues: FieldValues{Amount: MoneyFromCents(400), Direction: Expense}, Date: NewDate(2026, 2, 1)},
	}

	s := Summarize(2026, 1, occs)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, "10.00", s.Income.String())
	assert.Equal(t, "2.50", s.Expense.String())
	assert.Equal(t, "7.50", s.Net())
}
