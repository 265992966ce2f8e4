// Package core provides money parsing and handling utilities.
//
// Amounts are held as shopspring decimals rounded to cents so that template
// edits and generated occurrences never drift through float arithmetic.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a positive amount with two decimal places. The sign of a
// transaction lives in its Direction, never in the amount.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d half away from zero to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

// MoneyFromCents builds a Money from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{Decimal: decimal.New(cents, -2)}
}

// ParseMoney converts a decimal string to Money with half-up rounding on the
// third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for invalid formats, signed values, or zero amounts.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,345") -> 12.35
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := NewMoney(d)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Cents returns the amount in cents, used for structured logging.
func (m Money) Cents() int64 {
	return m.Shift(2).IntPart()
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.StringFixed(2)
}

// Equal compares two amounts by value, ignoring representation.
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}
