package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring/internal/core"
)

func newFieldCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addFieldFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestApplyFieldFlags(t *testing.T) {
	base := core.FieldValues{
		Name:      "Rent",
		Amount:    core.MoneyFromCents(120000),
		Direction: core.Expense,
		AccountID: "checking",
		Note:      "flat",
	}

	t.Run("no flags keeps base", func(t *testing.T) {
		got, err := applyFieldFlags(newFieldCmd(t), base)
		require.NoError(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("overlays changed flags only", func(t *testing.T) {
		got, err := applyFieldFlags(newFieldCmd(t, "--amount", "1250.50", "--note", ""), base)
		require.NoError(t, err)
		assert.Equal(t, "Rent", got.Name)
		assert.Equal(t, int64(125050), got.Amount.Cents())
		assert.Equal(t, "checking", got.AccountID)
		assert.Empty(t, got.Note)
	})

	t.Run("direction is case insensitive", func(t *testing.T) {
		got, err := applyFieldFlags(newFieldCmd(t, "--direction", "INCOME"), base)
		require.NoError(t, err)
		assert.Equal(t, core.Income, got.Direction)
	})

	t.Run("bad amount", func(t *testing.T) {
		_, err := applyFieldFlags(newFieldCmd(t, "--amount", "abc"), base)
		assert.Error(t, err)
	})

	t.Run("bad direction", func(t *testing.T) {
		_, err := applyFieldFlags(newFieldCmd(t, "--direction", "sideways"), base)
		assert.ErrorIs(t, err, core.ErrInvalidDirection)
	})
}

func TestMonthRange(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	first, last, err := monthRange("", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", first.String())
	assert.Equal(t, "2026-02-28", last.String())

	first, last, err = monthRange("2024-02", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", first.String())
	assert.Equal(t, "2024-02-29", last.String())

	_, _, err = monthRange("2024-13", now)
	assert.Error(t, err)
}

func TestOptionalDate(t *testing.T) {
	d, err := optionalDate("  ")
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())

	d, err = optionalDate("2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-31", d.String())

	_, err = optionalDate("31/03/2026")
	assert.Error(t, err)
}

func TestScheduleFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addScheduleFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--every", "QUARTERLY", "--interval", "0", "--start", "2026-01-31"}))

	rule, start, end, err := scheduleFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, core.Rule{Unit: core.Monthly, Interval: 3}, rule)
	assert.Equal(t, "2026-01-31", start.String())
	assert.True(t, end.IsEmpty())

	cmd = &cobra.Command{Use: "test"}
	addScheduleFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--every", "weekly", "--interval", "0", "--start", "2026-01-31"}))
	_, _, _, err = scheduleFromFlags(cmd)
	assert.ErrorIs(t, err, core.ErrInvalidRule)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	occs := []core.Occurrence{{
		ID:          "o1",
		TemplateID:  "t1",
		FieldValues: core.FieldValues{Name: "Rent", Amount: core.MoneyFromCents(1000), Direction: core.Expense},
		Date:        core.NewDate(2026, 1, 31),
		Modified:    true,
	}}
	require.NoError(t, writeTable(&buf, []string{"DATE", "NAME"}, occurrenceRows(occs)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "2026-01-31")
	assert.Contains(t, lines[1], "Rent")
	assert.Contains(t, lines[1], "edited")
}
