package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring/internal/core"
	"recurring/internal/storage/memory"
)

func byDate(t *testing.T, store OccurrenceStore) map[string]core.Occurrence {
	t.Helper()
	occs, err := store.ListOccurrences(context.Background(), testScope.UserID, core.Date{}, core.Date{})
	require.NoError(t, err)
	out := make(map[string]core.Occurrence, len(occs))
	for _, o := range occs {
		out[o.Date.String()] = o
	}
	return out
}

func TestRecurringService_EditTemplate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store, nil)
	seedTemplate(t, store, newTemplate("t1", monthly, core.NewDate(2026, 1, 31)))

	_, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 5), testScope)
	require.NoError(t, err)

	before := byDate(t, store)
	mar := before["2026-03-31"]
	edited := mar.FieldValues
	edited.Amount = core.MoneyFromCents(1)
	_, err = svc.EditOccurrence(ctx, mar.ID, edited)
	require.NoError(t, err)

	newFields := core.FieldValues{
		Name:      "Rent (renegotiated)",
		Amount:    core.MoneyFromCents(110000),
		Direction: core.Expense,
		Note:      "from spring",
	}
	n, err := svc.EditTemplate(ctx, "t1", core.NewDate(2026, 3, 1), newFields)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "april and may only")

	after := byDate(t, store)
	assert.Equal(t, "Rent", after["2026-01-31"].Name)
	assert.Equal(t, "Rent", after["2026-02-28"].Name)
	assert.Equal(t, "0.01", after["2026-03-31"].Amount.String())
	assert.True(t, after["2026-03-31"].Modified)
	for _, d := range []string{"2026-04-30", "2026-05-31"} {
		assert.Equal(t, "Rent (renegotiated)", after[d].Name, d)
		assert.Equal(t, "1100.00", after[d].Amount.String(), d)
		assert.Equal(t, "acc-default", after[d].AccountID, d)
		assert.False(t, after[d].Modified, d)
	}

	tmpl, err := svc.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Rent (renegotiated)", tmpl.Name)
	assert.Equal(t, monthly, tmpl.Rule)
	assert.True(t, tmpl.StartDate.Equal(core.NewDate(2026, 1, 31)))

	t.Run("later passes carry the new fields", func(t *testing.T) {
		res, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 6), testScope)
		require.NoError(t, err)
		require.Len(t, res.Inserted, 1)
		assert.Equal(t, "Rent (renegotiated)", res.Inserted[0].Name)
		assert.Equal(t, "from spring", res.Inserted[0].Note)
	})

	t.Run("edit from the future touches nothing", func(t *testing.T) {
		n, err := svc.EditTemplate(ctx, "t1", core.NewDate(2027, 1, 1), newFields)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRecurringService_EditTemplateKeepsAccountWhenEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store, nil)
	tmpl := newTemplate("t1", monthly, core.NewDate(2026, 1, 1))
	tmpl.AccountID = "checking"
	seedTemplate(t, store, tmpl)

	_, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 3), testScope)
	require.NoError(t, err)

	fields := tmpl.Fields()
	fields.AccountID = ""
	fields.Amount = core.MoneyFromCents(99900)
	n, err := svc.EditTemplate(ctx, "t1", core.NewDate(2026, 2, 1), fields)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := svc.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "checking", got.AccountID)
	for d, o := range byDate(t, store) {
		assert.Equal(t, "checking", o.AccountID, d)
	}

	res, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 4), testScope)
	require.NoError(t, err)
	require.Len(t, res.Inserted, 1)
	assert.Equal(t, "checking", res.Inserted[0].AccountID)
	assert.Equal(t, "999.00", res.Inserted[0].Amount.String())
}

func TestRecurringService_EditTemplateValidation(t *testing.T) {
	ctx := context.Background()
	store := newFailingStore("*")
	svc := newTestService(t, store, nil)

	valid := core.FieldValues{Name: "x", Amount: core.MoneyFromCents(100), Direction: core.Income}

	_, err := svc.EditTemplate(ctx, "t1", core.NewDate(2026, 1, 1), core.FieldValues{Amount: valid.Amount, Direction: valid.Direction})
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = svc.EditTemplate(ctx, "t1", core.NewDate(2026, 1, 1), core.FieldValues{Name: "x", Direction: core.Income})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = svc.EditTemplate(ctx, "t1", core.Date{}, valid)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	assert.Zero(t, store.Calls())

	_, err = svc.EditTemplate(ctx, "t1", core.NewDate(2026, 1, 1), valid)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestRecurringService_EditOccurrence(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store, nil)
	seedTemplate(t, store, newTemplate("t1", weekly, core.NewDate(2026, 1, 1)))

	res, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 1), testScope)
	require.NoError(t, err)
	target := res.Inserted[1]

	fields := target.FieldValues
	fields.Name = "Rent split with flatmate"
	updated, err := svc.EditOccurrence(ctx, target.ID, fields)
	require.NoError(t, err)
	assert.True(t, updated.Modified)
	assert.Equal(t, "Rent split with flatmate", updated.Name)

	stored, err := store.GetOccurrence(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, stored.Modified)

	_, err = svc.EditOccurrence(ctx, "missing", fields)
	assert.ErrorIs(t, err, core.ErrOccurrenceNotFound)

	require.NoError(t, svc.DeleteOccurrence(ctx, target.ID))
	_, err = svc.EditOccurrence(ctx, target.ID, fields)
	assert.ErrorIs(t, err, core.ErrOccurrenceNotFound)

	fields.Direction = "both"
	_, err = svc.EditOccurrence(ctx, res.Inserted[0].ID, fields)
	assert.ErrorIs(t, err, core.ErrInvalidDirection)
}
