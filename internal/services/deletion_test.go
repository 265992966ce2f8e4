package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring/internal/core"
	"recurring/internal/storage/memory"
)

func TestRecurringService_DeleteFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the past and stays deleted", func(t *testing.T) {
		store := memory.New()
		svc := newTestService(t, store, nil)
		seedTemplate(t, store, newTemplate("t1", monthly, core.NewDate(2026, 1, 15)))

		_, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 6), testScope)
		require.NoError(t, err)

		n, err := svc.DeleteFrom(ctx, "t1", core.NewDate(2026, 4, 15), false)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []string{"2026-01-15", "2026-02-15", "2026-03-15"}, listDates(t, store))

		// Still active: the next pass extends past the deleted range only.
		res, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 7), testScope)
		require.NoError(t, err)
		assert.Equal(t, []string{"2026-07-15"}, dates(res.Inserted))
		assert.Equal(t, 3, res.Skipped)
	})

	t.Run("deactivate stops generation", func(t *testing.T) {
		store := memory.New()
		svc := newTestService(t, store, nil)
		seedTemplate(t, store, newTemplate("t1", monthly, core.NewDate(2026, 1, 15)))

		_, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 3), testScope)
		require.NoError(t, err)

		n, err := svc.DeleteFrom(ctx, "t1", core.NewDate(2026, 2, 1), true)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		tmpl, err := svc.GetTemplate(ctx, "t1")
		require.NoError(t, err)
		assert.False(t, tmpl.Active)

		res, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 12), testScope)
		require.NoError(t, err)
		assert.Equal(t, StatusInactive, res.Status)
		assert.Equal(t, []string{"2026-01-15"}, listDates(t, store))
	})

	t.Run("unknown template", func(t *testing.T) {
		svc := newTestService(t, memory.New(), nil)
		_, err := svc.DeleteFrom(ctx, "nope", core.NewDate(2026, 1, 1), false)
		assert.ErrorIs(t, err, core.ErrTemplateNotFound)
		_, err = svc.DeleteFrom(ctx, "nope", core.Date{}, false)
		assert.ErrorIs(t, err, core.ErrInvalidDate)
	})
}

func TestRecurringService_DeleteOccurrence(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store, nil)
	seedTemplate(t, store, newTemplate("t1", weekly, core.NewDate(2026, 1, 1)))

	res, err := svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 1), testScope)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOccurrence(ctx, res.Inserted[2].ID))
	assert.Equal(t, []string{"2026-01-01", "2026-01-08", "2026-01-22", "2026-01-29"}, listDates(t, store))

	assert.ErrorIs(t, svc.DeleteOccurrence(ctx, res.Inserted[2].ID), core.ErrOccurrenceNotFound)
	assert.ErrorIs(t, svc.DeleteOccurrence(ctx, "missing"), core.ErrOccurrenceNotFound)

	res, err = svc.Materialize(ctx, "t1", core.EndOfMonth(2026, 1), testScope)
	require.NoError(t, err)
	assert.Zero(t, res.InsertedCount())
}
