package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring/internal/core"
)

func TestPreview(t *testing.T) {
	tmpl := newTemplate("t", monthly, core.NewDate(2026, 1, 31))

	got, err := Preview(tmpl, core.EndOfMonth(2026, 4), core.AnchorToStartDay, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-31", "2026-02-28", "2026-03-31", "2026-04-30"}, strs(got))

	got, err = Preview(tmpl, core.EndOfMonth(2026, 4), core.ClampAndForget, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-31", "2026-02-28", "2026-03-28", "2026-04-28"}, strs(got))

	got, err = Preview(tmpl, core.EndOfMonth(2026, 12), core.AnchorToStartDay, 3)
	assert.ErrorIs(t, err, core.ErrStepLimitExceeded)
	assert.Len(t, got, 3)

	tmpl.Rule = core.Rule{}
	_, err = Preview(tmpl, core.EndOfMonth(2026, 4), core.AnchorToStartDay, 0)
	assert.ErrorIs(t, err, core.ErrInvalidRule)
}

func strs(ds []core.Date) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}
