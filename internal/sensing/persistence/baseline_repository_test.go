package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsentry/internal/infra/sql"
	"airsentry/internal/sensing/fusion"
)

func newTestBaselineRepository(t *testing.T) *BaselineRepository {
	t.Helper()
	orm, err := sql.NewMemoryORM()
	require.NoError(t, err)
	repo, err := NewBaselineRepository(orm)
	require.NoError(t, err)
	require.NoError(t, repo.ClearBaseline(context.Background()))
	return repo
}

func TestBaselineRepository_LoadWithoutState(t *testing.T) {
	repo := newTestBaselineRepository(t)

	_, err := repo.LoadBaseline(context.Background())
	assert.ErrorIs(t, err, fusion.ErrNoBaselineState)
}

func TestBaselineRepository_RoundTrip(t *testing.T) {
	repo := newTestBaselineRepository(t)
	ctx := context.Background()

	want := fusion.BaselineSnapshot{Minima: []float64{432, 441.5, 428}}
	require.NoError(t, repo.SaveBaseline(ctx, want))

	got, err := repo.LoadBaseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second save replaces the single state row.
	want = fusion.BaselineSnapshot{Minima: []float64{430}}
	require.NoError(t, repo.SaveBaseline(ctx, want))
	got, err = repo.LoadBaseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBaselineRepository_Clear(t *testing.T) {
	repo := newTestBaselineRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveBaseline(ctx, fusion.BaselineSnapshot{Minima: []float64{430}}))
	require.NoError(t, repo.ClearBaseline(ctx))

	_, err := repo.LoadBaseline(ctx)
	assert.ErrorIs(t, err, fusion.ErrNoBaselineState)
}
