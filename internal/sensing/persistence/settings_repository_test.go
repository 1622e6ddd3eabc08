package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsentry/internal/infra/sql"
)

func newTestSettingsRepository(t *testing.T) *SettingsRepository {
	t.Helper()
	orm, err := sql.NewMemoryORM()
	require.NoError(t, err)
	repo, err := NewSettingsRepository(orm)
	require.NoError(t, err)
	return repo
}

func TestSettingsRepository_GetStringMissing(t *testing.T) {
	repo := newTestSettingsRepository(t)

	_, err := repo.GetString(context.Background(), "settings_test.missing")
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestSettingsRepository_StringRoundTrip(t *testing.T) {
	repo := newTestSettingsRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SetString(ctx, "settings_test.string", "hello"))
	got, err := repo.GetString(ctx, "settings_test.string")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	// Save overwrites in place.
	require.NoError(t, repo.SetString(ctx, "settings_test.string", "world"))
	got, err = repo.GetString(ctx, "settings_test.string")
	require.NoError(t, err)
	assert.Equal(t, "world", got)
}

func TestSettingsRepository_FloatBackfillsDefault(t *testing.T) {
	repo := newTestSettingsRepository(t)
	ctx := context.Background()

	got, err := repo.GetFloat(ctx, "settings_test.offset", 1.8)
	require.NoError(t, err)
	assert.Equal(t, 1.8, got)

	// The fallback was written, so the key now exists as a plain string.
	raw, err := repo.GetString(ctx, "settings_test.offset")
	require.NoError(t, err)
	assert.Equal(t, "1.8", raw)

	require.NoError(t, repo.SetFloat(ctx, "settings_test.offset", 2.5))
	got, err = repo.GetFloat(ctx, "settings_test.offset", 1.8)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)
}

func TestSettingsRepository_DurationStoredAsMilliseconds(t *testing.T) {
	repo := newTestSettingsRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SetDuration(ctx, "settings_test.cadence", 1500*time.Millisecond))

	raw, err := repo.GetString(ctx, "settings_test.cadence")
	require.NoError(t, err)
	assert.Equal(t, "1500", raw)

	got, err := repo.GetDuration(ctx, "settings_test.cadence", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, got)
}

func TestSettingsRepository_CorruptValueFallsBack(t *testing.T) {
	repo := newTestSettingsRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SetString(ctx, "settings_test.corrupt", "not-a-number"))

	got, err := repo.GetFloat(ctx, "settings_test.corrupt", 3.5)
	assert.Error(t, err)
	assert.Equal(t, 3.5, got)

	dur, err := repo.GetDuration(ctx, "settings_test.corrupt", time.Minute)
	assert.Error(t, err)
	assert.Equal(t, time.Minute, dur)
}
