// Package persistence stores runtime-adjustable settings (cadences, fusion
// coefficients, baseline state) in the station's sqlite database. Missing
// keys fall back to compiled-in defaults and are back-filled on first read so
// the table documents the effective configuration.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"airsentry/internal/infra/sql"
	"airsentry/internal/sensing/persistence/internal"
)

var ErrSettingNotFound = errors.New("setting not found")

func NewSettingsRepository(orm sql.ORM) (*SettingsRepository, error) {
	if err := orm.AutoMigrate(&internal.Setting{}); err != nil {
		return nil, fmt.Errorf("auto migrating settings: %w", err)
	}
	return &SettingsRepository{orm: orm}, nil
}

type SettingsRepository struct {
	orm sql.ORM
}

func (r *SettingsRepository) GetString(ctx context.Context, key string) (string, error) {
	var entity internal.Setting
	err := r.orm.
		WithContext(ctx).
		Where("key = ?", key).
		First(&entity).
		Error()
	if errors.Is(err, sql.ErrRecordNotFound) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("database query: %w", err)
	}
	return entity.Value, nil
}

func (r *SettingsRepository) SetString(ctx context.Context, key, value string) error {
	entity := internal.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := r.orm.WithContext(ctx).Save(&entity).Error(); err != nil {
		return fmt.Errorf("saving setting %q: %w", key, err)
	}
	return nil
}

// GetFloat returns the persisted value for key, back-filling fallback when
// the key does not exist yet.
func (r *SettingsRepository) GetFloat(ctx context.Context, key string, fallback float64) (float64, error) {
	raw, err := r.GetString(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		if err := r.SetFloat(ctx, key, fallback); err != nil {
			return fallback, err
		}
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback, fmt.Errorf("setting %q holds %q, not a float: %w", key, raw, err)
	}
	return value, nil
}

func (r *SettingsRepository) SetFloat(ctx context.Context, key string, value float64) error {
	return r.SetString(ctx, key, strconv.FormatFloat(value, 'g', -1, 64))
}

// GetDuration stores durations as integer milliseconds, matching how cadences
// are exposed on the command surface.
func (r *SettingsRepository) GetDuration(ctx context.Context, key string, fallback time.Duration) (time.Duration, error) {
	raw, err := r.GetString(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		if err := r.SetDuration(ctx, key, fallback); err != nil {
			return fallback, err
		}
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("setting %q holds %q, not milliseconds: %w", key, raw, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (r *SettingsRepository) SetDuration(ctx context.Context, key string, value time.Duration) error {
	return r.SetString(ctx, key, strconv.FormatInt(value.Milliseconds(), 10))
}
