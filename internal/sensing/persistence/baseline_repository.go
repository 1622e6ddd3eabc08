package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"airsentry/internal/infra/sql"
	"airsentry/internal/sensing/fusion"
	"airsentry/internal/sensing/persistence/internal"

	"github.com/vmihailenco/msgpack/v5"
)

// The learner state is one row; msgpack keeps the blob compact and lets the
// snapshot struct evolve without schema migrations.
const _baselineRowID = 1

func NewBaselineRepository(orm sql.ORM) (*BaselineRepository, error) {
	if err := orm.AutoMigrate(&internal.BaselineState{}); err != nil {
		return nil, fmt.Errorf("auto migrating baseline state: %w", err)
	}
	return &BaselineRepository{orm: orm}, nil
}

var _ fusion.BaselineStore = (*BaselineRepository)(nil)

type BaselineRepository struct {
	orm sql.ORM
}

func (r *BaselineRepository) SaveBaseline(ctx context.Context, snapshot fusion.BaselineSnapshot) error {
	data, err := msgpack.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("msgpack marshaling: %w", err)
	}

	entity := internal.BaselineState{ID: _baselineRowID, Data: data, UpdatedAt: time.Now()}
	if err := r.orm.WithContext(ctx).Save(&entity).Error(); err != nil {
		return fmt.Errorf("saving baseline state: %w", err)
	}
	return nil
}

func (r *BaselineRepository) LoadBaseline(ctx context.Context) (fusion.BaselineSnapshot, error) {
	var entity internal.BaselineState
	err := r.orm.
		WithContext(ctx).
		First(&entity, _baselineRowID).
		Error()
	if errors.Is(err, sql.ErrRecordNotFound) {
		return fusion.BaselineSnapshot{}, fusion.ErrNoBaselineState
	}
	if err != nil {
		return fusion.BaselineSnapshot{}, fmt.Errorf("database query: %w", err)
	}

	var snapshot fusion.BaselineSnapshot
	if err := msgpack.Unmarshal(entity.Data, &snapshot); err != nil {
		return fusion.BaselineSnapshot{}, fmt.Errorf("msgpack unmarshaling: %w", err)
	}
	return snapshot, nil
}

func (r *BaselineRepository) ClearBaseline(ctx context.Context) error {
	err := r.orm.
		WithContext(ctx).
		Delete(&internal.BaselineState{}, _baselineRowID).
		Error()
	if err != nil {
		return fmt.Errorf("clearing baseline state: %w", err)
	}
	return nil
}
