// Package sql wraps gorm behind a narrow interface so repositories stay
// testable and error handling is normalized in one place.
package sql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ORM interface {
	AutoMigrate(dst ...any) error
	Create(value any) ORM
	Delete(value any, conds ...any) ORM
	Find(dest any, conds ...any) ORM
	First(dest any, conds ...any) ORM
	Save(value any) ORM
	Where(query any, args ...any) ORM
	WithContext(ctx context.Context) ORM

	Error() error
}

var ErrRecordNotFound = errors.New("record not found")

type DB struct {
	*gorm.DB
}

var _ ORM = (*DB)(nil)

func (d DB) Error() error {
	switch {
	case errors.Is(d.DB.Error, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case d.DB.Error != nil:
		return fmt.Errorf("database error: %w", d.DB.Error)
	default:
		return nil
	}
}

func (d DB) AutoMigrate(dst ...any) error {
	return d.DB.AutoMigrate(dst...)
}

func (d DB) Create(value any) ORM {
	d.DB = d.DB.Create(value)
	return &d
}

func (d DB) Delete(value any, conds ...any) ORM {
	d.DB = d.DB.Delete(value, conds...)
	return &d
}

func (d DB) Find(dest any, conds ...any) ORM {
	d.DB = d.DB.Find(dest, conds...)
	return &d
}

func (d DB) First(dest any, conds ...any) ORM {
	d.DB = d.DB.First(dest, conds...)
	return &d
}

func (d DB) Save(value any) ORM {
	d.DB = d.DB.Save(value)
	return &d
}

func (d DB) Where(query any, args ...any) ORM {
	d.DB = d.DB.Where(query, args...)
	return &d
}

func (d DB) WithContext(ctx context.Context) ORM {
	d.DB = d.DB.WithContext(ctx)
	return &d
}
