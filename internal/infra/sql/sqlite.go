package sql

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSqliteORM opens (creating if needed) the station database file.
func NewSqliteORM(path string) (ORM, error) {
	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %q: %w", path, err)
	}
	return &DB{DB: gormDB}, nil
}

// NewMemoryORM opens a shared in-memory database, used by tests.
func NewMemoryORM() (ORM, error) {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite in-memory db: %w", err)
	}
	return &DB{DB: gormDB}, nil
}
