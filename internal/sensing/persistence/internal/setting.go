package internal

import "time"

type Setting struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time
}

func (Setting) TableName() string {
	return "settings"
}

type BaselineState struct {
	ID        uint   `gorm:"primaryKey"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (BaselineState) TableName() string {
	return "baseline_state"
}
