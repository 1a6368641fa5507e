package pg

import (
	"time"
)

// Model is embedded by every table entity.
type Model struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}
