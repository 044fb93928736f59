package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a scheduled happening announced on the platform.
type Event struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title       string     `gorm:"column:title;not null"`
	Description *string    `gorm:"column:description"`
	Location    *string    `gorm:"column:location"`
	StartsAt    time.Time  `gorm:"column:starts_at;not null;index"`
	EndsAt      *time.Time `gorm:"column:ends_at"`
	IsPublic    bool       `gorm:"column:is_public;not null"`
	CreatedByID uuid.UUID  `gorm:"column:created_by_id;type:uuid;not null"`
	CreatedBy   *User      `gorm:"foreignKey:CreatedByID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
