package models

import (
	"time"

	"github.com/google/uuid"
)

// Merchandise is a sellable catalogue entry. Stock only moves through cart
// reservations, refunds and admin edits.
type Merchandise struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	Stock       int       `gorm:"column:stock;not null;default:0;check:stock >= 0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Merchandise) TableName() string {
	return "merchandise"
}
