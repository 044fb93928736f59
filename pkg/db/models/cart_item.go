package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem holds a reserved quantity and the unit price captured when it was added.
type CartItem struct {
	ID             uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID    `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_merchandise"`
	MerchandiseID  uuid.UUID    `gorm:"column:merchandise_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_merchandise"`
	Merchandise    *Merchandise `gorm:"foreignKey:MerchandiseID"`
	Cart           *Cart        `gorm:"foreignKey:CartID"`
	Quantity       int          `gorm:"column:quantity;not null"`
	UnitPriceCents int64        `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (i CartItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}
