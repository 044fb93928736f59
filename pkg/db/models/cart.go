package models

import (
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	"github.com/google/uuid"
)

// Cart is a user's shopping basket. Once completed or canceled it doubles as
// the order record.
type Cart struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CheckoutSessionID *string          `gorm:"column:checkout_session_id;index"`
	PaymentIntentID   *string          `gorm:"column:payment_intent_id"`
	CheckedOutAt      *time.Time       `gorm:"column:checked_out_at"`
	CompletedAt       *time.Time       `gorm:"column:completed_at"`
	CanceledAt        *time.Time       `gorm:"column:canceled_at"`
	Items             []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalCents sums the snapshotted line amounts.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.LineTotalCents()
	}
	return total
}
