package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart and
// checkout services.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository

	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	Transition(ctx context.Context, id uuid.UUID, from []enums.CartStatus, updates map[string]any) (bool, error)
	ListClosedByUser(ctx context.Context, userID uuid.UUID) ([]models.Cart, error)
	ListStalePending(ctx context.Context, checkedOutBefore time.Time, after *StaleCursor, limit int) ([]models.Cart, error)

	FindItem(ctx context.Context, id uuid.UUID) (*models.CartItem, error)
	FindItemByMerchandise(ctx context.Context, cartID, merchandiseID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	IncrementItem(ctx context.Context, id uuid.UUID, delta int) error
	DeleteItem(ctx context.Context, id uuid.UUID) error

	FindMerchandise(ctx context.Context, id uuid.UUID) (*models.Merchandise, error)
	ReserveStock(ctx context.Context, merchandiseID uuid.UUID, qty int) (bool, error)
	ReleaseStock(ctx context.Context, merchandiseID uuid.UUID, qty int) error
}

// StaleCursor is the position of the last cart visited by a stale pending
// sweep, ordered by checked_out_at then id.
type StaleCursor struct {
	CheckedOutAt time.Time
	ID           uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
