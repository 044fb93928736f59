package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence operations for carts, their items and the
// stock they reserve.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(q *gorm.DB) *gorm.DB {
			return q.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Items.Merchandise")
}

// FindOpenByUser loads the user's active or pending cart with items expanded.
func (r *Repository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := withItems(r.db.WithContext(ctx)).
		Where("user_id = ? AND status IN ?", userID, enums.OpenCartStatuses).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := withItems(r.db.WithContext(ctx)).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	if err := withItems(r.db.WithContext(ctx)).First(&cart, "checkout_session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts the cart under a savepoint so a unique violation leaves the
// surrounding transaction usable for a re-read.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	err := r.db.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return sp.Omit("Items").Create(cart).Error
	})
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

// Transition applies updates only when the cart is currently in one of the
// from statuses. It reports whether a row changed.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from []enums.CartStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListClosedByUser returns completed and canceled carts, newest first.
func (r *Repository) ListClosedByUser(ctx context.Context, userID uuid.UUID) ([]models.Cart, error) {
	var carts []models.Cart
	err := withItems(r.db.WithContext(ctx)).
		Where("user_id = ? AND status IN ?", userID, enums.ClosedCartStatuses).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}

// ListStalePending returns pending carts whose checkout began before the
// cutoff, starting after the given cursor.
func (r *Repository) ListStalePending(ctx context.Context, checkedOutBefore time.Time, after *StaleCursor, limit int) ([]models.Cart, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND checked_out_at < ?", enums.CartStatusPendingPayment, checkedOutBefore)
	if after != nil {
		query = query.Where("(checked_out_at > ?) OR (checked_out_at = ? AND id > ?)", after.CheckedOutAt, after.CheckedOutAt, after.ID)
	}

	var carts []models.Cart
	err := query.
		Order("checked_out_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}

// FindItem loads an item together with its cart.
func (r *Repository) FindItem(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Preload("Cart").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) FindItemByMerchandise(ctx context.Context, cartID, merchandiseID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND merchandise_id = ?", cartID, merchandiseID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit("Cart", "Merchandise").Create(item).Error
}

func (r *Repository) IncrementItem(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Updates(map[string]any{"quantity": gorm.Expr("quantity + ?", delta)}).Error
}

func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", id).Error
}

func (r *Repository) FindMerchandise(ctx context.Context, id uuid.UUID) (*models.Merchandise, error) {
	var m models.Merchandise
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ReserveStock decrements stock only when enough is left. The check and the
// write are one statement, so concurrent reservations cannot oversell.
func (r *Repository) ReserveStock(ctx context.Context, merchandiseID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Merchandise{}).
		Where("id = ? AND stock >= ?", merchandiseID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) ReleaseStock(ctx context.Context, merchandiseID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Merchandise{}).
		Where("id = ?", merchandiseID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}
