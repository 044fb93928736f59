package merchandise

import (
	"context"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists catalogue entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, m *models.Merchandise) (*models.Merchandise, error) {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Merchandise, error) {
	var m models.Merchandise
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns up to limit rows after the cursor in (created_at, id) order.
func (r *Repository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Merchandise, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Merchandise{}).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Merchandise
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes only the given columns. Stock reservations race with admin
// edits, so callers must leave "stock" out unless they mean to overwrite it.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, columns map[string]any) (*models.Merchandise, error) {
	if len(columns) > 0 {
		err := r.db.WithContext(ctx).
			Model(&models.Merchandise{ID: id}).
			Updates(columns).Error
		if err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

// Delete removes the row and reports whether anything was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Merchandise{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountCartReferences counts cart items still pointing at the merchandise.
func (r *Repository) CountCartReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("merchandise_id = ?", id).
		Count(&count).Error
	return count, err
}
