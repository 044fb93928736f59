package events

import (
	"context"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists events.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, ev *models.Event) (*models.Event, error) {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var ev models.Event
	if err := r.db.WithContext(ctx).First(&ev, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// List returns events ordered by start time; private ones only when asked for.
func (r *Repository) List(ctx context.Context, includePrivate bool) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Order("starts_at ASC").Order("id ASC")
	if !includePrivate {
		query = query.Where("is_public = ?", true)
	}
	var rows []models.Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Save writes every mutable column of ev, including zero values.
func (r *Repository) Save(ctx context.Context, ev *models.Event) error {
	return r.db.WithContext(ctx).
		Model(&models.Event{ID: ev.ID}).
		Select("title", "description", "location", "starts_at", "ends_at", "is_public", "updated_at").
		Updates(ev).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Event{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
