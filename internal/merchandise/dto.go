package merchandise

import (
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MerchandiseDTO is the catalogue entry returned to clients.
type MerchandiseDTO struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       types.Money `json:"price"`
	Stock       int         `json:"stock"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CreateMerchandiseRequest is the admin payload for a new catalogue entry.
type CreateMerchandiseRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       *int             `json:"stock" validate:"required,gte=0"`
}

// UpdateMerchandiseRequest holds optional fields; nil leaves the column untouched.
type UpdateMerchandiseRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

func FromModel(m *models.Merchandise) *MerchandiseDTO {
	if m == nil {
		return nil
	}
	return &MerchandiseDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       types.MoneyFromCents(m.PriceCents),
		Stock:       m.Stock,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
