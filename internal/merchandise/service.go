package merchandise

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/eventhub-backend/pkg/db"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/pagination"
	"github.com/angelmondragon/eventhub-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	notFoundMessage   = "merchandise not found"
	referencedMessage = "merchandise is referenced by cart items"
)

// Service exposes catalogue management.
type Service interface {
	Create(ctx context.Context, req CreateMerchandiseRequest) (*MerchandiseDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*MerchandiseDTO, error)
	List(ctx context.Context, params pagination.Params) (*pagination.Page[MerchandiseDTO], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateMerchandiseRequest) (*MerchandiseDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("merchandise repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, req CreateMerchandiseRequest) (*MerchandiseDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if req.Price == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}
	priceCents, err := parsePrice(*req.Price)
	if err != nil {
		return nil, err
	}
	stock := 0
	if req.Stock != nil {
		stock = *req.Stock
	}
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}

	created, err := s.repo.Create(ctx, &models.Merchandise{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		PriceCents:  priceCents,
		Stock:       stock,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create merchandise")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MerchandiseDTO, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(m), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*pagination.Page[MerchandiseDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list merchandise")
	}

	dtos := make([]MerchandiseDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	page := pagination.NewPage(dtos, params.Limit, func(m MerchandiseDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &page, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateMerchandiseRequest) (*MerchandiseDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	columns := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		columns["name"] = name
	}
	if req.Description != nil {
		columns["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		priceCents, err := parsePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		columns["price_cents"] = priceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		columns["stock"] = *req.Stock
	}

	updated, err := s.repo.Update(ctx, id, columns)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update merchandise")
	}
	return FromModel(updated), nil
}

// Delete refuses to remove merchandise that any cart item still references.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	refs, err := s.repo.CountCartReferences(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart references")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, referencedMessage)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, referencedMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete merchandise")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Merchandise, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load merchandise")
	}
	return m, nil
}

func parsePrice(price decimal.Decimal) (int64, error) {
	cents, err := types.ParseMoney(price)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price "+err.Error())
	}
	return cents, nil
}
