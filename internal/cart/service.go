package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns the cart lifecycle up to checkout. Every stock movement runs in
// the same transaction as the cart mutation that causes it.
type Service interface {
	GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, merchandiseID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error)
	GetCartView(ctx context.Context, userID uuid.UUID) (*CartView, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]OrderView, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	currency string
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = config.DefaultCurrency
	}
	return &service{repo: repo, tx: tx, currency: currency}, nil
}

func (s *service) GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := openOrCreate(ctx, s.repo, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load open cart")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, userID, merchandiseID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var cartID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		merch, err := repo.FindMerchandise(ctx, merchandiseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrMerchandiseNotFound, ErrMerchandiseNotFound.Error())
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load merchandise")
		}

		cart, err := openOrCreate(ctx, repo, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load open cart")
		}
		if !cart.Status.AcceptsItems() {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrCartLocked, ErrCartLocked.Error())
		}

		reserved, err := repo.ReserveStock(ctx, merch.ID, quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
		}
		if !reserved {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrInsufficientStock, ErrInsufficientStock.Error()).
				WithDetails(map[string]any{"merchandise_id": merch.ID, "available": merch.Stock})
		}

		existing, err := repo.FindItemByMerchandise(ctx, cart.ID, merch.ID)
		switch {
		case err == nil:
			if err := repo.IncrementItem(ctx, existing.ID, quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item := &models.CartItem{
				CartID:         cart.ID,
				MerchandiseID:  merch.ID,
				Quantity:       quantity,
				UnitPriceCents: merch.PriceCents,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}

		cartID = cart.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.viewByID(ctx, cartID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrItemNotFound, ErrItemNotFound.Error())
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		if item.Cart == nil || item.Cart.UserID != userID {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrCartNotOwned, ErrCartNotOwned.Error())
		}
		if !item.Cart.Status.AcceptsItems() {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrCartLocked, ErrCartLocked.Error())
		}

		if err := repo.ReleaseStock(ctx, item.MerchandiseID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release stock")
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCartView(ctx, userID)
}

func (s *service) GetCartView(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmptyView(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load open cart")
	}
	return NewCartView(cart), nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]OrderView, error) {
	carts, err := s.repo.ListClosedByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderView, 0, len(carts))
	for i := range carts {
		out = append(out, NewOrderView(&carts[i], s.currency))
	}
	return out, nil
}

func (s *service) viewByID(ctx context.Context, cartID uuid.UUID) (*CartView, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return NewCartView(cart), nil
}

// openOrCreate returns the user's open cart, creating an empty active one when
// none exists. A concurrent creator wins through the open-cart unique index
// and this call re-reads its row.
func openOrCreate(ctx context.Context, repo CartRepository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindOpenByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created, err := repo.Create(ctx, &models.Cart{UserID: userID, Status: enums.CartStatusActive})
	if err == nil {
		return created, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, err
	}
	return repo.FindOpenByUser(ctx, userID)
}
