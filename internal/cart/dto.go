package cart

import (
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	"github.com/angelmondragon/eventhub-backend/pkg/types"
	"github.com/google/uuid"
)

// AddItemRequest is the body of POST /cart.
type AddItemRequest struct {
	MerchandiseID *uuid.UUID `json:"merchandiseId" validate:"required"`
	Quantity      *int       `json:"quantity" validate:"required"`
}

// MerchandiseSummary is the catalogue data shown next to a cart line.
type MerchandiseSummary struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       types.Money `json:"price"`
	Stock       int         `json:"stock"`
}

// CartItemView is one cart line priced at its add-time snapshot.
type CartItemView struct {
	ID            uuid.UUID           `json:"id"`
	MerchandiseID uuid.UUID           `json:"merchandise_id"`
	Quantity      int                 `json:"quantity"`
	UnitPrice     types.Money         `json:"unit_price"`
	LineTotal     types.Money         `json:"line_total"`
	Merchandise   *MerchandiseSummary `json:"merchandise,omitempty"`
}

// CartView is the user's open cart. ID and Status are null when none exists.
type CartView struct {
	ID                *uuid.UUID        `json:"id"`
	Status            *enums.CartStatus `json:"status"`
	CheckoutSessionID *string           `json:"checkout_session_id,omitempty"`
	Items             []CartItemView    `json:"items"`
	Subtotal          types.Money       `json:"subtotal"`
}

// OrderView is a closed cart presented as an order.
type OrderView struct {
	ID          uuid.UUID        `json:"id"`
	Status      enums.CartStatus `json:"status"`
	Total       types.Money      `json:"total"`
	Currency    string           `json:"currency"`
	Items       []CartItemView   `json:"items"`
	PaymentID   *string          `json:"payment_id,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CanceledAt  *time.Time       `json:"canceled_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// EmptyView is returned when the user has no open cart.
func EmptyView() *CartView {
	return &CartView{Items: []CartItemView{}, Subtotal: types.MoneyFromCents(0)}
}

// NewCartView renders a cart with its items.
func NewCartView(c *models.Cart) *CartView {
	if c == nil {
		return EmptyView()
	}
	id := c.ID
	status := c.Status
	return &CartView{
		ID:                &id,
		Status:            &status,
		CheckoutSessionID: c.CheckoutSessionID,
		Items:             ItemViews(c.Items),
		Subtotal:          types.MoneyFromCents(c.TotalCents()),
	}
}

// NewOrderView renders a closed cart as an order.
func NewOrderView(c *models.Cart, currency string) OrderView {
	return OrderView{
		ID:          c.ID,
		Status:      c.Status,
		Total:       types.MoneyFromCents(c.TotalCents()),
		Currency:    currency,
		Items:       ItemViews(c.Items),
		PaymentID:   c.PaymentIntentID,
		CompletedAt: c.CompletedAt,
		CanceledAt:  c.CanceledAt,
		CreatedAt:   c.CreatedAt,
	}
}

func ItemViews(items []models.CartItem) []CartItemView {
	out := make([]CartItemView, 0, len(items))
	for _, item := range items {
		view := CartItemView{
			ID:            item.ID,
			MerchandiseID: item.MerchandiseID,
			Quantity:      item.Quantity,
			UnitPrice:     types.MoneyFromCents(item.UnitPriceCents),
			LineTotal:     types.MoneyFromCents(item.LineTotalCents()),
		}
		if m := item.Merchandise; m != nil {
			view.Merchandise = &MerchandiseSummary{
				ID:          m.ID,
				Name:        m.Name,
				Description: m.Description,
				Price:       types.MoneyFromCents(m.PriceCents),
				Stock:       m.Stock,
			}
		}
		out = append(out, view)
	}
	return out
}
