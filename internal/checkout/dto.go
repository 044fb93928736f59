package checkout

import (
	"github.com/angelmondragon/eventhub-backend/internal/cart"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	"github.com/angelmondragon/eventhub-backend/pkg/types"
	"github.com/google/uuid"
)

const cancelMessage = "Payment canceled. Your cart is still available."

// CreateSessionRequest optionally names the cart to check out; the caller's
// open cart is used otherwise.
type CreateSessionRequest struct {
	CartID *uuid.UUID `json:"cartId,omitempty"`
}

// StaleSweep reports one page of a stale pending sweep. Next is nil when the
// page was empty.
type StaleSweep struct {
	Scanned int
	Settled int
	Next    *cart.StaleCursor
}

// SessionResult points the client at the hosted payment page.
type SessionResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// OrderSummary is returned once a payment has been reconciled.
type OrderSummary struct {
	OrderID   uuid.UUID           `json:"orderId"`
	Status    enums.CartStatus    `json:"status"`
	Total     types.Money         `json:"total"`
	Currency  string              `json:"currency"`
	Items     []cart.CartItemView `json:"items"`
	PaymentID string              `json:"paymentId"`
}

// RefundSummary reports a processed refund.
type RefundSummary struct {
	RefundID string      `json:"refundId"`
	Status   string      `json:"status"`
	Amount   types.Money `json:"amount"`
}

// PaymentDetails is the gateway's view of a checkout session.
type PaymentDetails struct {
	SessionID     string      `json:"sessionId"`
	PaymentStatus string      `json:"paymentStatus"`
	AmountTotal   types.Money `json:"amountTotal"`
	Currency      string      `json:"currency"`
}

// CancelResult is shown when the shopper backs out of the payment page.
type CancelResult struct {
	Message string `json:"message"`
}

// Requester identifies who is asking for payment details.
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}
