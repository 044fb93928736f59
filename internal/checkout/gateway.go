package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// PaymentStatusPaid is the gateway's payment_status once funds are captured.
	PaymentStatusPaid = "paid"

	metadataCartID = "cartId"
	metadataUserID = "userId"
)

// ErrSessionNotFound is returned by gateways for session ids they do not know.
var ErrSessionNotFound = errors.New("checkout session not found")

// LineItem is one priced line sent to the hosted checkout page. Amounts are
// minor units.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// SessionRequest describes a hosted checkout session for one cart.
type SessionRequest struct {
	CartID     uuid.UUID
	UserID     uuid.UUID
	Currency   string
	Lines      []LineItem
	SuccessURL string
	CancelURL  string
	ExpiresAt  time.Time
}

// Session is the created checkout session.
type Session struct {
	ID  string
	URL string
}

// SessionState is the gateway's current view of a session.
type SessionState struct {
	ID              string
	Status          string
	PaymentStatus   string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}

// Refund is the outcome of a refund request.
type Refund struct {
	ID     string
	Status string
	Amount int64
}

// Gateway is the payment provider surface used by checkout.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*SessionState, error)
	Refund(ctx context.Context, paymentIntentID string) (*Refund, error)
	ExpireSession(ctx context.Context, id string) error
}

// Paid reports whether the session's payment went through.
func (s *SessionState) Paid() bool {
	return s != nil && s.PaymentStatus == PaymentStatusPaid
}

// CartID parses the cart correlation id from the session metadata.
func (s *SessionState) CartID() (uuid.UUID, bool) {
	return metadataUUID(s, metadataCartID)
}

// UserID parses the user correlation id from the session metadata.
func (s *SessionState) UserID() (uuid.UUID, bool) {
	return metadataUUID(s, metadataUserID)
}

func metadataUUID(s *SessionState, key string) (uuid.UUID, bool) {
	if s == nil || s.Metadata == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s.Metadata[key])
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
