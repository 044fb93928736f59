package enums

import "fmt"

// CartStatus tracks where a cart sits in the checkout lifecycle.
type CartStatus string

const (
	CartStatusActive         CartStatus = "active"
	CartStatusPendingPayment CartStatus = "pending_payment"
	CartStatusCompleted      CartStatus = "completed"
	CartStatusCanceled       CartStatus = "canceled"
)

var validCartStatuses = []CartStatus{
	CartStatusActive,
	CartStatusPendingPayment,
	CartStatusCompleted,
	CartStatusCanceled,
}

// OpenCartStatuses are the statuses a user's current cart may hold.
var OpenCartStatuses = []CartStatus{CartStatusActive, CartStatusPendingPayment}

// ClosedCartStatuses are terminal: the cart is an order now.
var ClosedCartStatuses = []CartStatus{CartStatusCompleted, CartStatusCanceled}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	for _, candidate := range validCartStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsOpen reports whether the cart still belongs to the shopping flow.
func (c CartStatus) IsOpen() bool {
	return c == CartStatusActive || c == CartStatusPendingPayment
}

// AcceptsItems reports whether items may be added or removed.
func (c CartStatus) AcceptsItems() bool {
	return c == CartStatusActive
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	for _, candidate := range validCartStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart status %q", value)
}
