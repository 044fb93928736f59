package cart

import "errors"

// Domain sentinels. Services wrap them with an error code so callers can
// match with errors.Is while clients receive the mapped status.
var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCartNotOwned        = errors.New("cart does not belong to user")
	ErrCartEmpty           = errors.New("cart is empty")
	ErrItemNotFound        = errors.New("cart item not found")
	ErrCartNotFound        = errors.New("cart not found")
	ErrCartLocked          = errors.New("cart is locked while a payment is pending")
	ErrCartClosed          = errors.New("cart is already closed")
	ErrMerchandiseNotFound = errors.New("merchandise not found")
)
