package controllers

import (
	"net/http"

	"github.com/angelmondragon/eventhub-backend/api/middleware"
	"github.com/angelmondragon/eventhub-backend/api/responses"
	"github.com/angelmondragon/eventhub-backend/api/validators"
	"github.com/angelmondragon/eventhub-backend/internal/cart"
	"github.com/angelmondragon/eventhub-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
)

const (
	sessionIDParam  = "sessionId"
	maxSessionIDLen = 255
)

// CheckoutCreate opens a payment session. Without a cartId in the body the
// caller's open cart is used.
func CheckoutCreate(svc checkout.Service, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body checkout.CreateSessionRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID := body.CartID
		if cartID == nil {
			view, err := carts.GetCartView(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if view.ID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, cart.ErrCartEmpty, cart.ErrCartEmpty.Error()))
				return
			}
			cartID = view.ID
		}

		result, err := svc.CreateCheckoutSession(r.Context(), userID, *cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutRelease abandons a pending checkout and reopens the cart.
func CheckoutRelease(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.ReleaseCheckout(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// PaymentSuccess is the redirect target after the hosted checkout. It
// reconciles the session synchronously; the webhook may already have done so.
func PaymentSuccess(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID := validators.SanitizeString(r.URL.Query().Get("session_id"), maxSessionIDLen)
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required"))
			return
		}
		order, err := svc.HandlePaymentSuccess(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func PaymentCancel(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.HandleCancel())
	}
}

// PaymentStatus reports the gateway view of a session to its owner or an admin.
func PaymentStatus(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, err := validators.RequiredParam(r, sessionIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		details, err := svc.GetPaymentDetails(r.Context(), checkout.Requester{
			UserID:  userID,
			IsAdmin: middleware.IsAdminFromContext(r.Context()),
		}, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details)
	}
}

// PaymentRefund is admin only.
func PaymentRefund(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := validators.RequiredParam(r, sessionIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refund, err := svc.RefundPayment(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithSessionID(r.Context(), sessionID)
			logg.Info(ctx, "payment refunded")
		}
		responses.WriteSuccess(w, refund)
	}
}
