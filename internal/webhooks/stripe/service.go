package stripewebhook

import (
	"context"

	"github.com/angelmondragon/eventhub-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
)

type checkoutReconciler interface {
	HandlePaymentSuccess(ctx context.Context, sessionID string) (*checkout.OrderSummary, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

type ServiceParams struct {
	Checkout checkoutReconciler
	Logger   *logger.Logger
}

// Service routes checkout session events into the checkout orchestrator.
type Service struct {
	checkout checkoutReconciler
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{checkout: params.Checkout, logg: logg}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		sessionID, err := sessionIDOf(event)
		if err != nil {
			return err
		}
		// delayed methods complete unpaid and settle with async_payment_succeeded
		if event.GetObjectValue("payment_status") != checkout.PaymentStatusPaid {
			s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "checkout session completed without payment")
			return nil
		}
		_, err = s.checkout.HandlePaymentSuccess(ctx, sessionID)
		return err
	case stripe.EventTypeCheckoutSessionExpired:
		sessionID, err := sessionIDOf(event)
		if err != nil {
			return err
		}
		return s.checkout.ExpireSession(ctx, sessionID)
	default:
		return nil
	}
}

func sessionIDOf(event *stripe.Event) (string, error) {
	id := event.GetObjectValue("id")
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return id, nil
}
