package stripewebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/eventhub-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	redisclient "github.com/angelmondragon/eventhub-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

type stubReconciler struct {
	paid    []string
	expired []string
	paidErr error
}

func (s *stubReconciler) HandlePaymentSuccess(_ context.Context, sessionID string) (*checkout.OrderSummary, error) {
	s.paid = append(s.paid, sessionID)
	if s.paidErr != nil {
		return nil, s.paidErr
	}
	return &checkout.OrderSummary{}, nil
}

func (s *stubReconciler) ExpireSession(_ context.Context, sessionID string) error {
	s.expired = append(s.expired, sessionID)
	return nil
}

func sessionEvent(eventType stripe.EventType, object map[string]interface{}) *stripe.Event {
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Object: object}}
}

func newTestService(t *testing.T, reconciler *stubReconciler) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Checkout: reconciler})
	require.NoError(t, err)
	return svc
}

func TestHandleEventCompletedPaidReconciles(t *testing.T) {
	reconciler := &stubReconciler{}
	svc := newTestService(t, reconciler)

	err := svc.HandleEvent(context.Background(), sessionEvent(stripe.EventTypeCheckoutSessionCompleted, map[string]interface{}{
		"id":             "cs_test_1",
		"payment_status": "paid",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"cs_test_1"}, reconciler.paid)
}

func TestHandleEventCompletedUnpaidWaits(t *testing.T) {
	reconciler := &stubReconciler{}
	svc := newTestService(t, reconciler)

	err := svc.HandleEvent(context.Background(), sessionEvent(stripe.EventTypeCheckoutSessionCompleted, map[string]interface{}{
		"id":             "cs_test_2",
		"payment_status": "unpaid",
	}))
	require.NoError(t, err)
	assert.Empty(t, reconciler.paid)

	err = svc.HandleEvent(context.Background(), sessionEvent(stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded, map[string]interface{}{
		"id":             "cs_test_2",
		"payment_status": "paid",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"cs_test_2"}, reconciler.paid)
}

func TestHandleEventExpired(t *testing.T) {
	reconciler := &stubReconciler{}
	svc := newTestService(t, reconciler)

	err := svc.HandleEvent(context.Background(), sessionEvent(stripe.EventTypeCheckoutSessionExpired, map[string]interface{}{"id": "cs_test_3"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"cs_test_3"}, reconciler.expired)
}

func TestHandleEventPropagatesReconcileFailure(t *testing.T) {
	reconciler := &stubReconciler{paidErr: pkgerrors.Wrap(pkgerrors.CodeConflict, checkout.ErrReconcileInProgress, "busy")}
	svc := newTestService(t, reconciler)

	err := svc.HandleEvent(context.Background(), sessionEvent(stripe.EventTypeCheckoutSessionCompleted, map[string]interface{}{
		"id":             "cs_test_4",
		"payment_status": "paid",
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, checkout.ErrReconcileInProgress))
}

func TestHandleEventValidation(t *testing.T) {
	svc := newTestService(t, &stubReconciler{})

	err := svc.HandleEvent(context.Background(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.HandleEvent(context.Background(), sessionEvent(stripe.EventTypeCheckoutSessionExpired, map[string]interface{}{}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.HandleEvent(context.Background(), sessionEvent("customer.created", map[string]interface{}{"id": "cus_1"}))
	assert.NoError(t, err)
}

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	raw := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	guard, err := NewIdempotencyGuard(redisclient.NewFromClient(raw), time.Hour, "stripe-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Delete(ctx, "evt_1"))
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = guard.CheckAndMark(ctx, "")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(nil, time.Hour, "x")
	assert.Error(t, err)
}
