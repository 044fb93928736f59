package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/eventhub-backend/internal/cart"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"github.com/angelmondragon/eventhub-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrNoPaymentFound      = errors.New("no payment found for session")
	ErrSessionMismatch     = errors.New("checkout session does not match cart")
)

// Checkout transitioned recorded in metrics.
const (
	TransitionSessionCreated = "session_created"
	TransitionCompleted      = "completed"
	TransitionRefunded       = "refunded"
	TransitionReleased       = "released"
	TransitionExpired        = "expired"
)

// Service drives a cart through payment.
type Service interface {
	CreateCheckoutSession(ctx context.Context, userID, cartID uuid.UUID) (*SessionResult, error)
	HandlePaymentSuccess(ctx context.Context, sessionID string) (*OrderSummary, error)
	RefundPayment(ctx context.Context, sessionID string) (*RefundSummary, error)
	GetPaymentDetails(ctx context.Context, requester Requester, sessionID string) (*PaymentDetails, error)
	HandleCancel() CancelResult
	ReleaseCheckout(ctx context.Context, userID uuid.UUID) (*cart.CartView, error)
	ExpireSession(ctx context.Context, sessionID string) error
	ReleaseStalePending(ctx context.Context, checkedOutBefore time.Time, after *cart.StaleCursor, limit int) (*StaleSweep, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reconcileGuard interface {
	Acquire(ctx context.Context, sessionID string) (func(), error)
}

type transitionRecorder interface {
	Inc(transition string)
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	CartRepo    cart.CartRepository
	TxRunner    txRunner
	Gateway     Gateway
	Guard       reconcileGuard
	Currency    string
	SessionTTL  time.Duration
	FrontendURL string
	Metrics     transitionRecorder
	Logger      *logger.Logger
}

type service struct {
	repo        cart.CartRepository
	tx          txRunner
	gateway     Gateway
	guard       reconcileGuard
	currency    string
	sessionTTL  time.Duration
	frontendURL string
	metrics     transitionRecorder
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("reconcile guard required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = config.DefaultCurrency
	}
	ttl := params.SessionTTL
	if ttl < config.MinCheckoutSessionTTL {
		ttl = config.MinCheckoutSessionTTL
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:        params.CartRepo,
		tx:          params.TxRunner,
		gateway:     params.Gateway,
		guard:       params.Guard,
		currency:    currency,
		sessionTTL:  ttl,
		frontendURL: strings.TrimRight(strings.TrimSpace(params.FrontendURL), "/"),
		metrics:     params.Metrics,
		logg:        logg,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateCheckoutSession(ctx context.Context, userID, cartID uuid.UUID) (*SessionResult, error) {
	c, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notOwned()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if c.UserID != userID {
		return nil, notOwned()
	}
	if !c.Status.IsOpen() {
		return nil, closed()
	}
	if len(c.Items) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, cart.ErrCartEmpty, cart.ErrCartEmpty.Error())
	}

	ctx = s.logg.WithCartID(ctx, c.ID.String())
	if c.Status == enums.CartStatusPendingPayment && c.CheckoutSessionID != nil {
		if err := s.abandonSession(ctx, *c.CheckoutSessionID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	sess, err := s.gateway.CreateSession(ctx, SessionRequest{
		CartID:     c.ID,
		UserID:     c.UserID,
		Currency:   s.currency,
		Lines:      lineItems(c.Items),
		SuccessURL: s.frontendURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.frontendURL + "/payment/cancel",
		ExpiresAt:  now.Add(s.sessionTTL),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	sealed, err := s.repo.Transition(ctx, c.ID, enums.OpenCartStatuses, map[string]any{
		"status":              enums.CartStatusPendingPayment,
		"checkout_session_id": sess.ID,
		"checked_out_at":      now,
	})
	if err != nil {
		s.expireBestEffort(ctx, sess.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal cart")
	}
	if !sealed {
		s.expireBestEffort(ctx, sess.ID)
		return nil, closed()
	}

	s.record(TransitionSessionCreated)
	s.logg.Info(s.logg.WithSessionID(ctx, sess.ID), "checkout session created")
	return &SessionResult{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *service) HandlePaymentSuccess(ctx context.Context, sessionID string) (*OrderSummary, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, sessionLookupErr(err)
	}
	if !state.Paid() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrPaymentNotCompleted, ErrPaymentNotCompleted.Error())
	}
	cartID, ok := state.CartID()
	if !ok {
		return nil, cartNotFound()
	}

	var (
		completed    *models.Cart
		transitioned bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := loadCart(ctx, repo, cartID)
		if err != nil {
			return err
		}
		switch c.Status {
		case enums.CartStatusCanceled:
			return closed()
		case enums.CartStatusCompleted:
			if c.CheckoutSessionID != nil && *c.CheckoutSessionID != sessionID {
				return sessionMismatch()
			}
			completed = c
			return nil
		}
		if state.AmountTotal != c.TotalCents() {
			return sessionMismatch()
		}

		now := s.now()
		changed, err := repo.Transition(ctx, c.ID, enums.OpenCartStatuses, map[string]any{
			"status":              enums.CartStatusCompleted,
			"payment_intent_id":   state.PaymentIntentID,
			"checkout_session_id": sessionID,
			"completed_at":        now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete cart")
		}
		if !changed {
			return closed()
		}
		c.Status = enums.CartStatusCompleted
		c.PaymentIntentID = &state.PaymentIntentID
		c.CompletedAt = &now
		completed = c
		transitioned = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionMismatch) {
			s.logg.Error(s.logg.WithFields(ctx, map[string]any{
				"session_id":        sessionID,
				"cart_id":           cartID.String(),
				"payment_intent_id": state.PaymentIntentID,
				"amount_total":      state.AmountTotal,
			}), "paid session not applied to cart", err)
		}
		return nil, err
	}

	if transitioned {
		s.record(TransitionCompleted)
	}
	paymentID := state.PaymentIntentID
	if completed.PaymentIntentID != nil && *completed.PaymentIntentID != "" {
		paymentID = *completed.PaymentIntentID
	}
	return &OrderSummary{
		OrderID:   completed.ID,
		Status:    completed.Status,
		Total:     types.MoneyFromCents(completed.TotalCents()),
		Currency:  s.currency,
		Items:     cart.ItemViews(completed.Items),
		PaymentID: paymentID,
	}, nil
}

func (s *service) RefundPayment(ctx context.Context, sessionID string) (*RefundSummary, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, sessionLookupErr(err)
	}
	if state.PaymentIntentID == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrNoPaymentFound, ErrNoPaymentFound.Error())
	}
	cartID, ok := state.CartID()
	if !ok {
		return nil, cartNotFound()
	}
	c, err := loadCart(ctx, s.repo, cartID)
	if err != nil {
		return nil, err
	}
	if c.Status == enums.CartStatusCanceled {
		return nil, closed()
	}

	refunded, err := s.gateway.Refund(ctx, state.PaymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund payment")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		changed, err := repo.Transition(ctx, c.ID, []enums.CartStatus{
			enums.CartStatusActive, enums.CartStatusPendingPayment, enums.CartStatusCompleted,
		}, map[string]any{
			"status":            enums.CartStatusCanceled,
			"payment_intent_id": state.PaymentIntentID,
			"canceled_at":       s.now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel cart")
		}
		if !changed {
			return closed()
		}
		for _, item := range c.Items {
			if err := repo.ReleaseStock(ctx, item.MerchandiseID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
			}
		}
		return nil
	})
	if err != nil {
		s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "refund issued but cart not canceled", err)
		return nil, err
	}

	s.record(TransitionRefunded)
	return &RefundSummary{
		RefundID: refunded.ID,
		Status:   refunded.Status,
		Amount:   types.MoneyFromCents(refunded.Amount),
	}, nil
}

func (s *service) GetPaymentDetails(ctx context.Context, requester Requester, sessionID string) (*PaymentDetails, error) {
	state, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, sessionLookupErr(err)
	}
	if !requester.IsAdmin {
		owner, ok := state.UserID()
		if !ok || owner != requester.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
		}
	}
	currency := state.Currency
	if currency == "" {
		currency = s.currency
	}
	return &PaymentDetails{
		SessionID:     state.ID,
		PaymentStatus: state.PaymentStatus,
		AmountTotal:   types.MoneyFromCents(state.AmountTotal),
		Currency:      currency,
	}, nil
}

func (s *service) HandleCancel() CancelResult {
	return CancelResult{Message: cancelMessage}
}

// ReleaseCheckout abandons the caller's pending checkout and reopens the cart.
func (s *service) ReleaseCheckout(ctx context.Context, userID uuid.UUID) (*cart.CartView, error) {
	c, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cart.EmptyView(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load open cart")
	}
	if c.Status == enums.CartStatusPendingPayment {
		if c.CheckoutSessionID != nil {
			if err := s.abandonSession(ctx, *c.CheckoutSessionID); err != nil {
				return nil, err
			}
		}
		if err := s.reopen(ctx, c.ID); err != nil {
			return nil, err
		}
		s.record(TransitionReleased)
		c, err = s.repo.FindByID(ctx, c.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
	}
	return cart.NewCartView(c), nil
}

// ExpireSession reopens the cart tied to a session the gateway let lapse.
// Unknown sessions are ignored.
func (s *service) ExpireSession(ctx context.Context, sessionID string) error {
	c, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart by session")
	}
	if c.Status != enums.CartStatusPendingPayment {
		return nil
	}
	if err := s.reopen(ctx, c.ID); err != nil {
		return err
	}
	s.record(TransitionExpired)
	return nil
}

// ReleaseStalePending settles one page of carts left in pending payment past
// the cutoff: paid sessions are completed, the rest are expired and reopened.
// Carts that fail are skipped so the returned cursor always moves past the page.
func (s *service) ReleaseStalePending(ctx context.Context, checkedOutBefore time.Time, after *cart.StaleCursor, limit int) (*StaleSweep, error) {
	carts, err := s.repo.ListStalePending(ctx, checkedOutBefore, after, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale carts")
	}

	sweep := &StaleSweep{Scanned: len(carts)}
	var errs error
	for _, c := range carts {
		if err := s.settleStale(ctx, c); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", c.ID, err))
			continue
		}
		sweep.Settled++
	}
	if n := len(carts); n > 0 {
		last := carts[n-1]
		next := &cart.StaleCursor{ID: last.ID}
		if last.CheckedOutAt != nil {
			next.CheckedOutAt = *last.CheckedOutAt
		}
		sweep.Next = next
	}
	return sweep, errs
}

func (s *service) settleStale(ctx context.Context, c models.Cart) error {
	if c.CheckoutSessionID != nil {
		sessionID := *c.CheckoutSessionID
		state, err := s.gateway.GetSession(ctx, sessionID)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "stale cart references unknown checkout session")
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve checkout session")
		case state.Paid():
			_, err := s.HandlePaymentSuccess(ctx, sessionID)
			return err
		default:
			s.expireBestEffort(ctx, sessionID)
		}
	}
	if err := s.reopen(ctx, c.ID); err != nil {
		return err
	}
	s.record(TransitionReleased)
	return nil
}

func (s *service) reopen(ctx context.Context, cartID uuid.UUID) error {
	_, err := s.repo.Transition(ctx, cartID, []enums.CartStatus{enums.CartStatusPendingPayment}, map[string]any{
		"status":              enums.CartStatusActive,
		"checkout_session_id": nil,
		"checked_out_at":      nil,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reopen cart")
	}
	return nil
}

func (s *service) lock(ctx context.Context, sessionID string) (func(), error) {
	release, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrReconcileInProgress) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, ErrReconcileInProgress.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire reconcile lock")
	}
	return release, nil
}

// abandonSession expires a session the cart is moving away from. A session
// that was already paid keeps the cart locked until the payment is reconciled.
func (s *service) abandonSession(ctx context.Context, sessionID string) error {
	state, err := s.gateway.GetSession(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return sessionLookupErr(err)
	}
	if state.Paid() {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, cart.ErrCartLocked, "payment already completed for this cart")
	}
	s.expireBestEffort(ctx, sessionID)
	return nil
}

func (s *service) expireBestEffort(ctx context.Context, sessionID string) {
	if err := s.gateway.ExpireSession(ctx, sessionID); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"session_id": sessionID, "error": err.Error()}), "expire checkout session failed")
	}
}

func (s *service) record(transition string) {
	if s.metrics != nil {
		s.metrics.Inc(transition)
	}
}

func loadCart(ctx context.Context, repo cart.CartRepository, id uuid.UUID) (*models.Cart, error) {
	c, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cartNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return c, nil
}

func lineItems(items []models.CartItem) []LineItem {
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		line := LineItem{
			UnitAmount: item.UnitPriceCents,
			Quantity:   int64(item.Quantity),
		}
		if item.Merchandise != nil {
			line.Name = item.Merchandise.Name
			line.Description = item.Merchandise.Description
		}
		if line.Name == "" {
			line.Name = "Item " + item.MerchandiseID.String()
		}
		lines = append(lines, line)
	}
	return lines
}

func notOwned() error {
	return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, cart.ErrCartNotOwned, cart.ErrCartNotOwned.Error())
}

func closed() error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, cart.ErrCartClosed, cart.ErrCartClosed.Error())
}

func sessionLookupErr(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, ErrSessionNotFound.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve checkout session")
}

func sessionMismatch() error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrSessionMismatch, ErrSessionMismatch.Error())
}

func cartNotFound() error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, cart.ErrCartNotFound, cart.ErrCartNotFound.Error())
}
