package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/eventhub-backend/api/middleware"
	"github.com/angelmondragon/eventhub-backend/internal/auth"
	"github.com/angelmondragon/eventhub-backend/internal/cart"
	"github.com/angelmondragon/eventhub-backend/internal/checkout"
	"github.com/angelmondragon/eventhub-backend/internal/events"
	"github.com/angelmondragon/eventhub-backend/internal/users"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eventhub-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func asUser(req *http.Request, id uuid.UUID, admin bool) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), id, admin))
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, stubPinger{}, stubPinger{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-EventHub-Env"))

	rec = httptest.NewRecorder()
	HealthReady(cfg, stubPinger{}, stubPinger{err: errors.New("down")}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeDependency), decode(t, rec).Error.Code)
}

func TestAuthRegisterReturnsCreatedWithToken(t *testing.T) {
	svc := &stubAuthService{resp: &auth.TokenResponse{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}}
	handler := AuthRegister(stubRegisterService{}, svc, nil)

	body := `{"email":"fan@example.com","username":"fan","password":"Secret123!"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "access", rec.Header().Get(tokenHeader))
	assert.Equal(t, "fan@example.com", svc.lastLogin.Email)
}

func TestAuthRegisterPropagatesConflict(t *testing.T) {
	reg := stubRegisterService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")}
	handler := AuthRegister(reg, &stubAuthService{}, nil)

	body := `{"email":"fan@example.com","username":"fan","password":"Secret123!"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already registered", decode(t, rec).Error.Message)
}

func TestAuthLoginRejectsUnknownFields(t *testing.T) {
	handler := AuthLogin(&stubAuthService{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.co","password":"x","extra":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthLogoutUsesAuthorizationHeader(t *testing.T) {
	svc := &stubAuthService{}
	handler := AuthLogout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tok", svc.lastLogout.AccessToken)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartAddItemValidatesBody(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAddItem(svc, nil)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/cart", bytes.NewBufferString(`{"quantity":1}`)), userID, false))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.addCalls)

	merchID := uuid.New()
	body := `{"merchandiseId":"` + merchID.String() + `","quantity":2}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/cart", bytes.NewBufferString(body)), userID, false))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, svc.addCalls)
	assert.Equal(t, merchID, svc.lastMerch)
	assert.Equal(t, 2, svc.lastQty)
}

func TestCartFetchRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	CartFetch(&stubCartService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartRemoveItemParsesParam(t *testing.T) {
	svc := &stubCartService{}
	router := chi.NewRouter()
	router.Delete("/cart/{itemId}", CartRemoveItem(svc, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/cart/not-a-uuid", nil), uuid.New(), false))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	itemID := uuid.New()
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/cart/"+itemID.String(), nil), uuid.New(), false))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, itemID, svc.lastItem)
}

func TestCheckoutCreateFallsBackToOpenCart(t *testing.T) {
	cartID := uuid.New()
	carts := &stubCartService{view: &cart.CartView{ID: &cartID}}
	svc := &stubCheckoutService{}
	handler := CheckoutCreate(svc, carts, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/checkout", nil), uuid.New(), false))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, cartID, svc.lastCart)

	explicit := uuid.New()
	rec = httptest.NewRecorder()
	body := `{"cartId":"` + explicit.String() + `"}`
	handler.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(body)), uuid.New(), false))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, explicit, svc.lastCart)
}

func TestCheckoutCreateWithoutOpenCart(t *testing.T) {
	handler := CheckoutCreate(&stubCheckoutService{}, &stubCartService{view: cart.EmptyView()}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/checkout", nil), uuid.New(), false))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeBusinessRule), decode(t, rec).Error.Code)
}

func TestPaymentSuccessRequiresSessionID(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := PaymentSuccess(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/success", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/success?session_id=cs_1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cs_1", svc.lastSession)
}

func TestPaymentStatusPassesRequester(t *testing.T) {
	svc := &stubCheckoutService{}
	router := chi.NewRouter()
	router.Get("/payment/status/{sessionId}", PaymentStatus(svc, nil))

	userID := uuid.New()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/payment/status/cs_9", nil), userID, true))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.Requester{UserID: userID, IsAdmin: true}, svc.lastRequester)
	assert.Equal(t, "cs_9", svc.lastSession)
}

func TestPaymentCancelMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	PaymentCancel(&stubCheckoutService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result checkout.CancelResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, "canceled", result.Message)
}

func TestEventsCreateUsesCaller(t *testing.T) {
	svc := &stubEventService{}
	handler := EventsCreate(svc, nil)
	adminID := uuid.New()

	body := `{"title":"Show","starts_at":"2026-11-14T21:00:00Z"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewBufferString(body)), adminID, true))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, adminID, svc.lastCreator)
}

func TestEventsListPassesViewer(t *testing.T) {
	svc := &stubEventService{}
	rec := httptest.NewRecorder()
	EventsList(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.lastViewer.IsAdmin)
	assert.Equal(t, uuid.Nil, svc.lastViewer.UserID)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

type stubRegisterService struct{ err error }

func (s stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: uuid.New(), Email: req.Email, Username: req.Username}, nil
}

type stubAuthService struct {
	resp       *auth.TokenResponse
	lastLogin  auth.LoginRequest
	lastLogout auth.LogoutRequest
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	s.lastLogin = req
	if s.resp == nil {
		return &auth.TokenResponse{}, nil
	}
	return s.resp, nil
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenResponse, error) {
	return s.resp, nil
}

func (s *stubAuthService) Logout(ctx context.Context, req auth.LogoutRequest) error {
	s.lastLogout = req
	return nil
}

type stubCartService struct {
	view      *cart.CartView
	addCalls  int
	lastMerch uuid.UUID
	lastQty   int
	lastItem  uuid.UUID
}

func (s *stubCartService) GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, userID, merchandiseID uuid.UUID, quantity int) (*cart.CartView, error) {
	s.addCalls++
	s.lastMerch = merchandiseID
	s.lastQty = quantity
	return cart.EmptyView(), nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cart.CartView, error) {
	s.lastItem = itemID
	return cart.EmptyView(), nil
}

func (s *stubCartService) GetCartView(ctx context.Context, userID uuid.UUID) (*cart.CartView, error) {
	if s.view == nil {
		return cart.EmptyView(), nil
	}
	return s.view, nil
}

func (s *stubCartService) ListOrders(ctx context.Context, userID uuid.UUID) ([]cart.OrderView, error) {
	return []cart.OrderView{}, nil
}

type stubCheckoutService struct {
	lastCart      uuid.UUID
	lastSession   string
	lastRequester checkout.Requester
}

func (s *stubCheckoutService) CreateCheckoutSession(ctx context.Context, userID, cartID uuid.UUID) (*checkout.SessionResult, error) {
	s.lastCart = cartID
	return &checkout.SessionResult{SessionID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

func (s *stubCheckoutService) HandlePaymentSuccess(ctx context.Context, sessionID string) (*checkout.OrderSummary, error) {
	s.lastSession = sessionID
	return &checkout.OrderSummary{}, nil
}

func (s *stubCheckoutService) RefundPayment(ctx context.Context, sessionID string) (*checkout.RefundSummary, error) {
	s.lastSession = sessionID
	return &checkout.RefundSummary{}, nil
}

func (s *stubCheckoutService) GetPaymentDetails(ctx context.Context, requester checkout.Requester, sessionID string) (*checkout.PaymentDetails, error) {
	s.lastRequester = requester
	s.lastSession = sessionID
	return &checkout.PaymentDetails{SessionID: sessionID}, nil
}

func (s *stubCheckoutService) HandleCancel() checkout.CancelResult {
	return checkout.CancelResult{Message: "canceled"}
}

func (s *stubCheckoutService) ReleaseCheckout(ctx context.Context, userID uuid.UUID) (*cart.CartView, error) {
	return cart.EmptyView(), nil
}

func (s *stubCheckoutService) ExpireSession(ctx context.Context, sessionID string) error {
	return nil
}

func (s *stubCheckoutService) ReleaseStalePending(ctx context.Context, before time.Time, after *cart.StaleCursor, limit int) (*checkout.StaleSweep, error) {
	return &checkout.StaleSweep{}, nil
}

type stubEventService struct {
	lastViewer  events.Viewer
	lastCreator uuid.UUID
}

func (s *stubEventService) List(ctx context.Context, viewer events.Viewer) ([]events.EventDTO, error) {
	s.lastViewer = viewer
	return []events.EventDTO{}, nil
}

func (s *stubEventService) Get(ctx context.Context, viewer events.Viewer, id uuid.UUID) (*events.EventDTO, error) {
	s.lastViewer = viewer
	return &events.EventDTO{ID: id}, nil
}

func (s *stubEventService) Create(ctx context.Context, creatorID uuid.UUID, req events.CreateEventRequest) (*events.EventDTO, error) {
	s.lastCreator = creatorID
	return &events.EventDTO{ID: uuid.New(), Title: req.Title, CreatedByID: creatorID}, nil
}

func (s *stubEventService) Update(ctx context.Context, id uuid.UUID, req events.UpdateEventRequest) (*events.EventDTO, error) {
	return &events.EventDTO{ID: id}, nil
}

func (s *stubEventService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}
