package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/eventhub-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/eventhub-backend/api/controllers/webhooks"
	"github.com/angelmondragon/eventhub-backend/api/middleware"
	"github.com/angelmondragon/eventhub-backend/internal/auth"
	"github.com/angelmondragon/eventhub-backend/internal/cart"
	"github.com/angelmondragon/eventhub-backend/internal/checkout"
	"github.com/angelmondragon/eventhub-backend/internal/events"
	"github.com/angelmondragon/eventhub-backend/internal/merchandise"
	"github.com/angelmondragon/eventhub-backend/internal/users"
	stripewebhook "github.com/angelmondragon/eventhub-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/eventhub-backend/pkg/auth/session"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db/models"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"github.com/angelmondragon/eventhub-backend/pkg/metrics"
	"github.com/google/uuid"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Deps carries everything the HTTP surface needs. Nil services make their
// endpoints answer 500 instead of panicking.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Limiter  rateLimiter
	Sessions session.AccessSessionChecker
	Users    userLoader

	AuthService     auth.Service
	RegisterService auth.RegisterService
	UserService     users.Service
	EventService    events.Service
	MerchService    merchandise.Service
	CartService     cart.Service
	CheckoutService checkout.Service

	StripeSecret  signingSecretProvider
	StripeWebhook webhookcontrollers.StripeWebhookService
	WebhookGuard  *stripewebhook.IdempotencyGuard

	ServerMetrics  *metrics.ServerMetrics
	MetricsHandler http.Handler
}

type signingSecretProvider interface {
	SigningSecret() string
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.ServerMetrics),
		middleware.CORS(cfg.App.FrontendBase()),
	)

	authn := middleware.NewAuthenticator(cfg.JWT, d.Sessions, d.Users, logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.DB, d.Redis, logg))
	})

	if cfg.Metrics.Enabled {
		handler := d.MetricsHandler
		if handler == nil {
			handler = metrics.Handler()
		}
		r.Method(http.MethodGet, "/metrics", handler)
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.StripeWebhook, d.StripeSecret, d.WebhookGuard, logg))
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, d.Limiter, logg)).Post("/register", controllers.AuthRegister(d.RegisterService, d.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.Limiter, logg)).Post("/login", controllers.AuthLogin(d.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(d.AuthService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.With(authn.RequireAuth).Get("/users/me", controllers.UsersMe(d.UserService, logg))

		r.Route("/events", func(r chi.Router) {
			r.With(authn.OptionalAuth).Get("/", controllers.EventsList(d.EventService, logg))
			r.With(authn.OptionalAuth).Get("/{eventId}", controllers.EventsGet(d.EventService, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn.RequireAuth, authn.RequireAdmin)
				r.Post("/", controllers.EventsCreate(d.EventService, logg))
				r.Put("/{eventId}", controllers.EventsUpdate(d.EventService, logg))
				r.Delete("/{eventId}", controllers.EventsDelete(d.EventService, logg))
			})
		})

		r.Route("/merchandise", func(r chi.Router) {
			r.Get("/", controllers.MerchandiseList(d.MerchService, logg))
			r.Get("/{merchandiseId}", controllers.MerchandiseGet(d.MerchService, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn.RequireAuth, authn.RequireAdmin)
				r.Post("/", controllers.MerchandiseCreate(d.MerchService, logg))
				r.Put("/{merchandiseId}", controllers.MerchandiseUpdate(d.MerchService, logg))
				r.Delete("/{merchandiseId}", controllers.MerchandiseDelete(d.MerchService, logg))
			})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authn.RequireAuth)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(d.CartService, logg))
			r.Post("/", controllers.CartAddItem(d.CartService, logg))
			r.Delete("/{itemId}", controllers.CartRemoveItem(d.CartService, logg))
		})

		r.Post("/checkout", controllers.CheckoutCreate(d.CheckoutService, d.CartService, logg))
		r.Delete("/checkout", controllers.CheckoutRelease(d.CheckoutService, logg))
		r.Post("/payment/checkout", controllers.CheckoutCreate(d.CheckoutService, d.CartService, logg))
		r.Get("/payment/status/{sessionId}", controllers.PaymentStatus(d.CheckoutService, logg))
		r.Get("/orders", controllers.OrdersList(d.CartService, logg))

		r.With(authn.RequireAdmin).Post("/payment/refund/{sessionId}", controllers.PaymentRefund(d.CheckoutService, logg))
	})

	r.Get("/payment/success", controllers.PaymentSuccess(d.CheckoutService, logg))
	r.Get("/payment/cancel", controllers.PaymentCancel(d.CheckoutService, logg))

	return r
}
