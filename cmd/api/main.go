package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/eventhub-backend/api/routes"
	"github.com/angelmondragon/eventhub-backend/internal/auth"
	"github.com/angelmondragon/eventhub-backend/internal/cart"
	"github.com/angelmondragon/eventhub-backend/internal/checkout"
	"github.com/angelmondragon/eventhub-backend/internal/events"
	"github.com/angelmondragon/eventhub-backend/internal/merchandise"
	"github.com/angelmondragon/eventhub-backend/internal/notifications"
	"github.com/angelmondragon/eventhub-backend/internal/users"
	stripewebhook "github.com/angelmondragon/eventhub-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/eventhub-backend/pkg/auth/session"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db"
	"github.com/angelmondragon/eventhub-backend/pkg/email"
	"github.com/angelmondragon/eventhub-backend/pkg/instance"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"github.com/angelmondragon/eventhub-backend/pkg/metrics"
	"github.com/angelmondragon/eventhub-backend/pkg/migrate"
	"github.com/angelmondragon/eventhub-backend/pkg/redis"
	"github.com/angelmondragon/eventhub-backend/pkg/stripe"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	webhookScope      = "stripe-webhook"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.DefaultRegisterer
	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	exitOnErr(logg, "failed to create auth service", err)

	registerService, err := auth.NewRegisterService(auth.DefaultRegisterParams(dbClient, cfg.Password))
	exitOnErr(logg, "failed to create register service", err)

	userService, err := users.NewService(userRepo)
	exitOnErr(logg, "failed to create user service", err)

	var sender email.Sender = email.NewLogSender(logg)
	if cfg.SMTP.Enabled() {
		smtpSender, err := email.NewSMTPSender(cfg.SMTP, logg)
		exitOnErr(logg, "failed to create smtp sender", err)
		sender = smtpSender
	} else {
		logg.Warn(context.Background(), "smtp not configured, notification emails are only logged")
	}

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Recipients: userRepo,
		Sender:     sender,
		Renderer:   notifications.NewRenderer(cfg.SMTP.FromName, time.UTC),
		Config:     cfg.Notifications,
		Metrics:    metrics.NewNotificationMetrics(registry),
		Logger:     logg,
	})
	exitOnErr(logg, "failed to create notification dispatcher", err)

	eventService, err := events.NewService(events.NewRepository(dbClient.DB()), dispatcher, logg)
	exitOnErr(logg, "failed to create event service", err)

	merchService, err := merchandise.NewService(merchandise.NewRepository(dbClient.DB()))
	exitOnErr(logg, "failed to create merchandise service", err)

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, dbClient, stripeClient.Currency())
	exitOnErr(logg, "failed to create cart service", err)

	gateway, err := checkout.NewStripeGateway(stripeClient)
	exitOnErr(logg, "failed to create payment gateway", err)

	guard, err := checkout.NewReconcileGuard(redisClient, cfg.Checkout.ReconcileLockTTL)
	exitOnErr(logg, "failed to create reconcile guard", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		CartRepo:    cartRepo,
		TxRunner:    dbClient,
		Gateway:     gateway,
		Guard:       guard,
		Currency:    stripeClient.Currency(),
		SessionTTL:  stripeClient.SessionTTL(),
		FrontendURL: cfg.App.FrontendBase(),
		Metrics:     metrics.NewCheckoutMetrics(registry),
		Logger:      logg,
	})
	exitOnErr(logg, "failed to create checkout service", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Checkout: checkoutService,
		Logger:   logg,
	})
	exitOnErr(logg, "failed to create stripe webhook service", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookEventTTL, webhookScope)
	exitOnErr(logg, "failed to create webhook guard", err)

	handler := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Limiter:         redisClient,
		Sessions:        sessionManager,
		Users:           userRepo,
		AuthService:     authService,
		RegisterService: registerService,
		UserService:     userService,
		EventService:    eventService,
		MerchService:    merchService,
		CartService:     cartService,
		CheckoutService: checkoutService,
		StripeSecret:    stripeClient,
		StripeWebhook:   webhookService,
		WebhookGuard:    webhookGuard,
		ServerMetrics:   metrics.NewServerMetrics(registry, "api"),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
		"instance":   instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "shutting down api server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "http shutdown", err)
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logg.Error(ctx, "notification dispatcher did not drain", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func exitOnErr(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
