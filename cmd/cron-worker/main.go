package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/eventhub-backend/internal/cart"
	"github.com/angelmondragon/eventhub-backend/internal/checkout"
	"github.com/angelmondragon/eventhub-backend/internal/cron"
	"github.com/angelmondragon/eventhub-backend/pkg/config"
	"github.com/angelmondragon/eventhub-backend/pkg/db"
	"github.com/angelmondragon/eventhub-backend/pkg/instance"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"github.com/angelmondragon/eventhub-backend/pkg/metrics"
	"github.com/angelmondragon/eventhub-backend/pkg/migrate"
	"github.com/angelmondragon/eventhub-backend/pkg/redis"
	"github.com/angelmondragon/eventhub-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	checkoutService, err := newCheckoutService(cfg, logg, dbClient, redisClient, stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	pendingJob, err := cron.NewPendingCartReleaseJob(cron.PendingCartReleaseJobParams{
		Logger:     logg,
		Checkout:   checkoutService,
		PendingTTL: cfg.Cron.PendingCartTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending cart job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cron.LockName, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(pendingJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func newCheckoutService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, stripeClient *stripe.Client) (checkout.Service, error) {
	gateway, err := checkout.NewStripeGateway(stripeClient)
	if err != nil {
		return nil, err
	}
	guard, err := checkout.NewReconcileGuard(redisClient, cfg.Checkout.ReconcileLockTTL)
	if err != nil {
		return nil, err
	}
	return checkout.NewService(checkout.ServiceParams{
		CartRepo:    cart.NewRepository(dbClient.DB()),
		TxRunner:    dbClient,
		Gateway:     gateway,
		Guard:       guard,
		Currency:    stripeClient.Currency(),
		SessionTTL:  stripeClient.SessionTTL(),
		FrontendURL: cfg.App.FrontendBase(),
		Metrics:     metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
	})
}
