package config

import "time"

const (
	EnvPrefix = "EVENTHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultCurrency       = "eur"
	MinCheckoutSessionTTL = 30 * time.Minute
)

const (
	EnvAppEnv      = "EVENTHUB_APP_ENV"
	EnvPort        = "EVENTHUB_APP_PORT"
	EnvLogLevel    = "EVENTHUB_LOG_LEVEL"
	EnvLogFormat   = "EVENTHUB_LOG_FORMAT"
	EnvFrontendURL = "EVENTHUB_FRONTEND_URL"

	EnvDBDSN    = "EVENTHUB_DB_DSN"
	EnvDBDriver = "EVENTHUB_DB_DRIVER"
	EnvDBHost   = "EVENTHUB_DB_HOST"
	EnvDBUser   = "EVENTHUB_DB_USER"
	EnvDBName   = "EVENTHUB_DB_NAME"

	EnvRedisURL = "EVENTHUB_REDIS_URL"

	EnvJWTSecret              = "EVENTHUB_JWT_SECRET"
	EnvJWTIssuer              = "EVENTHUB_JWT_ISSUER"
	EnvJWTExpMins             = "EVENTHUB_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "EVENTHUB_REFRESH_TOKEN_TTL_MINUTES"
	EnvStripeSessionTTL       = "EVENTHUB_STRIPE_SESSION_TTL"
	EnvStripeCurrency         = "EVENTHUB_STRIPE_CURRENCY"
	EnvNotificationsWorkers   = "EVENTHUB_NOTIFICATIONS_WORKERS"
	EnvNotificationsRate      = "EVENTHUB_NOTIFICATIONS_RATE_PER_SECOND"
	EnvNotificationsQueueSize = "EVENTHUB_NOTIFICATIONS_QUEUE_SIZE"
	EnvCronPendingCartTTL     = "EVENTHUB_CRON_PENDING_CART_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
