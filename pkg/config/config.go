package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Checkout      CheckoutConfig
	SMTP          SMTPConfig
	Notifications NotificationsConfig
	Cron          CronConfig
	Metrics       MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Notifications.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EVENTHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"EVENTHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EVENTHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EVENTHUB_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"EVENTHUB_LOG_FORMAT" default:"json"`
	FrontendURL  string `envconfig:"EVENTHUB_FRONTEND_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// FrontendBase returns the frontend URL without a trailing slash.
func (a AppConfig) FrontendBase() string {
	return strings.TrimRight(strings.TrimSpace(a.FrontendURL), "/")
}

type DBConfig struct {
	DSN    string `envconfig:"EVENTHUB_DB_DSN"`
	Driver string `envconfig:"EVENTHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EVENTHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"EVENTHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EVENTHUB_DB_USER"`
	LegacyPassword string `envconfig:"EVENTHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"EVENTHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"EVENTHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EVENTHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EVENTHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EVENTHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EVENTHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"EVENTHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EVENTHUB_REDIS_ADDR"`
	Password     string        `envconfig:"EVENTHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"EVENTHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EVENTHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EVENTHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EVENTHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EVENTHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EVENTHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"EVENTHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"EVENTHUB_JWT_ISSUER" default:"eventhub"`
	ExpirationMinutes      int    `envconfig:"EVENTHUB_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"EVENTHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"EVENTHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"EVENTHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"EVENTHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"EVENTHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"EVENTHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"EVENTHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"EVENTHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"EVENTHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"EVENTHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"EVENTHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"EVENTHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EVENTHUB_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey     string        `envconfig:"EVENTHUB_STRIPE_API_KEY"`
	Secret     string        `envconfig:"EVENTHUB_STRIPE_SECRET"`
	Env        string        `envconfig:"EVENTHUB_STRIPE_ENV" default:"test"`
	Currency   string        `envconfig:"EVENTHUB_STRIPE_CURRENCY" default:"eur"`
	SessionTTL time.Duration `envconfig:"EVENTHUB_STRIPE_SESSION_TTL" default:"30m"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CurrencyCode returns the lower-cased ISO currency used for checkout sessions.
func (s StripeConfig) CurrencyCode() string {
	c := strings.TrimSpace(strings.ToLower(s.Currency))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// CheckoutSessionTTL clamps the session lifetime to the gateway minimum.
func (s StripeConfig) CheckoutSessionTTL() time.Duration {
	if s.SessionTTL < MinCheckoutSessionTTL {
		return MinCheckoutSessionTTL
	}
	return s.SessionTTL
}

type CheckoutConfig struct {
	ReconcileLockTTL time.Duration `envconfig:"EVENTHUB_CHECKOUT_RECONCILE_LOCK_TTL" default:"30s"`
	WebhookEventTTL  time.Duration `envconfig:"EVENTHUB_CHECKOUT_WEBHOOK_EVENT_TTL" default:"720h"`
}

type SMTPConfig struct {
	Host     string `envconfig:"EVENTHUB_SMTP_HOST"`
	Port     int    `envconfig:"EVENTHUB_SMTP_PORT" default:"587"`
	Username string `envconfig:"EVENTHUB_SMTP_USERNAME"`
	Password string `envconfig:"EVENTHUB_SMTP_PASSWORD"`
	From     string `envconfig:"EVENTHUB_SMTP_FROM" default:"no-reply@eventhub.local"`
	FromName string `envconfig:"EVENTHUB_SMTP_FROM_NAME" default:"EventHub"`
}

// Enabled reports whether an SMTP relay is configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type NotificationsConfig struct {
	Workers       int           `envconfig:"EVENTHUB_NOTIFICATIONS_WORKERS" default:"4"`
	RatePerSecond float64       `envconfig:"EVENTHUB_NOTIFICATIONS_RATE_PER_SECOND" default:"3.33"`
	Burst         int           `envconfig:"EVENTHUB_NOTIFICATIONS_BURST" default:"1"`
	QueueSize     int           `envconfig:"EVENTHUB_NOTIFICATIONS_QUEUE_SIZE" default:"64"`
	BatchSize     int           `envconfig:"EVENTHUB_NOTIFICATIONS_BATCH_SIZE" default:"200"`
	SendTimeout   time.Duration `envconfig:"EVENTHUB_NOTIFICATIONS_SEND_TIMEOUT" default:"30s"`
}

func (n NotificationsConfig) validate() error {
	if n.Workers <= 0 {
		return fmt.Errorf("%s must be positive", EnvNotificationsWorkers)
	}
	if n.RatePerSecond <= 0 {
		return fmt.Errorf("%s must be positive", EnvNotificationsRate)
	}
	if n.QueueSize <= 0 {
		return fmt.Errorf("%s must be positive", EnvNotificationsQueueSize)
	}
	return nil
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"EVENTHUB_CRON_INTERVAL" default:"1m"`
	LockTTL        time.Duration `envconfig:"EVENTHUB_CRON_LOCK_TTL" default:"5m"`
	PendingCartTTL time.Duration `envconfig:"EVENTHUB_CRON_PENDING_CART_TTL" default:"35m"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"EVENTHUB_METRICS_ENABLED" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
