package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RUTASUR_APP_ENV" required:"true"`
	Port         string `envconfig:"RUTASUR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RUTASUR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RUTASUR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RUTASUR_DB_DSN"`
	Driver string `envconfig:"RUTASUR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RUTASUR_DB_HOST"`
	LegacyPort     int    `envconfig:"RUTASUR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RUTASUR_DB_USER"`
	LegacyPassword string `envconfig:"RUTASUR_DB_PASSWORD"`
	LegacyName     string `envconfig:"RUTASUR_DB_NAME"`
	LegacySSLMode  string `envconfig:"RUTASUR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RUTASUR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RUTASUR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RUTASUR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RUTASUR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RUTASUR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RUTASUR_REDIS_ADDR"`
	Password     string        `envconfig:"RUTASUR_REDIS_PASSWORD"`
	DB           int           `envconfig:"RUTASUR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RUTASUR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RUTASUR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RUTASUR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RUTASUR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RUTASUR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RUTASUR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RUTASUR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RUTASUR_JWT_EXPIRATION_MINUTES" required:"true"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"RUTASUR_STRIPE_API_KEY"`
	Secret     string `envconfig:"RUTASUR_STRIPE_SECRET"`
	Env        string `envconfig:"RUTASUR_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"RUTASUR_STRIPE_SUCCESS_URL" default:"https://rutasur.app/reservas/confirmada"`
	CancelURL  string `envconfig:"RUTASUR_STRIPE_CANCEL_URL" default:"https://rutasur.app/reservas/cancelada"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	// DepositPercent is the share of the total collected up front for
	// deposit bookings, expressed as a whole percentage.
	DepositPercent int `envconfig:"RUTASUR_CHECKOUT_DEPOSIT_PERCENT" default:"30"`
	// CutoffDays is how many days before departure bookings close.
	CutoffDays      int           `envconfig:"RUTASUR_CHECKOUT_CUTOFF_DAYS" default:"10"`
	RateLimitWindow time.Duration `envconfig:"RUTASUR_CHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitMax    int64         `envconfig:"RUTASUR_CHECKOUT_RATE_LIMIT_MAX" default:"10"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"RUTASUR_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RUTASUR_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
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
