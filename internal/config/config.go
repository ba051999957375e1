package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/config"
)

// Config holds all configuration for the checkout service.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"checkout-service"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout int `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"15"`

	// Storefront backend API
	BackendBaseURL string `env:"BACKEND_BASE_URL" envDefault:"http://localhost:3000/api/v1"`
	BackendTimeout int    `env:"BACKEND_TIMEOUT_SECONDS" envDefault:"15"`

	// JWT verification (shared secret with the storefront backend)
	JWTSecret string `env:"JWT_SECRET,required"`

	// PostgreSQL (checkout session store)
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"checkout"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"checkout_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"checkout_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis (cart store)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	CartTTLHours  int    `env:"CART_TTL_HOURS" envDefault:"168"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Payment verification budget. Interval and attempts are tuned together:
	// their product is the total time a shopper waits for confirmation.
	PollIntervalSeconds   int `env:"POLL_INTERVAL_SECONDS" envDefault:"3"`
	PollMaxAttempts       int `env:"POLL_MAX_ATTEMPTS" envDefault:"60"`
	PollGraceDelaySeconds int `env:"POLL_GRACE_DELAY_SECONDS" envDefault:"2"`

	// Circuit breaker for backend calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load checkout config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.BackendBaseURL); err != nil {
		return fmt.Errorf("invalid BACKEND_BASE_URL %q: %w", c.BackendBaseURL, err)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.PollIntervalSeconds < 1 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be at least 1, got %d", c.PollIntervalSeconds)
	}
	if c.PollMaxAttempts < 1 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be at least 1, got %d", c.PollMaxAttempts)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// PollInterval returns the poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PollGraceDelay returns the post-confirmation hold as a duration.
func (c *Config) PollGraceDelay() time.Duration {
	return time.Duration(c.PollGraceDelaySeconds) * time.Second
}

// CartTTL returns how long an untouched cart survives in Redis.
func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}
