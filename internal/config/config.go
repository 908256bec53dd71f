package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// CRM API. Empty means the in-memory store serves the pipeline.
	CRMAPIURL        string
	PipelineSeedFile string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Payments
	PaymentSettleDelay time.Duration
	PaymentMaxAmount   float64

	// JWT / Auth. An empty secret disables operator login and the write routes.
	JWTSecret            string
	JWTAccessTTL         time.Duration
	OperatorUser         string
	OperatorPasswordHash string

	// Calendar used for "today" in pipeline figures.
	Location *time.Location
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	tz := getEnv("TIMEZONE", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CRMAPIURL:        getEnv("CRM_API_URL", ""),
		PipelineSeedFile: getEnv("PIPELINE_SEED_FILE", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		PaymentSettleDelay: getEnvDuration("PAYMENT_SETTLE_DELAY", 5*time.Second),
		PaymentMaxAmount:   getEnvFloat("PAYMENT_MAX_AMOUNT", 50000),

		JWTSecret:            getEnv("JWT_SECRET", ""),
		JWTAccessTTL:         getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		OperatorUser:         getEnv("OPERATOR_USER", "operador"),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),

		Location: loc,
	}

	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENCY must be at least 1, got %d", cfg.MaxConcurrency)
	}
	if cfg.PaymentMaxAmount <= 0 {
		return nil, fmt.Errorf("PAYMENT_MAX_AMOUNT must be positive, got %v", cfg.PaymentMaxAmount)
	}
	return cfg, nil
}

// AuthEnabled reports whether operator auth can sign tokens.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
