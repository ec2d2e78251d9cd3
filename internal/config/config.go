package config

import (
	"fmt"

	pkgconfig "github.com/vymjay/aprylo/pkg/config"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Postgres
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"aprylo"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"aprylo_secret"`
	DBName     string `env:"DB_NAME" envDefault:"aprylo"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth
	JWTSecret         string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTAccessExpiryMin int   `env:"JWT_ACCESS_EXPIRY_MINUTES" envDefault:"60"`

	// Payment provider
	PaymentBaseURL string `env:"PAYMENT_BASE_URL" envDefault:"http://localhost:8090"`

	// Cart TTL in hours (default: 30 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"720"`

	// Query cache staleness windows in seconds
	CacheStaleTime int `env:"CACHE_STALE_SECONDS" envDefault:"30"`
	CacheGCTime    int `env:"CACHE_GC_SECONDS" envDefault:"300"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
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
	if c.Environment == "production" && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("at least one Kafka broker is required")
	}
	if c.CacheStaleTime <= 0 || c.CacheGCTime <= 0 {
		return fmt.Errorf("cache windows must be positive")
	}
	return nil
}
