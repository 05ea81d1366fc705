// Package config holds all application configuration, loaded from the
// environment with AQYL_HUB_-prefixed variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Sync
	Sync SyncConfig

	// HTTP
	HTTP HTTPConfig

	// Content
	Content ContentConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string      `env:"AQYL_HUB_APP_NAME" envDefault:"aqyl-learning-hub"`
	Environment Environment `env:"AQYL_HUB_ENVIRONMENT" envDefault:"development"`
	Debug       bool        `env:"AQYL_HUB_DEBUG" envDefault:"false"`

	// Graceful shutdown timeout.
	ShutdownTimeout time.Duration `env:"AQYL_HUB_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `env:"AQYL_HUB_DB_HOST" envDefault:"localhost"`
	Port     int    `env:"AQYL_HUB_DB_PORT" envDefault:"5432"`
	User     string `env:"AQYL_HUB_DB_USER" envDefault:"postgres"`
	Password string `env:"AQYL_HUB_DB_PASSWORD" envDefault:""`
	Database string `env:"AQYL_HUB_DB_NAME" envDefault:"aqyl_hub"`
	SSLMode  string `env:"AQYL_HUB_DB_SSLMODE" envDefault:"disable"`

	// Connection pool settings.
	MaxConns        int           `env:"AQYL_HUB_DB_MAX_CONNS" envDefault:"10"`
	MinConns        int           `env:"AQYL_HUB_DB_MIN_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"AQYL_HUB_DB_CONN_MAX_LIFETIME" envDefault:"1h"`

	// InMemory switches the session store to the in-memory implementation.
	// Development and tests only.
	InMemory bool `env:"AQYL_HUB_DB_IN_MEMORY" envDefault:"false"`

	// SessionExpiry is the idle lifetime after which an access code resolves
	// to an expired session. Zero disables expiry. Applied by every store
	// implementation, the cache decorator included.
	SessionExpiry time.Duration `env:"AQYL_HUB_DB_SESSION_EXPIRY" envDefault:"0"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `env:"AQYL_HUB_REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"AQYL_HUB_REDIS_PORT" envDefault:"6379"`
	Password string `env:"AQYL_HUB_REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"AQYL_HUB_REDIS_DB" envDefault:"0"`

	// Enabled toggles the read-through session cache.
	Enabled bool `env:"AQYL_HUB_REDIS_ENABLED" envDefault:"true"`
}

// SyncConfig holds cross-device synchronizer settings.
type SyncConfig struct {
	// Interval between refresh ticks for attached session views.
	Interval time.Duration `env:"AQYL_HUB_SYNC_INTERVAL" envDefault:"30s"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host string `env:"AQYL_HUB_HTTP_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"AQYL_HUB_HTTP_PORT" envDefault:"8080"`

	ReadTimeout  time.Duration `env:"AQYL_HUB_HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"AQYL_HUB_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"AQYL_HUB_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// ContentConfig holds content file locations. Empty paths fall back to the
// built-in Kazakh learning path.
type ContentConfig struct {
	CatalogPath      string `env:"AQYL_HUB_CONTENT_CATALOG" envDefault:""`
	AchievementsPath string `env:"AQYL_HUB_CONTENT_ACHIEVEMENTS" envDefault:""`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("config: unknown environment %q", c.App.Environment)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid http port %d", c.HTTP.Port)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("config: sync interval must be positive")
	}
	if !c.Database.InMemory && c.Database.Host == "" {
		return fmt.Errorf("config: database host is required")
	}
	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}
