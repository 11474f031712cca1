// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"VinoStore/internal/persist"
)

const minSecretLen = 32

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Port        int    `env:"PORT" envDefault:"8080"`

	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"720h"`
	MetricsToken string        `env:"METRICS_TOKEN"`

	// Cart and wishlist persistence
	PersistBackend string        `env:"PERSIST_BACKEND" envDefault:"memory"`
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix    string        `env:"REDIS_PREFIX"`
	StateTTL       time.Duration `env:"STATE_TTL" envDefault:"720h"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"storefront.db"`

	// Shared by the postgres state backend, catalog and accounts.
	DatabaseURL string `env:"DATABASE_URL"`

	CatalogBackend string `env:"CATALOG_BACKEND" envDefault:"memory"`
	CatalogSeed    string `env:"CATALOG_SEED"`

	CommerceURL string `env:"COMMERCE_URL" envDefault:"http://localhost:8090"`

	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCatalog reads the subset the catalog-only service needs; it skips
// the session secret check.
func LoadCatalog() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validateCatalog(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) validate() error {
	var errs []error

	if len(c.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required and must be at least %d chars", minSecretLen))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}

	c.PersistBackend = strings.ToLower(c.PersistBackend)
	switch c.PersistBackend {
	case persist.BackendMemory, persist.BackendRedis, persist.BackendSQLite:
	case persist.BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres state backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PERSIST_BACKEND %q", c.PersistBackend))
	}

	if c.SessionIdleTTL <= 0 || c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TTL and SWEEP_INTERVAL must be positive"))
	}
	if c.CommerceURL == "" {
		errs = append(errs, errors.New("COMMERCE_URL is required"))
	}

	errs = append(errs, c.validateCatalog())
	return errors.Join(errs...)
}

func (c *Config) validateCatalog() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	c.CatalogBackend = strings.ToLower(c.CatalogBackend)
	switch c.CatalogBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres catalog")
		}
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.CatalogBackend)
	}
	return nil
}

// UsesPostgres reports whether a database pool should be opened. Customer
// accounts move to postgres whenever DATABASE_URL is set.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}
