// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the root service configuration.
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the request store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory | postgres
}

// DatabaseConfig holds Postgres settings (used when store.driver=postgres).
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// NATSConfig holds the event stream settings. Empty URL disables publishing.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// Load reads configuration from environment variables (SERVICE_NAME,
// SERVER_PORT, STORE_DRIVER, DATABASE_URL, NATS_URL, ...) with defaults
// suitable for local development.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("service.name", "dev-approve-flow")
	v.SetDefault("service.version", "dev")
	v.SetDefault("service.environment", "development")

	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("database.url", "")
	v.SetDefault("nats.url", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Store.Driver != StoreMemory && cfg.Store.Driver != StorePostgres {
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.Driver == StorePostgres && cfg.Database.URL == "" {
		return nil, fmt.Errorf("store driver %q requires DATABASE_URL", StorePostgres)
	}

	return &cfg, nil
}
