package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Notify   NotifyConfig
	Delivery DeliveryConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/keymint.db"`
}

// AuthConfig holds API authentication configuration. The admin token guards
// every /api/v1 endpoint; the service never starts without one.
type AuthConfig struct {
	AdminToken string `env:"ADMIN_TOKEN"`
}

// NotifyConfig holds redemption notification configuration. An empty token
// disables the Telegram notifier.
type NotifyConfig struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
}

// DeliveryConfig holds storefront delivery configuration.
type DeliveryConfig struct {
	BaseURL  string `env:"DELIVERY_BASE_URL"`
	APIKey   string `env:"DELIVERY_API_KEY"`
	FileShim string `env:"DELIVERY_FILE_SHIM"` // Path to file for testing shim (disables real storefront)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("parsing auth config: %w", err)
	}
	if err := env.Parse(&cfg.Notify); err != nil {
		return nil, fmt.Errorf("parsing notify config: %w", err)
	}
	if err := env.Parse(&cfg.Delivery); err != nil {
		return nil, fmt.Errorf("parsing delivery config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Auth.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}

	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
	}

	// If using the file shim, storefront credentials are not required
	if c.Delivery.FileShim == "" && c.Delivery.BaseURL != "" && c.Delivery.APIKey == "" {
		return fmt.Errorf("DELIVERY_API_KEY is required when DELIVERY_BASE_URL is set")
	}

	return nil
}

// UseFileShim returns true if the file shim should be used instead of the
// real storefront API.
func (c *Config) UseFileShim() bool {
	return c.Delivery.FileShim != ""
}

// DeliveryEnabled returns true if any storefront delivery transport is
// configured.
func (c *Config) DeliveryEnabled() bool {
	return c.Delivery.BaseURL != "" || c.Delivery.FileShim != ""
}
