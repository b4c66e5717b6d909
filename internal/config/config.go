package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Alerts    AlertConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds settings for the PostgreSQL store.
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds token signing options.
type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int
}

// AlertConfig holds settings for the stock alert webhook.
type AlertConfig struct {
	WebhookURL string
	QueueSize  int
}

// SchedulerConfig holds settings for the overdue-debt scan.
type SchedulerConfig struct {
	DebtScanSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			TokenTTLHours: 24,
		},
		Alerts: AlertConfig{
			WebhookURL: os.Getenv("STOCK_ALERT_WEBHOOK_URL"),
			QueueSize:  64,
		},
		Scheduler: SchedulerConfig{
			DebtScanSchedule: getenvWithDefault("DEBT_SCAN_SCHEDULE", "0 6 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL must be provided")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
