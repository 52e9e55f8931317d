package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSessionSecret is the development fallback for SESSION_SECRET
const DefaultSessionSecret = "dev-secret-key"

// Database backends
const (
	BackendGorm = "gorm"
	BackendPgx  = "pgx"
)

// Config holds application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Email     EmailConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Version string
	Debug   bool
	Port    string
	Host    string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL     string
	Backend string
}

// SessionConfig holds the flash cookie settings
type SessionConfig struct {
	Secret string
	// CookieSecure marks flash cookies HTTPS-only. Leave off when TLS ends
	// at a proxy that forwards plain HTTP.
	CookieSecure bool
}

// EmailConfig holds mail transport configuration
type EmailConfig struct {
	SMTPHost       string
	SMTPPort       int
	SenderAddress  string
	SenderPassword string
	OwnerAddress   string
	OwnerName      string
	SiteURL        string
	TimeoutSeconds int
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// TelemetryConfig holds tracing configuration
type TelemetryConfig struct {
	OTLPEndpoint string
	OTLPInsecure bool
	SamplingRate float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	sender := getEnv("SENDER_EMAIL", "")

	config := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "Portfolio"),
			Version: getEnv("APP_VERSION", "1.0.0"),
			Debug:   getEnvAsBool("DEBUG", false),
			Port:    getEnv("PORT", "5000"),
			Host:    getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:     getEnv("DATABASE_URL", "sqlite:///portfolio.db"),
			Backend: strings.ToLower(getEnv("DATABASE_BACKEND", BackendGorm)),
		},
		Session: SessionConfig{
			Secret:       getEnv("SESSION_SECRET", DefaultSessionSecret),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Email: EmailConfig{
			SMTPHost:       getEnv("SMTP_SERVER", "smtp.gmail.com"),
			SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
			SenderAddress:  sender,
			SenderPassword: getEnv("SENDER_PASSWORD", ""),
			OwnerAddress:   getEnv("RECIPIENT_EMAIL", sender),
			OwnerName:      getEnv("OWNER_NAME", "Portfolio Owner"),
			SiteURL:        getEnv("SITE_URL", ""),
			TimeoutSeconds: getEnvAsInt("SMTP_TIMEOUT_SECONDS", 15),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SamplingRate: getEnvAsFloat("OTEL_SAMPLING_RATE", 1.0),
		},
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// validateConfig validates the configuration. Incomplete mail settings are
// allowed: notification degrades to a warning at submission time.
func validateConfig(cfg *Config) error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	switch cfg.Database.Backend {
	case BackendGorm:
	case BackendPgx:
		if !cfg.Database.IsPostgres() {
			return fmt.Errorf("DATABASE_BACKEND=pgx requires a postgres DATABASE_URL")
		}
	default:
		return fmt.Errorf("DATABASE_BACKEND must be %q or %q", BackendGorm, BackendPgx)
	}
	if cfg.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET must be set")
	}
	if cfg.Email.SMTPPort <= 0 || cfg.Email.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// IsPostgres checks if the database URL is for PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// GetSQLitePath extracts SQLite database path from URL
func (c *DatabaseConfig) GetSQLitePath() string {
	return strings.TrimPrefix(c.URL, "sqlite:///")
}

// TransportConfigured reports whether every setting needed to open an
// authenticated SMTP session is present.
func (c *EmailConfig) TransportConfigured() bool {
	return c.SMTPHost != "" && c.SenderAddress != "" && c.SenderPassword != "" && c.OwnerAddress != ""
}

// Timeout returns the bounded send timeout
func (c *EmailConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
