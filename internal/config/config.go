package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	App      AppConfig
	DocuSign DocuSignConfig
	Billing  BillingConfig
	Draft    DraftConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AppConfig holds application configuration
type AppConfig struct {
	Environment string
	LogLevel    string
	JWTSecret   string
}

// DocuSignConfig holds e-signature provider configuration.
// When AccountID or APIKey is empty the provider is considered unconfigured
// and contracts fall back to mock envelopes with in-app typed-name signing.
type DocuSignConfig struct {
	BaseURL       string
	AccountID     string
	APIKey        string
	WebhookSecret string
	ReturnURL     string
}

// BillingConfig holds settlement configuration
type BillingConfig struct {
	// PlatformFeeBasisPoints is the platform fee applied to guide fee items,
	// in basis points (250 = 2.5%)
	PlatformFeeBasisPoints int64
	// PaymentDueDays is how many days after full execution the guide fee is due
	PaymentDueDays int
}

// DraftConfig holds completion-draft persistence configuration
type DraftConfig struct {
	ExpiryHours      int // Draft expiry in hours (default: 168)
	ReminderInterval int // Reminder interval in hours (default: 24)
	MaxReminders     int // Maximum reminders to send (default: 7)
	CleanupInterval  int // Cleanup job interval in minutes (default: 60)
}

// New creates a new configuration instance
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnvWithDefault("SERVER_HOST", "0.0.0.0"),
			Port: getEnvWithDefault("SERVER_PORT", "8090"),
		},
		Database: DatabaseConfig{
			Host:     getEnvWithDefault("DB_HOST", "localhost"),
			Port:     getEnvWithDefault("DB_PORT", "5432"),
			User:     getEnvWithDefault("DB_USER", "postgres"),
			Password: getEnvWithDefault("DB_PASSWORD", "postgres"),
			Name:     getEnvWithDefault("DB_NAME", "outfitter_db"),
			SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnvWithDefault("REDIS_HOST", "localhost"),
			Port:     getEnvWithDefault("REDIS_PORT", "6379"),
			Password: getEnvWithDefault("REDIS_PASSWORD", ""),
			DB:       getEnvAsIntWithDefault("REDIS_DB", 0),
		},
		App: AppConfig{
			Environment: getEnvWithDefault("APP_ENV", "development"),
			LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
			JWTSecret:   getEnvWithDefault("JWT_SECRET", ""),
		},
		DocuSign: DocuSignConfig{
			BaseURL:       getEnvWithDefault("DOCUSIGN_BASE_URL", "https://demo.docusign.net/restapi/v2.1"),
			AccountID:     getEnvWithDefault("DOCUSIGN_ACCOUNT_ID", ""),
			APIKey:        getEnvWithDefault("DOCUSIGN_API_KEY", ""),
			WebhookSecret: getEnvWithDefault("DOCUSIGN_WEBHOOK_SECRET", ""),
			ReturnURL:     getEnvWithDefault("DOCUSIGN_RETURN_URL", "http://localhost:3000/contracts/signed"),
		},
		Billing: BillingConfig{
			PlatformFeeBasisPoints: int64(getEnvAsIntWithDefault("PLATFORM_FEE_BASIS_POINTS", 250)),
			PaymentDueDays:         getEnvAsIntWithDefault("PAYMENT_DUE_DAYS", 14),
		},
		Draft: DraftConfig{
			ExpiryHours:      getEnvAsIntWithDefault("DRAFT_EXPIRY_HOURS", 168), // 7 days
			ReminderInterval: getEnvAsIntWithDefault("DRAFT_REMINDER_INTERVAL_HOURS", 24),
			MaxReminders:     getEnvAsIntWithDefault("DRAFT_MAX_REMINDERS", 7),
			CleanupInterval:  getEnvAsIntWithDefault("DRAFT_CLEANUP_INTERVAL_MINS", 60),
		},
	}
}

// getEnvWithDefault gets environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntWithDefault gets environment variable as integer with default fallback
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
