package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Pickup     PickupConfig
	Settlement SettlementConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// PickupConfig holds the tunables of the pickup-code workflow and the
// expiry sweep.
type PickupConfig struct {
	// EncryptionKey is the AES-256 key used for pickup and claim codes.
	// Must be exactly 32 bytes.
	EncryptionKey   string
	MaxCodeAttempts int
	ResendCooldown  time.Duration
	ClaimCodeTTL    time.Duration
	// ExpiryGrace is the tolerance after pickup_window_end during which an
	// order is not yet force-expired.
	ExpiryGrace   time.Duration
	SweepInterval time.Duration
}

// SettlementConfig holds commission and invoicing configuration.
type SettlementConfig struct {
	// DefaultCommissionRate applies when a restaurant has no rate of its own,
	// in percent.
	DefaultCommissionRate decimal.Decimal
	// AutoGenerate enables the weekly background invoice generation job.
	AutoGenerate bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	defaultRate, err := decimal.NewFromString(getEnv("DEFAULT_COMMISSION_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_COMMISSION_RATE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "lastbite"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Pickup: PickupConfig{
			EncryptionKey:   getEnv("PICKUP_CODE_KEY", ""),
			MaxCodeAttempts: getEnvAsInt("PICKUP_CODE_MAX_ATTEMPTS", 5),
			ResendCooldown:  getEnvAsDuration("PICKUP_CODE_RESEND_COOLDOWN", 60*time.Second),
			ClaimCodeTTL:    getEnvAsDuration("CLAIM_CODE_TTL", 5*time.Minute),
			ExpiryGrace:     getEnvAsDuration("ORDER_EXPIRY_GRACE", 10*time.Minute),
			SweepInterval:   getEnvAsDuration("ORDER_SWEEP_INTERVAL", time.Minute),
		},
		Settlement: SettlementConfig{
			DefaultCommissionRate: defaultRate,
			AutoGenerate:          getEnvAsBool("INVOICE_AUTO_GENERATE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if len(c.Pickup.EncryptionKey) != 32 {
		return fmt.Errorf("pickup code key must be exactly 32 bytes, got %d", len(c.Pickup.EncryptionKey))
	}

	if c.Pickup.MaxCodeAttempts < 1 {
		return fmt.Errorf("pickup code max attempts must be at least 1")
	}

	if c.Pickup.ResendCooldown < 0 || c.Pickup.ClaimCodeTTL <= 0 {
		return fmt.Errorf("pickup code durations must be positive")
	}

	if c.Pickup.ExpiryGrace < 0 {
		return fmt.Errorf("order expiry grace cannot be negative")
	}

	if c.Pickup.SweepInterval <= 0 {
		return fmt.Errorf("order sweep interval must be positive")
	}

	if c.Settlement.DefaultCommissionRate.IsNegative() {
		return fmt.Errorf("default commission rate cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
