// Package config provides environment-backed runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. All values come from AETHERQ_-
// prefixed environment variables, with a .env file loaded when present.
type Config struct {
	AppName       string
	Env           string
	LogLevel      string
	DevMode       bool
	Port          int
	DataDir       string // Base directory for the runs database, always absolute
	DefaultSymbol string

	InitialCash   float64
	CommissionBps float64
	SlippageBps   float64

	// BacktestSchedule is a cron expression for the recurring backtest of
	// the default symbol. Empty disables it.
	BacktestSchedule string

	APIKey             string // Read access; empty disables auth
	AdminAPIKey        string // Required for admin endpoints when set
	RateLimitPerMinute int

	LiveBroker LiveBrokerConfig
	Backup     BackupConfig
}

// LiveBrokerConfig holds the live broker adapter settings.
type LiveBrokerConfig struct {
	Endpoint string
	KeyID    string
	Token    string
	Provider string
	DryRun   bool
	Timeout  time.Duration
}

// BackupConfig holds the S3 backup settings. Backups are disabled when the
// bucket is empty. Endpoint and the key pair are optional; when unset the
// standard AWS credential chain is used.
type BackupConfig struct {
	Bucket          string
	Prefix          string
	Schedule        string // cron expression, six fields
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("AETHERQ_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		AppName:       getEnv("AETHERQ_APP_NAME", "AetherQuant"),
		Env:           getEnv("AETHERQ_ENV", "dev"),
		LogLevel:      getEnv("AETHERQ_LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("AETHERQ_DEV_MODE", false),
		Port:          getEnvAsInt("AETHERQ_PORT", 8000),
		DataDir:       absDataDir,
		DefaultSymbol: getEnv("AETHERQ_DEFAULT_SYMBOL", "SPY"),

		InitialCash:   getEnvAsFloat("AETHERQ_INITIAL_CASH", 100_000),
		CommissionBps: getEnvAsFloat("AETHERQ_COMMISSION_BPS", 1.0),
		SlippageBps:   getEnvAsFloat("AETHERQ_SLIPPAGE_BPS", 0.5),

		BacktestSchedule: getEnv("AETHERQ_BACKTEST_SCHEDULE", ""),

		APIKey:             getEnv("AETHERQ_API_KEY", ""),
		AdminAPIKey:        getEnv("AETHERQ_ADMIN_API_KEY", ""),
		RateLimitPerMinute: getEnvAsInt("AETHERQ_RATE_LIMIT_PER_MINUTE", 120),

		LiveBroker: LiveBrokerConfig{
			Endpoint: getEnv("AETHERQ_LIVE_BROKER_ENDPOINT", ""),
			KeyID:    getEnv("AETHERQ_LIVE_BROKER_KEY_ID", ""),
			Token:    getEnv("AETHERQ_LIVE_BROKER_TOKEN", ""),
			Provider: getEnv("AETHERQ_LIVE_BROKER_PROVIDER", "generic-rest"),
			DryRun:   getEnvAsBool("AETHERQ_LIVE_BROKER_DRY_RUN", true),
			Timeout:  time.Duration(getEnvAsInt("AETHERQ_LIVE_BROKER_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Backup: BackupConfig{
			Bucket:          getEnv("AETHERQ_BACKUP_BUCKET", ""),
			Prefix:          getEnv("AETHERQ_BACKUP_PREFIX", "aetherquant-backups"),
			Schedule:        getEnv("AETHERQ_BACKUP_SCHEDULE", "0 0 3 * * *"), // 3 AM daily
			Endpoint:        getEnv("AETHERQ_BACKUP_ENDPOINT", ""),
			AccessKeyID:     getEnv("AETHERQ_BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AETHERQ_BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("AETHERQ_BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants that the core relies on.
func (c *Config) Validate() error {
	if c.InitialCash <= 0 {
		return fmt.Errorf("AETHERQ_INITIAL_CASH must be greater than zero, got %f", c.InitialCash)
	}
	if c.CommissionBps < 0 {
		return fmt.Errorf("AETHERQ_COMMISSION_BPS must be non-negative, got %f", c.CommissionBps)
	}
	if c.SlippageBps < 0 {
		return fmt.Errorf("AETHERQ_SLIPPAGE_BPS must be non-negative, got %f", c.SlippageBps)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("AETHERQ_RATE_LIMIT_PER_MINUTE must be greater than zero, got %d", c.RateLimitPerMinute)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("AETHERQ_PORT must be a valid port, got %d", c.Port)
	}
	return nil
}

// RunsDatabasePath returns the path of the run-history database.
func (c *Config) RunsDatabasePath() string {
	return filepath.Join(c.DataDir, "runs.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
