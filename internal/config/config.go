package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all agent configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	LedgerURL string
	StoreName string
	TaxRate   float64
	Database  DatabaseConfig
	Sync      SyncConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// SyncConfig holds synchronization scheduling configuration
type SyncConfig struct {
	AutoSyncEnabled     bool
	AutoSyncInterval    int // seconds between automatic pushes
	PollInterval        int // seconds between reconciliation polls
	SyncOnStartup       bool
	HealthCheckInterval int // seconds between ledger reachability probes
	RequestTimeout      int // seconds per ledger HTTP call
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	ledgerURL := os.Getenv("LEDGER_URL")
	if ledgerURL == "" {
		return nil, fmt.Errorf("LEDGER_URL is required")
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3001"),
		JWTSecret: jwtSecret,
		LedgerURL: ledgerURL,
		StoreName: getEnv("STORE_NAME", "VentaMovil POS"),
		TaxRate:   getEnvFloat("TAX_RATE", 0.16),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "posync"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Sync: SyncConfig{
			AutoSyncEnabled:     getEnv("AUTO_SYNC_ENABLED", "true") == "true",
			AutoSyncInterval:    getEnvInt("AUTO_SYNC_INTERVAL", 300),
			PollInterval:        getEnvInt("POLL_INTERVAL", 600),
			SyncOnStartup:       getEnv("SYNC_ON_STARTUP", "true") == "true",
			HealthCheckInterval: getEnvInt("HEALTH_CHECK_INTERVAL", 30),
			RequestTimeout:      getEnvInt("REQUEST_TIMEOUT", 30),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
