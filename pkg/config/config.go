package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Polymarket API
	PolymarketGammaURL string
	PolymarketCLOBURL  string
	PolymarketDataURL  string
	PolygonRPCURL      string

	// Strategy defaults (mutable at runtime via the strategy API)
	OrderAmountUSD   float64
	PriceThreshold   float64
	CheckWindow      time.Duration
	MonitorInterval  time.Duration
	RedeemInterval   time.Duration

	// Dispatch
	DispatchWorkers     int
	OrderTimeout        time.Duration
	SweepTimeout        time.Duration

	// Account storage
	StorageMode   string // "postgres" or "file"
	AccountsFile  string
	PostgresHost  string
	PostgresPort  string
	PostgresUser  string
	PostgresPass  string
	PostgresDB    string
	PostgresSSL   string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Polymarket API defaults
		PolymarketGammaURL: getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		PolymarketCLOBURL:  getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
		PolymarketDataURL:  getEnvOrDefault("POLYMARKET_DATA_API_URL", "https://data-api.polymarket.com"),
		PolygonRPCURL:      getEnvOrDefault("POLYGON_RPC_URL", "https://polygon-rpc.com"),

		// Strategy defaults
		OrderAmountUSD:  getFloat64OrDefault("ORDER_AMOUNT_USD", 2.0),
		PriceThreshold:  getFloat64OrDefault("PRICE_THRESHOLD", 0.85),
		CheckWindow:     getDurationOrDefault("CHECK_TIME_WINDOW", 2*time.Minute),
		MonitorInterval: getDurationOrDefault("MONITOR_INTERVAL", 3*time.Second),
		RedeemInterval:  getDurationOrDefault("REDEEM_INTERVAL", 30*time.Minute),

		// Dispatch defaults
		DispatchWorkers: getIntOrDefault("DISPATCH_WORKERS", 10),
		OrderTimeout:    getDurationOrDefault("ORDER_TIMEOUT", 30*time.Second),
		SweepTimeout:    getDurationOrDefault("SWEEP_TIMEOUT", 60*time.Second),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "file"),
		AccountsFile: getEnvOrDefault("ACCOUNTS_FILE", "data/accounts.json"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polymarket"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polymarket123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polymarket_fleet"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return fmt.Errorf("POLYMARKET_GAMMA_API_URL cannot be empty")
	}

	if c.PolymarketCLOBURL == "" {
		return fmt.Errorf("POLYMARKET_CLOB_URL cannot be empty")
	}

	if c.PriceThreshold <= 0 || c.PriceThreshold > 1.0 {
		return fmt.Errorf("PRICE_THRESHOLD must be between 0 and 1.0, got %f", c.PriceThreshold)
	}

	if c.DispatchWorkers <= 0 {
		return fmt.Errorf("DISPATCH_WORKERS must be positive, got %d", c.DispatchWorkers)
	}

	if c.StorageMode != "file" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'file' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
