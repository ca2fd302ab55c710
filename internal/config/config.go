package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// JWT
	JWTSecret string

	// Simulation cadence
	TickInterval time.Duration
	TicksPerDay  int

	// Economy tunables, all monetary values in minor units (cents)
	BotBudgetPerTick   int64
	LoanCeiling        int64
	LoanDailyRate      float64
	CryptoCreationFee  int64
	CompanyCreationFee int64
	StarterBalance     int64
	StockHoldingCap    float64
	ExchangeReserve    int64
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		TickInterval: getEnvDuration("TICK_INTERVAL", 5*time.Minute),
		TicksPerDay:  int(getEnvInt("TICKS_PER_DAY", 288)),

		BotBudgetPerTick:   getEnvInt("BOT_BUDGET_PER_TICK", 2_500_000),    // $25,000.00
		LoanCeiling:        getEnvInt("LOAN_CEILING", 5_000_000),           // $50,000.00
		LoanDailyRate:      getEnvFloat("LOAN_DAILY_RATE", 0.05),
		CryptoCreationFee:  getEnvInt("CRYPTO_CREATION_FEE", 10_000_000),   // $100,000.00
		CompanyCreationFee: getEnvInt("COMPANY_CREATION_FEE", 1_000_000),   // $10,000.00
		StarterBalance:     getEnvInt("STARTER_BALANCE", 2_500_000),        // $25,000.00
		StockHoldingCap:    float64(getEnvInt("STOCK_HOLDING_CAP", 100_000)),
		ExchangeReserve:    getEnvInt("EXCHANGE_RESERVE", 100_000_000_000), // $1B market-maker float
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %g\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
