package config

import (
	"os"
	"strconv"
)

// ApplyEnv overrides config values from SPENDCAST_* environment variables.
func ApplyEnv(cfg *Config) {
	cfg.General.DataDir = getEnv("SPENDCAST_DATA_DIR", cfg.General.DataDir)
	cfg.General.LogLevel = getEnv("SPENDCAST_LOG_LEVEL", cfg.General.LogLevel)
	cfg.Classifier.Backend = getEnv("SPENDCAST_CLASSIFIER_BACKEND", cfg.Classifier.Backend)
	cfg.Budget.Monthly = getEnvFloat("SPENDCAST_MONTHLY_BUDGET", cfg.Budget.Monthly)
	cfg.Daemon.Addr = getEnv("SPENDCAST_DAEMON_ADDR", cfg.Daemon.Addr)
	cfg.Daemon.InboxDir = getEnv("SPENDCAST_INBOX_DIR", cfg.Daemon.InboxDir)
	cfg.Forecast.Workers = getEnvInt("SPENDCAST_FORECAST_WORKERS", cfg.Forecast.Workers)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
