package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration.
type Config struct {
	DBPath         string
	DBDebug        bool
	LogDiagnostics bool
	MaxFileBytes   int64
}

// LoadConfig loads configuration from a .env file (when present) and the
// environment.
func LoadConfig() *Config {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:       os.Getenv("LUMA_DB_PATH"),
		MaxFileBytes: 5 * 1024 * 1024, // Default value
	}

	if cfg.DBPath == "" {
		cfg.DBPath = ".luma/luma.db"
	}

	if debugStr := os.Getenv("LUMA_DB_DEBUG"); debugStr != "" {
		if debug, err := strconv.ParseBool(debugStr); err == nil {
			cfg.DBDebug = debug
		}
	}

	if logStr := os.Getenv("LUMA_LOG_DIAGNOSTICS"); logStr != "" {
		if log, err := strconv.ParseBool(logStr); err == nil {
			cfg.LogDiagnostics = log
		}
	}

	if maxStr := os.Getenv("LUMA_MAX_FILE_BYTES"); maxStr != "" {
		if max, err := strconv.ParseInt(maxStr, 10, 64); err == nil && max > 0 {
			cfg.MaxFileBytes = max
		}
	}

	return cfg
}
