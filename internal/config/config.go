// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server
	Port string

	// BigQuery
	ProjectID string
	Dataset   string

	// GCS archive of imported CSV files. Empty disables archiving.
	ArchiveBucket string

	// Classification gateway
	GeminiModel string
	AITimeout   time.Duration
	AIRateRPS   float64

	// Import queue
	ImportQueueSize int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	// Missing .env is the normal case in deployed environments.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		ProjectID:       getEnv("BQ_PROJECT_ID", ""),
		Dataset:         getEnv("BQ_DATASET", "budgetwise"),
		ArchiveBucket:   getEnv("GCS_BUCKET", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITimeout:       getEnvDuration("AI_TIMEOUT", 30*time.Second),
		AIRateRPS:       getEnvFloat("AI_RATE_LIMIT_RPS", 1),
		ImportQueueSize: getEnvInt("IMPORT_QUEUE_SIZE", 32),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and sane.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("config: BQ_PROJECT_ID is required")
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("config: invalid port %q", c.Port)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("config: AI_TIMEOUT must be positive, got %s", c.AITimeout)
	}
	if c.AIRateRPS <= 0 {
		return fmt.Errorf("config: AI_RATE_LIMIT_RPS must be positive, got %v", c.AIRateRPS)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
