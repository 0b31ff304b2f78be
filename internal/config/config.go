package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string // where source CSV exports live
	DatabasePath       string
	ArtifactPath       string // published strategies.json
	StrategiesPath     string // YAML strategy table; empty means built-in defaults
	PreprocessSchedule string // cron spec for scheduled pipeline runs; empty disables
	LogLevel           string
	Port               int
	DevMode            bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnvAsInt("PORT", 8080),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		DataDir:            getEnv("DATA_DIR", "./data"),
		DatabasePath:       getEnv("DATABASE_PATH", "./data/report.db"),
		ArtifactPath:       getEnv("ARTIFACT_PATH", "./data/strategies.json"),
		StrategiesPath:     getEnv("STRATEGIES_CONFIG", ""),
		PreprocessSchedule: getEnv("PREPROCESS_SCHEDULE", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.ArtifactPath == "" {
		return fmt.Errorf("ARTIFACT_PATH is required")
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

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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
