package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	IndexName     string // GSI1 - collection listings
	EventBusName  string

	// Store tuning
	CacheMaxEntries int
	CacheTTL        time.Duration

	// Backend selection: "dynamodb" or "memory" (local development)
	StoreBackend string

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", "skillcourt"),
		IndexName:     getEnv("INDEX_NAME", "GSI1"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "skillcourt-audit"),

		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 512),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		StoreBackend: getEnv("STORE_BACKEND", "dynamodb"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.StoreBackend != "dynamodb" && c.StoreBackend != "memory" {
		return fmt.Errorf("STORE_BACKEND must be dynamodb or memory, got %q", c.StoreBackend)
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}

	if c.Environment == "production" {
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required in production")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required in production")
		}
		if c.StoreBackend == "memory" {
			return fmt.Errorf("memory store backend is not allowed in production")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
