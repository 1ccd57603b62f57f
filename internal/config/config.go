package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the billing service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Redis, for distributed idempotency. Optional; empty falls back to an
	// in-process store.
	RedisURL string

	// NATS, for billing lifecycle events. Optional; empty disables publishing.
	NATSURL string

	// Notification service for quote/invoice emails. Optional.
	NotificationServiceURL string

	// CORS
	AllowedOrigins []string
}

// buildDatabaseURL constructs the database URL from individual components
func buildDatabaseURL() string {
	// First check if DATABASE_URL is explicitly set
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "password")
	dbname := getEnv("DB_NAME", "billing")
	sslmode := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}

// Load loads configuration from environment variables. A .env file is picked
// up in development when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	config := &Config{
		Port:                   getEnv("PORT", "8093"),
		Environment:            getEnv("ENVIRONMENT", "development"),
		DatabaseURL:            buildDatabaseURL(),
		RedisURL:               getEnv("REDIS_URL", ""),
		NATSURL:                getEnv("NATS_URL", ""),
		NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", ""),
		AllowedOrigins:         []string{getEnv("ALLOWED_ORIGINS", "*")},
	}

	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
