package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	ImageDir    string
	Database    DatabaseConfig
	Gemini      GeminiConfig
	RabbitMQ    RabbitMQConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL                  string
	ConnectAttempts      int
	ConnectRetryDelaySec int
}

// GeminiConfig holds external vision inference settings
type GeminiConfig struct {
	APIKey     string
	Model      string
	TimeoutSec int
}

// RabbitMQConfig holds optional event publishing settings. Publishing is
// disabled when URL is empty.
type RabbitMQConfig struct {
	URL                 string
	EventsExchange      string
	CreatedRoutingKey   string
	ConfirmedRoutingKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "meter-reading-api"),
		ServicePort: getEnvAsInt("PORT", 80),
		ImageDir:    getEnv("IMAGE_DIR", "resources/images"),
		Database: DatabaseConfig{
			URL:                  getEnv("DATABASE_URL", ""),
			ConnectAttempts:      getEnvAsInt("DB_CONNECT_ATTEMPTS", 10),
			ConnectRetryDelaySec: getEnvAsInt("DB_CONNECT_RETRY_DELAY_SECONDS", 10),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
			TimeoutSec: getEnvAsInt("GEMINI_TIMEOUT_SECONDS", 30),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                 getEnv("RABBITMQ_URL", ""),
			EventsExchange:      getEnv("RABBITMQ_EVENTS_EXCHANGE", "meter-reading.events.exchange"),
			CreatedRoutingKey:   getEnv("RABBITMQ_CREATED_ROUTING_KEY", "measurement.created"),
			ConfirmedRoutingKey: getEnv("RABBITMQ_CONFIRMED_ROUTING_KEY", "measurement.confirmed"),
		},
	}

	// DATABASE_URL wins; otherwise compose it from the DB_* variables.
	if cfg.Database.URL == "" {
		composed, err := databaseURLFromParts()
		if err != nil {
			return nil, err
		}
		cfg.Database.URL = composed
	}

	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required but not set in environment variables")
	}

	return cfg, nil
}

func databaseURLFromParts() (string, error) {
	host := getEnv("DB_HOST", "")
	name := getEnv("DB_NAME", "")
	if host == "" || name == "" {
		return "", fmt.Errorf("DATABASE_URL or DB_HOST/DB_NAME are required but not set in environment variables")
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, getEnvAsInt("DB_PORT", 5432)),
		Path:   "/" + name,
	}
	if user := getEnv("DB_USER", ""); user != "" {
		u.User = url.UserPassword(user, getEnv("DB_PASSWORD", ""))
	}
	return u.String(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
