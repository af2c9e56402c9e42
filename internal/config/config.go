// Package config loads the bot's environment configuration.
package config

import (
	"fmt"
	"os"
)

// Config holds all runtime configuration, read from the environment.
type Config struct {
	// Misskey instance host, e.g. "misskey.example.com"
	Instance string
	// API token for the bot account
	Token string
	// Secure selects https/wss vs http/ws
	Secure bool
	// Hashtag monitored on the timeline, without the leading '#'
	Hashtag string

	// HTTP status server listen address
	HTTPAddr string

	DB DBConfig
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Load reads configuration from environment variables. Missing credentials
// are a fatal condition for the caller; everything else has a default.
func Load() (*Config, error) {
	instance := os.Getenv("INSTANCE")
	if instance == "" {
		return nil, fmt.Errorf("INSTANCE is not set")
	}
	token := os.Getenv("TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TOKEN is not set")
	}

	return &Config{
		Instance: instance,
		Token:    token,
		Secure:   getEnv("SECURE", "true") == "true",
		Hashtag:  getEnv("HASHTAG", "mis1yakudo"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "yakudo_bot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}, nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
