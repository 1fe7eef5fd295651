// Package config provides configuration for the chat server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Remote indexing/query backend
	BackendURL string

	// Diagnostic journal
	JournalDSN string

	// Repository policy (empty means the built-in default)
	RepoPolicyFile string

	// Timeouts
	QueryTimeout time.Duration
	IndexTimeout time.Duration

	// WebSocket settings
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		BackendURL:     getEnv("BACKEND_URL", "http://localhost:8000"),
		JournalDSN:     getEnv("JOURNAL_DSN", "file:askmygithub.db?cache=shared&mode=rwc"),
		RepoPolicyFile: getEnv("REPO_POLICY_FILE", ""),
		QueryTimeout:   time.Duration(getEnvInt("QUERY_TIMEOUT_MS", 120000)) * time.Millisecond,
		IndexTimeout:   time.Duration(getEnvInt("INDEX_TIMEOUT_MS", 300000)) * time.Millisecond,
		ReadTimeout:    time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		WriteTimeout:   time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		PingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		MaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
