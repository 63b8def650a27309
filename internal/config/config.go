package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel  string // zerolog level name
	LogFormat string // "json" or "console"
	InboxSize int    // Engine request queue length
	Workers   int    // Concurrent input feeds
}

func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "json",
		InboxSize: 100,
		Workers:   4,
	}
}

// LoadFromEnv loads configuration from a .env file (if it exists) and the
// environment. Priority: ENV > .env file > defaults. An empty envPath means .env
// in the working directory.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Missing .env files are fine.
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if level := os.Getenv("MATCHBOOK_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("MATCHBOOK_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
	cfg.InboxSize = getEnvInt("MATCHBOOK_INBOX_SIZE", cfg.InboxSize)
	cfg.Workers = getEnvInt("MATCHBOOK_WORKERS", cfg.Workers)

	return cfg
}

// getEnvInt returns the positive integer in key, or fallback if it is unset or
// not a positive integer.
func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
