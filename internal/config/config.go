// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/billbook/pkg/logging"
)

// Config holds every setting of the billbook process.
type Config struct {
	DBPath     string
	HTTPAddr   string
	StaticPath string

	LogLevel slog.Level
	LogFile  string

	AutosaveInterval time.Duration
	ChromeTimeout    time.Duration
	ChromePath       string
}

// Load reads a .env file when present, then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", "./data/billbook.db"),
		HTTPAddr:   getEnv("HTTP_ADDR", "127.0.0.1:8080"),
		StaticPath: getEnv("STATIC_PATH", "./static"),
		LogLevel:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		LogFile:    os.Getenv("LOG_FILE"),
		ChromePath: os.Getenv("CHROME_PATH"),
	}

	var err error
	if cfg.AutosaveInterval, err = getDuration("AUTOSAVE_INTERVAL", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ChromeTimeout, err = getDuration("CHROME_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive duration such as 60s", key, value)
	}
	return d, nil
}
