// Package config loads server configuration from an optional .env file
// and the environment. Environment variables always win.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config carries everything the server binary needs.
type Config struct {
	// Port the HTTP server listens on.
	Port int
	// DBPath is the sqlite database file. Parent directories are created
	// as needed.
	DBPath string
	// EnvelopeSecret signs bearer envelopes. Required.
	EnvelopeSecret string
	// QueueBuffer is the balance recompute queue capacity.
	QueueBuffer int
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Load reads configuration. A missing .env file is fine; a missing
// envelope secret is not.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "data/reparte.db")
	v.SetDefault("QUEUE_BUFFER", 64)
	v.SetDefault("LOG_LEVEL", "info")

	// The .env file is optional; env vars alone are a valid configuration.
	_ = v.ReadInConfig()

	cfg := &Config{
		Port:           v.GetInt("PORT"),
		DBPath:         v.GetString("DB_PATH"),
		EnvelopeSecret: v.GetString("ENVELOPE_SECRET"),
		QueueBuffer:    v.GetInt("QUEUE_BUFFER"),
		LogLevel:       v.GetString("LOG_LEVEL"),
	}

	if cfg.EnvelopeSecret == "" {
		return nil, fmt.Errorf("ENVELOPE_SECRET must be set")
	}
	if cfg.QueueBuffer < 1 {
		return nil, fmt.Errorf("QUEUE_BUFFER must be positive, got %d", cfg.QueueBuffer)
	}

	return cfg, nil
}
