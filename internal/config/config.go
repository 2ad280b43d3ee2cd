// Package config loads SignalBus daemon configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all daemon configuration.
//
// Tags:
//
//	env:        environment variable name
//	envDefault: default value if not set
type Config struct {
	SocketPath string `env:"SIGNALBUS_SOCKET_PATH" envDefault:"/tmp/signalbus.sock"`

	HistorySize   int `env:"SIGNALBUS_HISTORY_SIZE" envDefault:"1000"`
	QueueCapacity int `env:"SIGNALBUS_QUEUE_CAPACITY" envDefault:"100"`

	SweepInterval   time.Duration `env:"SIGNALBUS_SWEEP_INTERVAL" envDefault:"60s"`
	DefaultTokenTTL time.Duration `env:"SIGNALBUS_DEFAULT_TOKEN_TTL" envDefault:"3600s"`

	ConnRateBurst  int     `env:"SIGNALBUS_CONN_RATE_BURST" envDefault:"50"`
	ConnRatePerSec float64 `env:"SIGNALBUS_CONN_RATE_PER_SEC" envDefault:"20"`

	MetricsAddr string `env:"SIGNALBUS_METRICS_ADDR" envDefault:":9090"`

	LogLevel  string `env:"SIGNALBUS_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SIGNALBUS_LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from an optional .env file and the process
// environment. Priority: environment variables > .env file > defaults.
//
// logger may be nil during very early startup, before a structured
// logger has been constructed.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration for internally inconsistent or nonsensical values.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("SIGNALBUS_SOCKET_PATH is required")
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("SIGNALBUS_HISTORY_SIZE must be > 0, got %d", c.HistorySize)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("SIGNALBUS_QUEUE_CAPACITY must be > 0, got %d", c.QueueCapacity)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SIGNALBUS_SWEEP_INTERVAL must be > 0, got %s", c.SweepInterval)
	}
	if c.ConnRateBurst < 1 {
		return fmt.Errorf("SIGNALBUS_CONN_RATE_BURST must be > 0, got %d", c.ConnRateBurst)
	}
	if c.ConnRatePerSec <= 0 {
		return fmt.Errorf("SIGNALBUS_CONN_RATE_PER_SEC must be > 0, got %f", c.ConnRatePerSec)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("SIGNALBUS_LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}

	validFormats := map[string]bool{"json": true, "pretty": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("SIGNALBUS_LOG_FORMAT must be one of json, pretty (got %q)", c.LogFormat)
	}

	return nil
}

// Log emits the resolved configuration as a single structured log entry.
func (c *Config) Log(logger zerolog.Logger) {
	logger.Info().
		Str("socket_path", c.SocketPath).
		Int("history_size", c.HistorySize).
		Int("queue_capacity", c.QueueCapacity).
		Dur("sweep_interval", c.SweepInterval).
		Dur("default_token_ttl", c.DefaultTokenTTL).
		Int("conn_rate_burst", c.ConnRateBurst).
		Float64("conn_rate_per_sec", c.ConnRatePerSec).
		Str("metrics_addr", c.MetricsAddr).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("configuration loaded")
}
