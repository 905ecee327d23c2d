// Package config loads application configuration from environment
// variables with sensible defaults for containerized deployment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Stream    StreamConfig
	Suggest   SuggestConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// EngineConfig holds browser engine configuration.
type EngineConfig struct {
	BinPath           string        `envconfig:"ENGINE_BIN" default:""`
	ViewportWidth     int           `envconfig:"ENGINE_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight    int           `envconfig:"ENGINE_VIEWPORT_HEIGHT" default:"720"`
	UserAgent         string        `envconfig:"ENGINE_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	NavigationTimeout time.Duration `envconfig:"ENGINE_NAV_TIMEOUT" default:"30s"`
}

// StreamConfig holds live streaming configuration.
type StreamConfig struct {
	FrameInterval     time.Duration `envconfig:"STREAM_FRAME_INTERVAL" default:"100ms"`
	FrameQuality      int           `envconfig:"STREAM_FRAME_QUALITY" default:"40"`
	ScreenshotQuality int           `envconfig:"SCREENSHOT_QUALITY" default:"60"`
}

// SuggestConfig holds search suggestion service configuration.
type SuggestConfig struct {
	BaseURL string        `envconfig:"SUGGEST_BASE_URL" default:""`
	APIKey  string        `envconfig:"SUGGEST_API_KEY" default:""`
	Model   string        `envconfig:"SUGGEST_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"SUGGEST_TIMEOUT" default:"10s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Engine: EngineConfig{
			ViewportWidth:     1280,
			ViewportHeight:    720,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavigationTimeout: 30 * time.Second,
		},
		Stream: StreamConfig{
			FrameInterval:     100 * time.Millisecond,
			FrameQuality:      40,
			ScreenshotQuality: 60,
		},
		Suggest: SuggestConfig{
			Model:   "gpt-4o-mini",
			Timeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
