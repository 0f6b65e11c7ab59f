package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Visibility gates for mount/update events.
const (
	GatePublicOnly = "public-only"
	GateAlways     = "always"
)

// Sanitizer policies.
const (
	PolicyUGC       = "ugc"
	PolicyStrict    = "strict"
	PolicyAllowList = "allowlist"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Render    RenderConfig
	Sanitizer SanitizerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
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

// RenderConfig holds render pipeline configuration.
type RenderConfig struct {
	// Gate decides what mount/update does: "public-only" renders public
	// elements and waits for an explicit render for private ones, "always"
	// forwards every element to the key holder.
	Gate           string        `envconfig:"RENDER_GATE" default:"public-only"`
	DecryptTimeout time.Duration `envconfig:"DECRYPT_TIMEOUT" default:"5s"`
	// PendingTTL bounds how long a private request waits for a key. Zero keeps it forever.
	PendingTTL time.Duration `envconfig:"PENDING_TTL" default:"30s"`
	QueueSize  int           `envconfig:"RENDER_QUEUE_SIZE" default:"64"`
}

// SanitizerConfig holds sanitizer configuration.
type SanitizerConfig struct {
	Policy        string `envconfig:"SANITIZER_POLICY" default:"ugc"`
	AllowListFile string `envconfig:"SANITIZER_ALLOWLIST"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
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
			Port:        "8000",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
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
		Render: RenderConfig{
			Gate:           GatePublicOnly,
			DecryptTimeout: 5 * time.Second,
			PendingTTL:     30 * time.Second,
			QueueSize:      64,
		},
		Sanitizer: SanitizerConfig{
			Policy: PolicyUGC,
		},
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Render.Gate {
	case GatePublicOnly, GateAlways:
	default:
		return fmt.Errorf("%w: RENDER_GATE must be %q or %q, got %q", ErrInvalidConfig, GatePublicOnly, GateAlways, c.Render.Gate)
	}

	if c.Render.DecryptTimeout <= 0 {
		return fmt.Errorf("%w: DECRYPT_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.Render.PendingTTL < 0 {
		return fmt.Errorf("%w: PENDING_TTL must not be negative", ErrInvalidConfig)
	}
	if c.Render.QueueSize <= 0 {
		return fmt.Errorf("%w: RENDER_QUEUE_SIZE must be positive", ErrInvalidConfig)
	}

	switch c.Sanitizer.Policy {
	case PolicyUGC, PolicyStrict:
	case PolicyAllowList:
		if c.Sanitizer.AllowListFile == "" {
			return fmt.Errorf("%w: SANITIZER_ALLOWLIST is required for the allowlist policy", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown SANITIZER_POLICY %q", ErrInvalidConfig, c.Sanitizer.Policy)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("%w: rate limit values must be positive", ErrInvalidConfig)
	}

	return nil
}
