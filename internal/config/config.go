// Package config loads the discovery orchestrator's configuration from
// environment variables, with every field defaulted so a zero-configuration
// run (all adapters mocked) is valid.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level configuration tree for the discoveryd binary.
type Config struct {
	Port int `env:"PORT" default:"8080"`

	DatabaseURL     string `env:"DATABASE_URL"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	RedisURL        string `env:"REDIS_URL"`

	Logging   LoggingConfig
	HTTP      HTTPConfig
	Session   SessionConfig
	Scheduler SchedulerConfig
}

// LoggingConfig controls the structured logger in internal/logging.
type LoggingConfig struct {
	Level  string `env:"DISCOVERY_LOG_LEVEL" default:"info"`
	Format string `env:"DISCOVERY_LOG_FORMAT"` // auto-detected when empty
}

// HTTPConfig controls the request front-end's server.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration `env:"DISCOVERY_HTTP_READ_HEADER_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `env:"DISCOVERY_HTTP_WRITE_TIMEOUT" default:"0"` // 0: unbounded, streaming responses
	IdleTimeout       time.Duration `env:"DISCOVERY_HTTP_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout   time.Duration `env:"DISCOVERY_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	SSEKeepAlive      time.Duration `env:"DISCOVERY_SSE_KEEPALIVE" default:"15s"`
}

// SessionConfig controls the session checkpointer's capacity and the
// per-session wall-clock timeout that cmd/discoveryd applies to each HTTP
// request (scheduler runs are not bounded by it). EvictionTick is parsed
// but read by nothing else: the checkpointer evicts on insert.
type SessionConfig struct {
	Timeout        time.Duration `env:"DISCOVERY_SESSION_TIMEOUT" default:"10m"`
	CheckpointCap  int           `env:"DISCOVERY_CHECKPOINT_CAP" default:"1000"`
	EvictionTick   time.Duration `env:"DISCOVERY_CHECKPOINT_EVICT_INTERVAL" default:"1m"`
}

// SchedulerConfig controls the background cron runner.
type SchedulerConfig struct {
	Enabled   bool   `env:"DISCOVERY_SCHEDULER_ENABLED" default:"true"`
	SeedsPath string `env:"DISCOVERY_SCHEDULER_SEEDS_PATH"`
}

// Option mutates a Config during programmatic construction, mirroring the
// functional-options pattern used throughout the retrieved example pack.
type Option func(*Config)

// WithPort overrides the HTTP listen port.
func WithPort(port int) Option { return func(c *Config) { c.Port = port } }

// WithRedisURL overrides the Redis connection string.
func WithRedisURL(url string) Option { return func(c *Config) { c.RedisURL = url } }

// WithLogLevel overrides the log level.
func WithLogLevel(level string) Option { return func(c *Config) { c.Logging.Level = level } }

// WithSchedulerEnabled toggles the background scheduler.
func WithSchedulerEnabled(enabled bool) Option {
	return func(c *Config) { c.Scheduler.Enabled = enabled }
}

// Default returns a Config populated entirely with defaults.
func Default() *Config {
	return &Config{
		Port: 8080,
		Logging: LoggingConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			SSEKeepAlive:      15 * time.Second,
		},
		Session: SessionConfig{
			Timeout:       10 * time.Minute,
			CheckpointCap: 1000,
			EvictionTick:  time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
	}
}

// New builds a Config from defaults, environment variables, then opts, in
// that precedence order (opts win, since they are explicit caller intent).
func New(opts ...Option) (*Config, error) {
	c := Default()
	if err := c.LoadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromEnv overlays environment variables onto c. Each field is read
// explicitly rather than via reflection, matching the style of the
// configuration loader this package is grounded on.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}

	c.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), c.DatabaseURL)
	c.AnthropicAPIKey = firstNonEmpty(os.Getenv("ANTHROPIC_API_KEY"), c.AnthropicAPIKey)
	c.OpenAIAPIKey = firstNonEmpty(os.Getenv("OPENAI_API_KEY"), c.OpenAIAPIKey)
	c.RedisURL = firstNonEmpty(os.Getenv("REDIS_URL"), c.RedisURL)

	c.Logging.Level = firstNonEmpty(os.Getenv("DISCOVERY_LOG_LEVEL"), c.Logging.Level)
	c.Logging.Format = firstNonEmpty(os.Getenv("DISCOVERY_LOG_FORMAT"), c.Logging.Format)

	if v := os.Getenv("DISCOVERY_SESSION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DISCOVERY_SESSION_TIMEOUT %q: %w", v, err)
		}
		c.Session.Timeout = d
	}
	if v := os.Getenv("DISCOVERY_CHECKPOINT_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DISCOVERY_CHECKPOINT_CAP %q: %w", v, err)
		}
		c.Session.CheckpointCap = n
	}
	for name, dst := range map[string]*time.Duration{
		"DISCOVERY_HTTP_READ_HEADER_TIMEOUT":  &c.HTTP.ReadHeaderTimeout,
		"DISCOVERY_HTTP_WRITE_TIMEOUT":        &c.HTTP.WriteTimeout,
		"DISCOVERY_HTTP_IDLE_TIMEOUT":         &c.HTTP.IdleTimeout,
		"DISCOVERY_HTTP_SHUTDOWN_TIMEOUT":     &c.HTTP.ShutdownTimeout,
		"DISCOVERY_SSE_KEEPALIVE":             &c.HTTP.SSEKeepAlive,
		"DISCOVERY_CHECKPOINT_EVICT_INTERVAL": &c.Session.EvictionTick,
	} {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("DISCOVERY_SCHEDULER_ENABLED"); v != "" {
		c.Scheduler.Enabled = parseBool(v)
	}
	c.Scheduler.SeedsPath = firstNonEmpty(os.Getenv("DISCOVERY_SCHEDULER_SEEDS_PATH"), c.Scheduler.SeedsPath)

	return nil
}

// Validate rejects configurations the rest of the system cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Session.CheckpointCap <= 0 {
		return fmt.Errorf("checkpoint cap must be positive: %d", c.Session.CheckpointCap)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
