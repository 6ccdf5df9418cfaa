// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	CORS        CORSConfig        `mapstructure:"cors"`
	DB          DBConfig          `mapstructure:"db"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Stream      StreamConfig      `mapstructure:"stream"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Scraper     ScraperConfig     `mapstructure:"scraper"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeoutSec  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSec int `mapstructure:"write_timeout_seconds"`
	ShutdownSec     int `mapstructure:"shutdown_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CORSConfig controls cross-origin access for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// WorkerConfig governs the async finalization pool.
type WorkerConfig struct {
	Count          int `mapstructure:"count"`
	QueueDepth     int `mapstructure:"queue_depth"`
	DelaySeconds   int `mapstructure:"delay_seconds"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
}

// StreamConfig tunes the WebSocket broadcast hub.
type StreamConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// IdempotencyConfig names the request header carrying the idempotency key.
type IdempotencyConfig struct {
	Header string `mapstructure:"header"`
}

// RateLimitConfig throttles requests per client IP. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// OpenAIConfig configures the summarization backend.
type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	Temperature    float32 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// ScraperConfig configures the browser-automation client.
type ScraperConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	NavTimeoutSec  int    `mapstructure:"nav_timeout_seconds"`
	Headless       bool   `mapstructure:"headless"`
	TargetEndpoint string `mapstructure:"target_endpoint"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TXAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.shutdown_seconds", 10)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.queue_depth", 64)
	v.SetDefault("worker.delay_seconds", 5)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.retry_backoff_ms", 200)
	v.SetDefault("stream.buffer_size", 64)
	v.SetDefault("idempotency.header", "Idempotency-Key")
	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.timeout_seconds", 30)
	v.SetDefault("scraper.user_agent", "txapi-rpa/0.1")
	v.SetDefault("scraper.nav_timeout_seconds", 25)
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.target_endpoint", "http://localhost:8080/v1/assistant/summarize")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be > 0")
	}
	if c.Worker.QueueDepth <= 0 {
		return fmt.Errorf("worker.queue_depth must be > 0")
	}
	if c.Stream.BufferSize <= 0 {
		return fmt.Errorf("stream.buffer_size must be > 0")
	}
	if c.Idempotency.Header == "" {
		return fmt.Errorf("idempotency.header must not be empty")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("openai.temperature must be between 0 and 2")
	}
	return nil
}

// WorkerDelay converts the configured processing delay into a duration.
func (c Config) WorkerDelay() time.Duration {
	return time.Duration(c.Worker.DelaySeconds) * time.Second
}

// RetryBackoff converts the configured re-enqueue backoff into a duration.
func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Worker.RetryBackoffMs) * time.Millisecond
}

// ShutdownTimeout is the grace period for draining the HTTP server.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSec) * time.Second
}
