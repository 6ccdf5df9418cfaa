package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  shutdown_seconds: 20
auth:
  enabled: true
  api_key: secret
cors:
  allowed_origins: ["https://app.example.com"]
db:
  dsn: postgres://tx:tx@localhost:5432/tx
  max_open_conns: 25
worker:
  count: 4
  queue_depth: 128
  delay_seconds: 1
  max_attempts: 5
  retry_backoff_ms: 50
stream:
  buffer_size: 32
idempotency:
  header: X-Request-Key
openai:
  api_key: sk-test
  model: gpt-4o
  temperature: 0.7
scraper:
  headless: false
  target_endpoint: http://localhost:9090/v1/assistant/summarize
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.DB.DSN == "" || cfg.DB.MaxOpenConns != 25 {
		t.Fatalf("expected db overrides to apply: %+v", cfg.DB)
	}
	if cfg.Worker.Count != 4 || cfg.Worker.MaxAttempts != 5 {
		t.Fatalf("expected worker overrides to apply: %+v", cfg.Worker)
	}
	if cfg.Idempotency.Header != "X-Request-Key" {
		t.Fatalf("expected custom idempotency header, got %q", cfg.Idempotency.Header)
	}
	if cfg.OpenAI.Model != "gpt-4o" || cfg.OpenAI.Temperature != 0.7 {
		t.Fatalf("expected openai overrides to apply: %+v", cfg.OpenAI)
	}
	if cfg.Scraper.Headless {
		t.Fatalf("expected scraper.headless=false")
	}
	if got := cfg.WorkerDelay(); got != time.Second {
		t.Fatalf("expected worker delay 1s, got %v", got)
	}
	if got := cfg.ShutdownTimeout(); got != 20*time.Second {
		t.Fatalf("expected shutdown timeout 20s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Fatalf("expected default idempotency header, got %q", cfg.Idempotency.Header)
	}
	if cfg.Worker.DelaySeconds != 5 {
		t.Fatalf("expected default worker delay 5s, got %d", cfg.Worker.DelaySeconds)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("expected default model gpt-4o-mini, got %q", cfg.OpenAI.Model)
	}
	if cfg.DB.DSN != "" {
		t.Fatalf("expected empty default DSN, got %q", cfg.DB.DSN)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Worker.Count = 0 },
			wantErr: "worker.count",
		},
		{
			name:    "empty idempotency header",
			mutate:  func(c *Config) { c.Idempotency.Header = "" },
			wantErr: "idempotency.header",
		},
		{
			name:    "auth without key",
			mutate:  func(c *Config) { c.Auth.Enabled = true; c.Auth.APIKey = "" },
			wantErr: "auth.api_key",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.OpenAI.Temperature = 3 },
			wantErr: "openai.temperature",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tc.mutate(&cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
