package config

import (
	"testing"
)

func validConfig() Config {
	cfg := Config{}
	cfg.HTTP.Port = 8080
	cfg.Database.Addrs = []string{"localhost:6379"}
	cfg.Gateway.ChatModel = "gpt-4o-mini"
	cfg.Gateway.EmbeddingModel = "text-embedding-3-small"
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected read timeout 10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 120 {
		t.Errorf("expected write timeout 120, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Gateway.Dimensions != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", cfg.Gateway.Dimensions)
	}
	if cfg.Retrieval.DefaultTopK != 5 || cfg.Retrieval.MaxTopK != 20 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Cache.BaseTTLHours != 12 {
		t.Errorf("expected base TTL 12h, got %d", cfg.Cache.BaseTTLHours)
	}
	if cfg.Clustering.MinIntervalHours != 6 {
		t.Errorf("expected min interval 6h, got %d", cfg.Clustering.MinIntervalHours)
	}
	if cfg.Summarizer.ChunkSize != 2000 || cfg.Summarizer.ChunkOverlap != 200 {
		t.Errorf("unexpected summarizer defaults: %+v", cfg.Summarizer)
	}
	if cfg.Storage.KeyPrefix != "ragcore:" {
		t.Errorf("expected key prefix %q, got %q", "ragcore:", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.HTTP.ReadTimeoutSec = 30
	cfg.Retrieval.DefaultTopK = 10
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected explicit read timeout kept, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Retrieval.DefaultTopK != 10 {
		t.Errorf("expected explicit top_k kept, got %d", cfg.Retrieval.DefaultTopK)
	}
}

func TestValidate(t *testing.T) {
	if err := func() error { cfg := validConfig(); return cfg.Validate() }(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"no database addrs", func(c *Config) { c.Database.Addrs = nil }},
		{"no chat model", func(c *Config) { c.Gateway.ChatModel = "" }},
		{"no embedding model", func(c *Config) { c.Gateway.EmbeddingModel = "" }},
		{"overlap not below chunk size", func(c *Config) {
			c.Summarizer.ChunkSize = 100
			c.Summarizer.ChunkOverlap = 100
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RAGCORE_TEST_VAR", "actual")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set variable", "addr: ${RAGCORE_TEST_VAR}", "addr: actual"},
		{"unset variable", "addr: ${RAGCORE_TEST_UNSET}", "addr: "},
		{"unset with default", "addr: ${RAGCORE_TEST_UNSET:-localhost:6379}", "addr: localhost:6379"},
		{"set ignores default", "addr: ${RAGCORE_TEST_VAR:-fallback}", "addr: actual"},
		{"no variables", "addr: plain", "addr: plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(expandEnvVars([]byte(tt.input))); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected default env %q, got %q", "local", got)
	}

	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected %q, got %q", "prod", got)
	}
}
