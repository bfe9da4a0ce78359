package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Index:    IndexConfig{Driver: DriverRedis, Addrs: []string{"localhost:6379"}},
		Database: DatabaseConfig{DSN: "file:council.db"},
	}
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding = EmbeddingConfig{
		Provider: "openai",
		APIKey:   "test-key",
		Budget: BudgetConfig{
			DailyTokenLimit: 1000000,
			Action:          "invalid_action",
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding = EmbeddingConfig{
				Provider: "openai",
				Budget:   BudgetConfig{Action: action},
			}

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing redis addrs", func(c *Config) { c.Index.Addrs = nil }, "index.addrs"},
		{"unknown driver", func(c *Config) { c.Index.Driver = "valkey" }, "index.driver"},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "nebius" }, "embedding.provider"},
		{"window too large", func(c *Config) { c.Search.RankWindowSize = 5000 }, "rank_window_size"},
		{"size too large", func(c *Config) { c.Search.DefaultSize = 500 }, "default_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_BleveNeedsNoAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Index = IndexConfig{Driver: DriverBleve}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Index.Driver != DriverRedis {
		t.Errorf("expected Driver=redis, got %q", cfg.Index.Driver)
	}
	if cfg.Index.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Index.ReadinessTimeout)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSWEFConstruct=400, got %d", cfg.Index.HNSWEFConstruct)
	}
	if cfg.Index.Language != "greek" {
		t.Errorf("expected Language=greek, got %q", cfg.Index.Language)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected database driver sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Search.DefaultSize != 10 || cfg.Search.RankWindowSize != 100 || cfg.Search.RankConstant != 60 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Search.MinSegmentTextLength != 100 {
		t.Errorf("expected MinSegmentTextLength=100, got %d", cfg.Search.MinSegmentTextLength)
	}
	if cfg.Search.HydrationConcurrency != 8 || cfg.Search.SegmentFanOut != 5 {
		t.Errorf("unexpected concurrency defaults: %+v", cfg.Search)
	}
	if cfg.Embedding.Model != "" {
		t.Errorf("embedding defaults applied without a provider: %+v", cfg.Embedding)
	}
}

func TestApplyDefaults_Embedding(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{Provider: "openai"}}
	cfg.ApplyDefaults()

	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("unexpected embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.CacheTTLSec <= 0 || cfg.Embedding.TimeoutSec <= 0 {
		t.Errorf("expected positive cache TTL and timeout: %+v", cfg.Embedding)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index:  IndexConfig{Driver: DriverBleve, HNSWM: 16, HNSWEFConstruct: 200},
		Search: SearchConfig{RankConstant: 10, MinSegmentTextLength: 40},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.Driver != DriverBleve || cfg.Index.HNSWM != 16 {
		t.Errorf("index settings overridden: %+v", cfg.Index)
	}
	if cfg.Search.RankConstant != 10 || cfg.Search.MinSegmentTextLength != 40 {
		t.Errorf("search settings overridden: %+v", cfg.Search)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("COUNCIL_DSN", "file:/tmp/council.db")
	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
http:
  port: 9090
index:
  driver: bleve
database:
  dsn: ${COUNCIL_DSN}
embedding:
  api_key: ${MISSING_KEY:-none}
search:
  weights:
    name: 4
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Database.DSN != "file:/tmp/council.db" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Embedding.APIKey != "none" {
		t.Errorf("api key = %q", cfg.Embedding.APIKey)
	}
	if cfg.Search.Weights.Name != 4 {
		t.Errorf("name weight = %v", cfg.Search.Weights.Name)
	}
	if cfg.Search.RankWindowSize != 100 {
		t.Errorf("defaults not applied: window = %d", cfg.Search.RankWindowSize)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
