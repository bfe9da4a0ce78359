package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the council search API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	CORS      CORSConfig      `yaml:"cors"`
	Index     IndexConfig     `yaml:"index"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CORSConfig holds cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAgeSec      int      `yaml:"max_age_sec"`
}

// Index drivers.
const (
	DriverRedis = "redis"
	DriverBleve = "bleve"
)

// IndexConfig holds index service settings.
type IndexConfig struct {
	Driver           string   `yaml:"driver"` // redis, bleve (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	BlevePath        string   `yaml:"bleve_path"` // empty: in-memory
	SubjectIndex     string   `yaml:"subject_index"`
	SegmentIndex     string   `yaml:"segment_index"`
	Language         string   `yaml:"language"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	Driver             string `yaml:"driver"` // sqlx driver name (default: sqlite)
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
}

// EmbeddingConfig holds query embedding settings. An empty provider disables
// the semantic branch.
type EmbeddingConfig struct {
	Provider         string       `yaml:"provider"`
	APIKey           string       `yaml:"api_key"`
	BaseURL          string       `yaml:"base_url"`
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	TimeoutSec       int          `yaml:"timeout_sec"`
	CacheTTLSec      int          `yaml:"cache_ttl_sec"`
	Budget           BudgetConfig `yaml:"budget"`
}

// Enabled reports whether a provider is configured.
func (e EmbeddingConfig) Enabled() bool { return e.Provider != "" }

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// SearchConfig holds ranking defaults and limits.
type SearchConfig struct {
	DefaultSize          int           `yaml:"default_size"`
	RankWindowSize       int           `yaml:"rank_window_size"`
	RankConstant         int           `yaml:"rank_constant"`
	MinSegmentTextLength int           `yaml:"min_segment_text_length"`
	HydrationConcurrency int           `yaml:"hydration_concurrency"`
	SegmentFanOut        int           `yaml:"segment_fan_out"`
	Weights              WeightsConfig `yaml:"weights"`
}

// WeightsConfig holds per-field boosts. Zero keeps the built-in boost.
type WeightsConfig struct {
	Name        float64 `yaml:"name"`
	Description float64 `yaml:"description"`
	Text        float64 `yaml:"text"`
	Summary     float64 `yaml:"summary"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.CORS.MaxAgeSec <= 0 {
		c.CORS.MaxAgeSec = 300
	}

	if c.Index.Driver == "" {
		c.Index.Driver = DriverRedis
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Index.SubjectIndex == "" {
		c.Index.SubjectIndex = "councilsearch:subjects:idx"
	}
	if c.Index.SegmentIndex == "" {
		c.Index.SegmentIndex = "councilsearch:segments:idx"
	}
	if c.Index.Language == "" {
		c.Index.Language = "greek"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 16
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 4
	}

	if c.Embedding.Enabled() {
		if c.Embedding.Model == "" {
			c.Embedding.Model = "text-embedding-3-small"
		}
		if c.Embedding.Dimensions <= 0 {
			c.Embedding.Dimensions = 1536
		}
		if c.Embedding.TimeoutSec <= 0 {
			c.Embedding.TimeoutSec = 10
		}
		if c.Embedding.CacheTTLSec <= 0 {
			c.Embedding.CacheTTLSec = 7 * 24 * 3600
		}
	}

	if c.Search.DefaultSize <= 0 {
		c.Search.DefaultSize = 10
	}
	if c.Search.RankWindowSize <= 0 {
		c.Search.RankWindowSize = 100
	}
	if c.Search.RankConstant <= 0 {
		c.Search.RankConstant = 60
	}
	if c.Search.MinSegmentTextLength <= 0 {
		c.Search.MinSegmentTextLength = 100
	}
	if c.Search.HydrationConcurrency <= 0 {
		c.Search.HydrationConcurrency = 8
	}
	if c.Search.SegmentFanOut <= 0 {
		c.Search.SegmentFanOut = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Index.Driver {
	case DriverRedis:
		if len(c.Index.Addrs) == 0 {
			return fmt.Errorf("index.addrs is required for the redis driver")
		}
	case DriverBleve:
	default:
		return fmt.Errorf("index.driver must be %q or %q, got %q", DriverRedis, DriverBleve, c.Index.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Budget.Action,
		)
	}
	if c.Embedding.Enabled() && c.Embedding.Provider != "openai" {
		return fmt.Errorf("embedding.provider must be \"openai\" or empty, got %q", c.Embedding.Provider)
	}
	if c.Search.RankWindowSize > 1000 {
		return fmt.Errorf("search.rank_window_size must not exceed 1000, got %d", c.Search.RankWindowSize)
	}
	if c.Search.DefaultSize > 100 {
		return fmt.Errorf("search.default_size must not exceed 100, got %d", c.Search.DefaultSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
