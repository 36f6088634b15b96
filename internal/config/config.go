package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the herdask API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Listings   ListingsConfig   `yaml:"listings"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys      []string `yaml:"api_keys"`
	CallerHeader string   `yaml:"caller_header"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ListingsConfig selects where listings are read from.
type ListingsConfig struct {
	Backend     string   `yaml:"backend"` // redis, postgres (default: redis)
	Collections []string `yaml:"collections"`
	PostgresDSN string   `yaml:"postgres_dsn"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"`
}

// GenerationConfig holds chat model settings.
type GenerationConfig struct {
	Provider     string  `yaml:"provider"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float32 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// PipelineConfig tunes admission, caching and ranking.
type PipelineConfig struct {
	CacheBackend    string   `yaml:"cache_backend"` // memory, redis (default: memory)
	CacheTTLSec     int      `yaml:"cache_ttl_sec"`
	CacheMaxEntries int      `yaml:"cache_max_entries"`
	TopK            int      `yaml:"top_k"`
	RecommendTopK   int      `yaml:"recommend_top_k"`
	MinSimilarity   float64  `yaml:"min_similarity"`
	Locations       []string `yaml:"locations"`
	LockBackend     string   `yaml:"lock_backend"` // memory, redis (default: memory)
	LockLeaseSec    int      `yaml:"lock_lease_sec"`
	HistoryLimit    int      `yaml:"history_limit"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults.
func Parse(data []byte) (Config, error) {
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
		panic("failed to load config: " + err.Error())
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
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Listings.Backend == "" {
		c.Listings.Backend = "redis"
	}
	if len(c.Listings.Collections) == 0 {
		c.Listings.Collections = []string{"buffaloes", "chickens", "goats"}
	}
	c.applyProviderDefaults()
	c.applyPipelineDefaults()
	if c.Auth.CallerHeader == "" {
		c.Auth.CallerHeader = "X-Caller-ID"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "herdask:"
	}
}

func (c *Config) applyProviderDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 7 * 24 * 3600
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = c.Embedding.Provider
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = c.Embedding.BaseURL
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 60
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 512
	}
}

func (c *Config) applyPipelineDefaults() {
	p := &c.Pipeline
	if p.CacheBackend == "" {
		p.CacheBackend = "memory"
	}
	if p.CacheTTLSec <= 0 {
		p.CacheTTLSec = 300
	}
	if p.CacheMaxEntries <= 0 {
		p.CacheMaxEntries = 1024
	}
	if p.TopK <= 0 {
		p.TopK = 3
	}
	if p.RecommendTopK <= 0 {
		p.RecommendTopK = 5
	}
	if len(p.Locations) == 0 {
		p.Locations = []string{"chitwan", "kathmandu", "pokhara"}
	}
	if p.LockBackend == "" {
		p.LockBackend = "memory"
	}
	if p.LockLeaseSec <= 0 {
		p.LockLeaseSec = 120
	}
	if p.HistoryLimit <= 0 {
		p.HistoryLimit = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := oneOf("database.driver", c.Database.Driver, "redis", "valkey"); err != nil {
		return err
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if err := oneOf("listings.backend", c.Listings.Backend, "redis", "postgres"); err != nil {
		return err
	}
	if c.Listings.Backend == "postgres" && c.Listings.PostgresDSN == "" {
		return fmt.Errorf("listings.postgres_dsn is required for the postgres backend")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be non-negative, got %d", c.Embedding.Dimensions)
	}
	if c.Listings.Backend == "postgres" && c.Embedding.Dimensions == 0 {
		return fmt.Errorf("embedding.dimensions is required for the postgres backend")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %v", c.Generation.Temperature)
	}
	if err := oneOf("pipeline.cache_backend", c.Pipeline.CacheBackend, "memory", "redis"); err != nil {
		return err
	}
	if err := oneOf("pipeline.lock_backend", c.Pipeline.LockBackend, "memory", "redis"); err != nil {
		return err
	}
	// A lease shorter than one full pipeline would let a second request in mid-flight.
	if budget := c.Embedding.TimeoutSec + c.Generation.TimeoutSec; c.Pipeline.LockLeaseSec <= budget {
		return fmt.Errorf("pipeline.lock_lease_sec must exceed embedding.timeout_sec + generation.timeout_sec (%d), got %d",
			budget, c.Pipeline.LockLeaseSec)
	}
	if c.Pipeline.MinSimilarity < 0 || c.Pipeline.MinSimilarity > 1 {
		return fmt.Errorf("pipeline.min_similarity must be between 0 and 1, got %v", c.Pipeline.MinSimilarity)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %q, got %q", field, allowed, value)
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
