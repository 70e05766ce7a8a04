package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store kinds accepted in cache.store.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreBolt     = "bolt"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all fxanalyst configuration.
type Config struct {
	Listen    string           `yaml:"listen"`
	Settings  Settings         `yaml:"settings"`
	Providers []ProviderConfig `yaml:"providers"`
	Router    RouterConfig     `yaml:"router"`
	Cache     CacheConfig      `yaml:"cache"`
	RateLimit RateLimitConfig  `yaml:"rate_limit"`
}

// Settings are the per-deployment analysis settings. They are handed to the
// analysis requester explicitly; the cache never reads them.
type Settings struct {
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	Language     string  `yaml:"language"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// ProviderConfig defines an upstream OpenAI-compatible provider.
// An empty APIKey falls back to Settings.APIKey.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// RouterConfig defines model routing and fallback chains.
type RouterConfig struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig maps a model name to an ordered list of targets.
type RouteConfig struct {
	Model   string        `yaml:"model"`
	Targets []RouteTarget `yaml:"targets"`
}

// RouteTarget identifies a specific provider and model in a fallback chain.
type RouteTarget struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Prefix  string        `yaml:"prefix"`
	Store   string        `yaml:"store"`
	// DSN is a file path for sqlite/bolt, a redis:// URL, or a postgres connection string.
	DSN string `yaml:"dsn"`
}

// RateLimitConfig bounds requests per client IP on the HTTP API.
// Zero Requests disables limiting.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// DefaultSystemPrompt is sent as the system message unless overridden.
// {language} is replaced with Settings.Language.
const DefaultSystemPrompt = `You are an expert financial analyst. Analyze the provided market data and user query. Focus on:
- Technical Analysis (key trends, patterns)
- Risk Assessment
- Entry/Exit Points
- Market Sentiment
Provide concise, actionable insights.
IMPORTANT: Respond in {language} language.`

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Settings: Settings{
			Model:        "gpt-4-turbo-preview",
			Language:     "en",
			SystemPrompt: DefaultSystemPrompt,
			Temperature:  0.7,
			MaxTokens:    1000,
		},
		Providers: []ProviderConfig{
			{Name: "openai", URL: "https://api.openai.com"},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
			Prefix:  "analysis-cache-",
			Store:   StoreSQLite,
			DSN:     "fxanalyst.db",
		},
		RateLimit: RateLimitConfig{
			Requests: 60,
			Window:   time.Minute,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists, otherwise returns Default().
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Cache.Store {
	case StoreMemory, StoreSQLite, StoreBolt, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("invalid config: unknown cache store %q", c.Cache.Store)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("invalid config: cache ttl must be positive, got %v", c.Cache.TTL)
	}
	if c.Cache.Prefix == "" {
		return fmt.Errorf("invalid config: cache prefix must not be empty")
	}
	if c.Cache.Store != StoreMemory && c.Cache.DSN == "" {
		return fmt.Errorf("invalid config: cache dsn required for store %q", c.Cache.Store)
	}
	if c.Settings.Model == "" {
		return fmt.Errorf("invalid config: settings.model is required")
	}
	return nil
}
