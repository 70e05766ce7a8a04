package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "analysis-cache-", cfg.Cache.Prefix)
	assert.Equal(t, "gpt-4-turbo-preview", cfg.Settings.Model)
	assert.Equal(t, "en", cfg.Settings.Language)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	path := writeConfig(t, `
listen: ":9090"
settings:
  api_key: ${TEST_API_KEY}
  model: gpt-4o
  language: de
providers:
  - name: openai
    url: https://api.openai.com
  - name: backup
    url: https://llm.example.com
    api_key: sk-backup
router:
  routes:
    - model: gpt-4o
      targets:
        - provider: openai
        - provider: backup
          model: llama-3
cache:
  store: bolt
  dsn: cache.bolt
  ttl: 30m
rate_limit:
  requests: 10
  window: 1s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "sk-test-123", cfg.Settings.APIKey, "env var not expanded")
	assert.Equal(t, "gpt-4o", cfg.Settings.Model)
	assert.Equal(t, "de", cfg.Settings.Language)
	assert.Equal(t, 0.7, cfg.Settings.Temperature, "unset fields keep defaults")
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "sk-backup", cfg.Providers[1].APIKey)
	require.Len(t, cfg.Router.Routes, 1)
	assert.Equal(t, "llama-3", cfg.Router.Routes[0].Targets[1].Model)
	assert.Equal(t, StoreBolt, cfg.Cache.Store)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, time.Second, cfg.RateLimit.Window)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Listen, cfg.Listen)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Cache.Store = "etcd" }},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"missing dsn", func(c *Config) { c.Cache.DSN = "" }},
		{"empty prefix", func(c *Config) { c.Cache.Prefix = "" }},
		{"missing model", func(c *Config) { c.Settings.Model = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Cache.Store = StoreMemory
	cfg.Cache.DSN = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "cache:\n  store: nope\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsEmptyPrefix(t *testing.T) {
	path := writeConfig(t, "cache:\n  prefix: \"\"\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "cache prefix")
}
