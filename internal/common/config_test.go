package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
	assert.Equal(t, "gnews", config.News.Provider)
	assert.Equal(t, "yahoo", config.Prices.Provider)
	assert.Equal(t, 5, config.News.Max)
	assert.Equal(t, 14, config.Warehouse.LookbackDays)
	assert.False(t, config.Warehouse.Enabled)
	assert.Contains(t, config.Ticker.ExchangeSuffixes, ".L")
	require.NoError(t, config.Validate())
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9000
host = "0.0.0.0"

[news]
max = 3
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 9100

[prices]
provider = "eodhd"
`), 0644))

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 3, config.News.Max)
	assert.Equal(t, "eodhd", config.Prices.Provider)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadFromFiles_InvalidProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[llm]
default_provider = "mystery"
`), 0644))

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_provider")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MARKETLENS_SERVER_PORT", "7070")
	t.Setenv("MARKETLENS_LLM_PROVIDER", "Claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("GNEWS_API_KEY", "gnews-test")
	t.Setenv("MARKETLENS_LOG_OUTPUT", "stdout, file")

	config := NewDefaultConfig()
	applyEnvOverrides(config)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	assert.Equal(t, "sk-ant-test", config.Claude.APIKey)
	assert.Equal(t, "gnews-test", config.News.APIKey)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
}

func TestApplyEnvOverrides_PrefixedKeyWins(t *testing.T) {
	t.Setenv("MARKETLENS_GEMINI_API_KEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "vendor")

	config := NewDefaultConfig()
	applyEnvOverrides(config)

	assert.Equal(t, "prefixed", config.Gemini.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)

	ApplyFlagOverrides(config, 9999, "127.0.0.1")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}

func TestValidate_RejectsBadSchedule(t *testing.T) {
	config := NewDefaultConfig()
	config.Warehouse.Enabled = true
	config.Warehouse.RefreshSchedule = "every morning"

	assert.Error(t, config.Validate())
}

func TestValidate_SessionLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SessionConfig)
	}{
		{"negative max live", func(c *SessionConfig) { c.MaxLive = -1 }},
		{"bad idle ttl", func(c *SessionConfig) { c.IdleTTL = "a week" }},
		{"zero idle ttl", func(c *SessionConfig) { c.IdleTTL = "0s" }},
		{"bad sweep schedule", func(c *SessionConfig) { c.SweepSchedule = "hourly" }},
	}

	require.NoError(t, NewDefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(&config.Session)
			assert.Error(t, config.Validate())
		})
	}
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDurationOr("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("soon", time.Minute))
}

func TestDiscoverConfigFiles(t *testing.T) {
	assert.Equal(t, []string{"a.toml", "b.toml"}, DiscoverConfigFiles([]string{"a.toml", "b.toml"}))

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))
	t.Setenv("MARKETLENS_CONFIG", path)

	assert.Equal(t, []string{path}, DiscoverConfigFiles(nil))
}

func TestConfigPaths(t *testing.T) {
	var paths ConfigPaths
	require.NoError(t, paths.Set("base.toml"))
	require.NoError(t, paths.Set("local.toml"))
	assert.Equal(t, "base.toml,local.toml", paths.String())
}
