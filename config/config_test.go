package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/huntflow/config"
)

var envKeys = []string{
	"HUNTFLOW_PROVIDER", "OR_KEY", "OR_MODEL", "OR_MODEL_HIGH", "OR_BASE_URL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "COMPLETION_TIMEOUT_MS",
	"COMPLETION_MAX_RETRIES", "COMPLETION_CACHE_SIZE", "TRIAGE_WORKERS",
	"INDEX_PATH", "LOG_LEVEL", "LOG_FILE", "LOG_COMPRESS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()
	assert.Equal(t, config.ProviderOpenRouter, cfg.Provider)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouterBaseURL)
	assert.Equal(t, 60*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, 3, cfg.CompletionMaxRetries)
	assert.Equal(t, 256, cfg.CompletionCacheSize)
	assert.Equal(t, 4, cfg.TriageWorkers)
	assert.Equal(t, "huntflow.bleve", cfg.IndexPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogCompress)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUNTFLOW_PROVIDER", "Gemini")
	t.Setenv("COMPLETION_TIMEOUT_MS", "1500")
	t.Setenv("COMPLETION_CACHE_SIZE", "0")
	t.Setenv("TRIAGE_WORKERS", "not-a-number")
	t.Setenv("LOG_COMPRESS", "off")

	cfg := config.Load()
	assert.Equal(t, config.ProviderGemini, cfg.Provider)
	assert.Equal(t, 1500*time.Millisecond, cfg.CompletionTimeout)
	assert.Equal(t, 0, cfg.CompletionCacheSize)
	assert.Equal(t, 4, cfg.TriageWorkers)
	assert.False(t, cfg.LogCompress)
}

func TestModelFallsBackToHigh(t *testing.T) {
	clearEnv(t)
	t.Setenv("OR_MODEL_HIGH", "anthropic/claude-3.5-sonnet")
	assert.Equal(t, "anthropic/claude-3.5-sonnet", config.Load().OpenRouterModel)

	t.Setenv("OR_MODEL", "openai/gpt-4o")
	assert.Equal(t, "openai/gpt-4o", config.Load().OpenRouterModel)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()
	assert.Error(t, cfg.Validate())

	cfg.OpenRouterKey = "k"
	cfg.OpenRouterModel = "m"
	assert.NoError(t, cfg.Validate())

	cfg.Provider = config.ProviderGemini
	assert.Error(t, cfg.Validate())
	cfg.GeminiKey = "g"
	assert.NoError(t, cfg.Validate())

	cfg.TriageWorkers = 0
	assert.Error(t, cfg.Validate())

	cfg.TriageWorkers = 1
	cfg.Provider = "bedrock"
	assert.Error(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("INDEX_PATH")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("INDEX_PATH=/tmp/evidence.bleve\n"), 0600))
	require.NoError(t, config.LoadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("INDEX_PATH") })

	assert.Equal(t, "/tmp/evidence.bleve", config.Load().IndexPath)
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoggingConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/var/log/huntflow.log")

	lc := config.Load().Logging()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "/var/log/huntflow.log", lc.FilePath)
	assert.Equal(t, 10, lc.MaxSizeMB)
}
