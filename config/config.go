// Package config provides configuration loading from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tluyben/huntflow/logging"
)

// Providers understood by HUNTFLOW_PROVIDER.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config holds all configuration for huntflow.
type Config struct {
	Provider string // HUNTFLOW_PROVIDER, default "openrouter"

	OpenRouterKey     string // OR_KEY
	OpenRouterModel   string // OR_MODEL, falls back to OR_MODEL_HIGH
	OpenRouterBaseURL string // OR_BASE_URL

	GeminiKey   string // GEMINI_API_KEY
	GeminiModel string // GEMINI_MODEL

	CompletionTimeout    time.Duration // COMPLETION_TIMEOUT_MS, default 60000ms
	CompletionMaxRetries int           // COMPLETION_MAX_RETRIES, default 3
	CompletionCacheSize  int           // COMPLETION_CACHE_SIZE, default 256; <= 0 disables

	TriageWorkers int    // TRIAGE_WORKERS, default 4
	IndexPath     string // INDEX_PATH, default "huntflow.bleve"

	LogLevel      string // LOG_LEVEL, default "info"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 3
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// named) without overriding the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Provider: strings.ToLower(getEnvString("HUNTFLOW_PROVIDER", ProviderOpenRouter)),

		OpenRouterKey:     getEnvString("OR_KEY", ""),
		OpenRouterModel:   getEnvString("OR_MODEL", getEnvString("OR_MODEL_HIGH", "")),
		OpenRouterBaseURL: getEnvString("OR_BASE_URL", "https://openrouter.ai/api/v1"),

		GeminiKey:   getEnvString("GEMINI_API_KEY", ""),
		GeminiModel: getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),

		CompletionTimeout:    getEnvDurationMs("COMPLETION_TIMEOUT_MS", 60000),
		CompletionMaxRetries: getEnvInt("COMPLETION_MAX_RETRIES", 3),
		CompletionCacheSize:  getEnvInt("COMPLETION_CACHE_SIZE", 256),

		TriageWorkers: getEnvInt("TRIAGE_WORKERS", 4),
		IndexPath:     getEnvString("INDEX_PATH", "huntflow.bleve"),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// Validate reports settings the chosen provider cannot work without.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouterKey == "" || c.OpenRouterModel == "" {
			return errors.New("OR_KEY and OR_MODEL environment variables must be set")
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			return errors.New("GEMINI_API_KEY environment variable must be set")
		}
	default:
		return fmt.Errorf("unknown HUNTFLOW_PROVIDER %q", c.Provider)
	}
	if c.TriageWorkers < 1 {
		return fmt.Errorf("TRIAGE_WORKERS must be at least 1, got %d", c.TriageWorkers)
	}
	return nil
}

// Logging returns the logging settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		FilePath:   c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
		Compress:   c.LogCompress,
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
