package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp isolates Load from any .env in the package directory.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "LLM_BASE_URL", "LLM_MODEL",
		"EVAL_DATASET", "EVAL_DATASETS_DIR", "EVAL_STRATEGIES_FILE", "EVAL_TEST_SIZE",
		"EVAL_CONSISTENCY_SIZE", "EVAL_SEED", "EVAL_MAX_RETRIES", "EVAL_RATE_PAUSE",
		"EVAL_RETRY_DELAY", "EVAL_OUTPUT_DIR", "REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultDataset, cfg.Dataset)
	assert.Equal(t, DefaultTestSize, cfg.TestSize)
	assert.Equal(t, DefaultConsistencySize, cfg.ConsistencySize)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultRatePause, cfg.RatePause)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
	assert.Equal(t, uint64(DefaultSeed), cfg.Seed)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.RedisAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("EVAL_TEST_SIZE", "20")
	t.Setenv("EVAL_RATE_PAUSE", "0s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()

	assert.Equal(t, "sk-openai", cfg.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 20, cfg.TestSize)
	assert.Equal(t, time.Duration(0), cfg.RatePause)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadPrefersOpenRouterKey(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	assert.Equal(t, "sk-or", Load().APIKey)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("EVAL_TEST_SIZE", "lots")
	t.Setenv("EVAL_RETRY_DELAY", "soon")

	cfg := Load()
	assert.Equal(t, DefaultTestSize, cfg.TestSize)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	clearEnv(t)
	// godotenv does not override variables that are already set, even to "".
	require.NoError(t, os.Unsetenv("LLM_MODEL"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_MODEL=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LLM_MODEL") })

	assert.Equal(t, "from-dotenv", Load().Model)
}

func TestValidate(t *testing.T) {
	base := Config{Model: "m", TestSize: 1, MaxRetries: 1}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero test size", func(c *Config) { c.TestSize = 0 }, true},
		{"negative consistency", func(c *Config) { c.ConsistencySize = -1 }, true},
		{"zero consistency allowed", func(c *Config) { c.ConsistencySize = 0 }, false},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"negative pause", func(c *Config) { c.RatePause = -time.Second }, true},
		{"no model", func(c *Config) { c.Model = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
