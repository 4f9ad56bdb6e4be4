// Package config builds the immutable run configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when the environment does not override them.
const (
	DefaultBaseURL         = "https://openrouter.ai/api/v1"
	DefaultModel           = "openai/gpt-3.5-turbo"
	DefaultDataset         = "yelp-demo"
	DefaultTestSize        = 200
	DefaultConsistencySize = 10
	DefaultMaxRetries      = 2
	DefaultRatePause       = 500 * time.Millisecond
	DefaultRetryDelay      = time.Second
	DefaultSeed            = 42
	DefaultOutputDir       = "results"
)

// Config holds everything an evaluation run needs. It is built once and
// passed by value; nothing in the module mutates it after Load.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	Dataset         string
	DatasetsDir     string
	StrategiesFile  string
	TestSize        int
	ConsistencySize int
	Seed            uint64

	MaxRetries int
	RatePause  time.Duration
	RetryDelay time.Duration

	OutputDir string
	RedisAddr string
}

// Load reads an optional .env file and then the process environment.
// Unparsable numeric values fall back to defaults with a warning.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return Config{
		APIKey:          apiKey,
		BaseURL:         getEnvOrDefault("LLM_BASE_URL", DefaultBaseURL),
		Model:           getEnvOrDefault("LLM_MODEL", DefaultModel),
		Dataset:         getEnvOrDefault("EVAL_DATASET", DefaultDataset),
		DatasetsDir:     os.Getenv("EVAL_DATASETS_DIR"),
		StrategiesFile:  os.Getenv("EVAL_STRATEGIES_FILE"),
		TestSize:        getIntOrDefault("EVAL_TEST_SIZE", DefaultTestSize),
		ConsistencySize: getIntOrDefault("EVAL_CONSISTENCY_SIZE", DefaultConsistencySize),
		Seed:            uint64(getIntOrDefault("EVAL_SEED", DefaultSeed)),
		MaxRetries:      getIntOrDefault("EVAL_MAX_RETRIES", DefaultMaxRetries),
		RatePause:       getDurationOrDefault("EVAL_RATE_PAUSE", DefaultRatePause),
		RetryDelay:      getDurationOrDefault("EVAL_RETRY_DELAY", DefaultRetryDelay),
		OutputDir:       getEnvOrDefault("EVAL_OUTPUT_DIR", DefaultOutputDir),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
	}
}

// Validate rejects settings that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.TestSize <= 0 {
		return fmt.Errorf("test size must be positive, got %d", c.TestSize)
	}
	if c.ConsistencySize < 0 {
		return fmt.Errorf("consistency size must not be negative, got %d", c.ConsistencySize)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive, got %d", c.MaxRetries)
	}
	if c.RatePause < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("pauses must not be negative")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}
