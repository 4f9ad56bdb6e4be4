package llm

import "time"

// Float64Ptr returns a pointer to v, for ChatRequest.Temperature.
func Float64Ptr(v float64) *float64 {
	return &v
}

type clientConfig struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
	timeout     time.Duration
}

// Option configures an OpenAIClient.
type Option func(*clientConfig)

// WithBaseURL points the client at an OpenAI-compatible endpoint
// (OpenRouter, a KServe predictor, a local vLLM).
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithModel sets the model used when a request leaves Model empty.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithTemperature sets the temperature used when a request leaves it nil.
func WithTemperature(temp float64) Option {
	return func(c *clientConfig) {
		c.temperature = &temp
	}
}

// WithTimeout bounds each HTTP round trip. Zero keeps the go-openai default.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}
