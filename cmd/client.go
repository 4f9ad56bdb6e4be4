package cmd

import (
	"github.com/spf13/cobra"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/llm"
)

// llmFlags are the endpoint overrides shared by evaluate, predict and serve.
type llmFlags struct {
	endpoint string
	apiKey   string
	model    string
}

func (f *llmFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "OpenAI-compatible API base URL (or set LLM_BASE_URL)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key (or set OPENROUTER_API_KEY / OPENAI_API_KEY)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (or set LLM_MODEL)")
}

// apply overrides the matching cfg fields with the flags that were set.
func (f *llmFlags) apply(cfg *config.Config) {
	if f.endpoint != "" {
		cfg.BaseURL = f.endpoint
	}
	if f.apiKey != "" {
		cfg.APIKey = f.apiKey
	}
	if f.model != "" {
		cfg.Model = f.model
	}
}

// newLLMClient creates a client for cfg. A non-empty baseURL replaces
// cfg.BaseURL, for models served from a different endpoint.
func newLLMClient(cfg config.Config, baseURL string) llm.Client {
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	var opts []llm.Option
	if baseURL != "" {
		opts = append(opts, llm.WithBaseURL(baseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, llm.WithAPIKey(cfg.APIKey))
	}
	if cfg.Model != "" {
		opts = append(opts, llm.WithModel(cfg.Model))
	}
	return llm.NewOpenAIClient(opts...)
}
