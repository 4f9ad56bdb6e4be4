package server

import (
	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/kserve"
	"github.com/giantswarm/rating-eval/internal/llm"
	"github.com/giantswarm/rating-eval/internal/store"
)

// ServerContext holds the dependencies shared by MCP tool handlers.
type ServerContext struct {
	Config config.Config

	// LLMClient talks to the configured hosted model.
	LLMClient llm.Client

	// NewClient builds a client for another OpenAI-compatible endpoint, such
	// as a model deployed through KServe. Nil falls back to LLMClient.
	NewClient func(baseURL string) llm.Client

	// KServeManager is nil when no cluster is reachable.
	KServeManager *kserve.Manager

	// Store persists and serves evaluation reports.
	Store store.Store
}

// ClientFor returns the client for baseURL, or the default client when
// baseURL is empty.
func (sc *ServerContext) ClientFor(baseURL string) llm.Client {
	if baseURL == "" || sc.NewClient == nil {
		return sc.LLMClient
	}
	return sc.NewClient(baseURL)
}
