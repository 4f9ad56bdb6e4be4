// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/giantswarm/rating-eval/internal/llm"
)

// Reply is one scripted outcome of a ChatCompletion call.
type Reply struct {
	Content string
	Err     error
}

// MockLLMClient is a configurable mock for llm.Client used across test packages.
type MockLLMClient struct {
	mu sync.Mutex

	// Script is consumed in order, one entry per call. Once exhausted,
	// Responses and DefaultResponse apply.
	Script []Reply

	// Responses maps user messages to canned responses.
	Responses map[string]string

	// DefaultResponse is returned when no matching key is found in Responses.
	DefaultResponse string

	// Calls tracks the number of ChatCompletion invocations.
	Calls int

	// Requests records every ChatRequest for inspection.
	Requests []llm.ChatRequest
}

func (m *MockLLMClient) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Requests = append(m.Requests, req)

	if len(m.Script) > 0 {
		next := m.Script[0]
		m.Script = m.Script[1:]
		if next.Err != nil {
			return nil, next.Err
		}
		return &llm.ChatResponse{Content: next.Content}, nil
	}

	if resp, ok := m.Responses[req.UserMessage]; ok {
		return &llm.ChatResponse{Content: resp}, nil
	}

	return &llm.ChatResponse{Content: m.DefaultResponse}, nil
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockLLMClient) LastRequest() llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return llm.ChatRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// RatingJSON returns a well-formed prediction payload.
func RatingJSON(stars int, explanation string) string {
	return fmt.Sprintf(`{"predicted_stars": %d, "explanation": %q}`, stars, explanation)
}
