package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientDefaults(t *testing.T) {
	client := NewOpenAIClient()
	assert.Empty(t, client.model)
	assert.Nil(t, client.temperature)
}

func TestNewOpenAIClientWithAllOptions(t *testing.T) {
	client := NewOpenAIClient(
		WithBaseURL("https://openrouter.ai/api/v1"),
		WithAPIKey("sk-test"),
		WithModel("openai/gpt-3.5-turbo"),
		WithTemperature(0.5),
	)
	assert.Equal(t, "openai/gpt-3.5-turbo", client.model)
	require.NotNil(t, client.temperature)
	assert.Equal(t, 0.5, *client.temperature)
}

func TestApplyDefaultsUsesClientModel(t *testing.T) {
	client := NewOpenAIClient(WithModel("gpt-4"))

	req := client.applyDefaults(ChatRequest{UserMessage: "hello"})
	assert.Equal(t, "gpt-4", req.Model)
}

func TestApplyDefaultsRequestModelTakesPrecedence(t *testing.T) {
	client := NewOpenAIClient(WithModel("gpt-4"))

	req := client.applyDefaults(ChatRequest{Model: "gpt-3.5", UserMessage: "hello"})
	assert.Equal(t, "gpt-3.5", req.Model)
}

func TestApplyDefaultsUsesClientTemperature(t *testing.T) {
	client := NewOpenAIClient(WithTemperature(0.8))

	req := client.applyDefaults(ChatRequest{Model: "test", UserMessage: "hello"})
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.8, *req.Temperature)
}

func TestApplyDefaultsExplicitZeroTemperatureKept(t *testing.T) {
	client := NewOpenAIClient(WithTemperature(0.8))

	req := client.applyDefaults(ChatRequest{UserMessage: "hello", Temperature: Float64Ptr(0)})
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
}

func TestBuildRequestUserOnly(t *testing.T) {
	out := buildRequest(ChatRequest{
		Model:       "m",
		UserMessage: "rate this",
		Temperature: Float64Ptr(0.3),
		MaxTokens:   200,
	})

	require.Len(t, out.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, out.Messages[0].Role)
	assert.Equal(t, "rate this", out.Messages[0].Content)
	assert.InDelta(t, 0.3, out.Temperature, 1e-6)
	assert.Equal(t, 200, out.MaxTokens)
}

func TestBuildRequestWithSystemMessage(t *testing.T) {
	out := buildRequest(ChatRequest{SystemMessage: "sys", UserMessage: "user"})

	require.Len(t, out.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, out.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, out.Messages[1].Role)
}

func TestChatCompletionAgainstServer(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"predicted_stars\": 4}"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(
		WithBaseURL(srv.URL),
		WithAPIKey("sk-test"),
		WithModel("test-model"),
		WithTimeout(5*time.Second),
	)

	resp, err := client.ChatCompletion(context.Background(), ChatRequest{UserMessage: "rate this", MaxTokens: 200})
	require.NoError(t, err)
	assert.Equal(t, `{"predicted_stars": 4}`, resp.Content)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 200, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "rate this", got.Messages[0].Content)
}

func TestChatCompletionNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{UserMessage: "x"})
	assert.ErrorContains(t, err, "no choices")
}

func TestChatCompletionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{UserMessage: "x"})
	assert.ErrorContains(t, err, "chat completion failed")
}
