package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/llm"
	"github.com/giantswarm/rating-eval/internal/testutil"
)

func TestValidateHTTPSRequirement(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"https", "https://rating-eval.example.com", false},
		{"localhost http", "http://localhost:8080", false},
		{"ipv4 loopback http", "http://127.0.0.1:8080", false},
		{"ipv6 loopback http", "http://[::1]:8080", false},
		{"public http", "http://example.com", true},
		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHTTPSRequirement(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOAuthConfigValidate(t *testing.T) {
	valid := OAuthConfig{
		BaseURL:         "https://rating-eval.example.com",
		Provider:        OAuthProviderDex,
		DexIssuerURL:    "https://dex.example.com",
		DexClientID:     "rating-eval",
		DexClientSecret: "secret",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*OAuthConfig)
		errMsg string
	}{
		{"unknown provider", func(c *OAuthConfig) { c.Provider = "okta" }, "unsupported OAuth provider"},
		{"http base url", func(c *OAuthConfig) { c.BaseURL = "http://example.com" }, "base URL"},
		{"no issuer", func(c *OAuthConfig) { c.DexIssuerURL = "" }, "issuer URL"},
		{"no client id", func(c *OAuthConfig) { c.DexClientID = "" }, "client ID"},
		{"no secret", func(c *OAuthConfig) { c.DexClientSecret = "" }, "client secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestHTTPServerHealthz(t *testing.T) {
	srv := NewHTTPServer(mcpserver.NewMCPServer("test", "0.0.0"), "/mcp")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHTTPServerShutdownBeforeStart(t *testing.T) {
	srv := NewHTTPServer(mcpserver.NewMCPServer("test", "0.0.0"), "/mcp")
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestClientFor(t *testing.T) {
	def := &testutil.MockLLMClient{DefaultResponse: "default"}
	other := &testutil.MockLLMClient{DefaultResponse: "other"}

	var gotURL string
	sc := &ServerContext{
		Config:    config.Config{Model: "m"},
		LLMClient: def,
		NewClient: func(baseURL string) llm.Client {
			gotURL = baseURL
			return other
		},
	}

	assert.Same(t, def, sc.ClientFor(""))
	assert.Same(t, other, sc.ClientFor("http://qwen.example.com/v1"))
	assert.Equal(t, "http://qwen.example.com/v1", gotURL)

	sc.NewClient = nil
	assert.Same(t, def, sc.ClientFor("http://qwen.example.com/v1"))
}
