package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers/dex"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// OAuthProviderDex is the only supported identity provider.
const OAuthProviderDex = "dex"

const defaultMaxClientsPerIP = 10

// OAuthConfig configures the OAuth 2.1 protected HTTP transport.
type OAuthConfig struct {
	// BaseURL is the public URL clients reach the server on, e.g.
	// https://rating-eval.example.com. Must be HTTPS unless loopback.
	BaseURL string

	// Provider is recorded for visibility; only "dex" is accepted.
	Provider string

	DexIssuerURL    string
	DexClientID     string
	DexClientSecret string

	// MaxClientsPerIP limits dynamic client registrations. Zero means 10.
	MaxClientsPerIP int
}

// Validate checks that every required field is present.
func (c OAuthConfig) Validate() error {
	if c.Provider != "" && c.Provider != OAuthProviderDex {
		return fmt.Errorf("unsupported OAuth provider %q (supported: %s)", c.Provider, OAuthProviderDex)
	}
	if err := validateHTTPSRequirement(c.BaseURL); err != nil {
		return fmt.Errorf("OAuth base URL validation failed: %w", err)
	}
	switch {
	case c.DexIssuerURL == "":
		return fmt.Errorf("dex issuer URL is required (--dex-issuer-url or DEX_ISSUER_URL)")
	case c.DexClientID == "":
		return fmt.Errorf("dex client ID is required (--dex-client-id or DEX_CLIENT_ID)")
	case c.DexClientSecret == "":
		return fmt.Errorf("dex client secret is required (--dex-client-secret or DEX_CLIENT_SECRET)")
	}
	return nil
}

// OAuthHTTPServer serves MCP behind OAuth 2.1 bearer-token validation.
type OAuthHTTPServer struct {
	mcpServer    *mcpserver.MCPServer
	oauthServer  *oauth.Server
	oauthHandler *oauth.Handler
	httpServer   *http.Server
	mcpEndpoint  string
}

// NewOAuthHTTPServer wires a Dex provider and in-memory token storage in
// front of mcpSrv. Tokens do not survive a restart.
func NewOAuthHTTPServer(mcpSrv *mcpserver.MCPServer, mcpEndpoint string, cfg OAuthConfig) (*OAuthHTTPServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := dex.NewProvider(&dex.Config{
		IssuerURL:    cfg.DexIssuerURL,
		ClientID:     cfg.DexClientID,
		ClientSecret: cfg.DexClientSecret,
		RedirectURL:  cfg.BaseURL + "/oauth/callback",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Dex provider: %w", err)
	}

	maxClients := cfg.MaxClientsPerIP
	if maxClients <= 0 {
		maxClients = defaultMaxClientsPerIP
	}

	tokens := memory.New()
	logger := slog.Default()

	oauthSrv, err := oauth.NewServer(provider, tokens, tokens, tokens,
		&oauthserver.Config{
			Issuer:                    cfg.BaseURL,
			AllowRefreshTokenRotation: true,
			MaxClientsPerIP:           maxClients,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	return &OAuthHTTPServer{
		mcpServer:    mcpSrv,
		oauthServer:  oauthSrv,
		oauthHandler: oauth.NewHandler(oauthSrv, logger),
		mcpEndpoint:  mcpEndpoint,
	}, nil
}

// routes registers the OAuth endpoints, the protected MCP endpoint and
// /healthz.
func (s *OAuthHTTPServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	h := s.oauthHandler

	h.RegisterAuthorizationServerMetadataRoutes(mux)
	h.RegisterProtectedResourceMetadataRoutes(mux, s.mcpEndpoint)
	for path, fn := range map[string]http.HandlerFunc{
		"/oauth/authorize":  h.ServeAuthorization,
		"/oauth/token":      h.ServeToken,
		"/oauth/callback":   h.ServeCallback,
		"/oauth/register":   h.ServeClientRegistration,
		"/oauth/revoke":     h.ServeTokenRevocation,
		"/oauth/introspect": h.ServeTokenIntrospection,
	} {
		mux.HandleFunc(path, fn)
	}

	mcpHandler := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(s.mcpEndpoint),
	)
	mux.Handle(s.mcpEndpoint, h.ValidateToken(mcpHandler))
	mux.HandleFunc("/healthz", healthz)
	return mux
}

// Start listens on addr until Shutdown.
func (s *OAuthHTTPServer) Start(addr string) error {
	s.httpServer = newHTTPServer(addr, s.routes())
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the OAuth background workers, then the HTTP server.
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	if s.oauthServer != nil {
		if err := s.oauthServer.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OAuth server", "error", err)
		}
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// validateHTTPSRequirement allows plain HTTP only on loopback hosts.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
		return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
	default:
		return fmt.Errorf("invalid URL scheme: %s (must be http for localhost or https)", u.Scheme)
	}
}
