package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/kserve"
	"github.com/giantswarm/rating-eval/internal/llm"
	mcptools "github.com/giantswarm/rating-eval/internal/mcp"
	"github.com/giantswarm/rating-eval/internal/server"
	"github.com/giantswarm/rating-eval/internal/store"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var (
		llmOpts      llmFlags
		transport    string
		httpAddr     string
		httpEndpoint string
		inCluster    bool
		outputDir    string
		debug        bool

		enableOAuth     bool
		oauthBaseURL    string
		oauthProvider   string
		dexIssuerURL    string
		dexClientID     string
		dexClientSecret string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server to expose rating evaluation tools via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default, for IDE integration)
  - streamable-http: HTTP with streaming support (for remote access)

When using streamable-http transport, OAuth 2.1 authentication can be enabled.
Evaluation runs are stored in Redis when REDIS_ADDR is set, otherwise in --output-dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := config.Load()
			llmOpts.apply(&cfg)
			if cmd.Flags().Changed("output-dir") {
				cfg.OutputDir = outputDir
			}

			sc := &server.ServerContext{
				Config:    cfg,
				LLMClient: newLLMClient(cfg, ""),
				NewClient: func(baseURL string) llm.Client { return newLLMClient(cfg, baseURL) },
			}

			resultStore, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			sc.Store = resultStore

			namespace, _ := cmd.Flags().GetString("namespace")
			kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
			ksManager, err := kserve.NewManager(namespace, kubeconfig, inCluster)
			if err != nil {
				slog.Warn("KServe manager not available", "error", err)
			} else {
				sc.KServeManager = ksManager
			}

			mcpSrv := mcpserver.NewMCPServer("rating-eval", rootCmd.Version,
				mcpserver.WithToolCapabilities(true),
			)
			if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
				return fmt.Errorf("failed to register MCP tools: %w", err)
			}

			switch transport {
			case transportStdio:
				if err := mcpserver.ServeStdio(mcpSrv); err != nil {
					return fmt.Errorf("server stopped with error: %w", err)
				}
				return nil
			case transportStreamableHTTP:
				fmt.Fprintf(os.Stderr, "Starting rating-eval MCP server with %s transport on %s...\n", transport, httpAddr)
				if !enableOAuth {
					fmt.Fprintf(os.Stderr, "  MCP endpoint: %s\n  Health: /healthz\n", httpEndpoint)
					return server.Run(ctx, server.NewHTTPServer(mcpSrv, httpEndpoint), httpAddr)
				}

				oauthCfg := server.OAuthConfig{
					BaseURL:         oauthBaseURL,
					Provider:        oauthProvider,
					DexIssuerURL:    envFallback(dexIssuerURL, "DEX_ISSUER_URL"),
					DexClientID:     envFallback(dexClientID, "DEX_CLIENT_ID"),
					DexClientSecret: envFallback(dexClientSecret, "DEX_CLIENT_SECRET"),
				}
				if oauthCfg.BaseURL == "" {
					return fmt.Errorf("--oauth-base-url is required when --enable-oauth is set")
				}
				oauthSrv, err := server.NewOAuthHTTPServer(mcpSrv, httpEndpoint, oauthCfg)
				if err != nil {
					return fmt.Errorf("failed to create OAuth HTTP server: %w", err)
				}
				fmt.Fprintf(os.Stderr, "  Base URL: %s\n", oauthCfg.BaseURL)
				fmt.Fprintf(os.Stderr, "  MCP endpoint: %s (requires OAuth Bearer token)\n", httpEndpoint)
				fmt.Fprintf(os.Stderr, "  Health: /healthz\n")
				return server.Run(ctx, oauthSrv, httpAddr)
			default:
				return fmt.Errorf("unsupported transport: %s (supported: stdio, streamable-http)", transport)
			}
		},
	}

	llmOpts.register(cmd)
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http)")
	cmd.Flags().BoolVar(&inCluster, "in-cluster", false, "Use in-cluster Kubernetes authentication")
	cmd.Flags().StringVar(&outputDir, "output-dir", config.DefaultOutputDir, "Directory for evaluation results (without Redis)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.Flags().BoolVar(&enableOAuth, "enable-oauth", false, "Enable OAuth 2.1 authentication (for HTTP transport)")
	cmd.Flags().StringVar(&oauthBaseURL, "oauth-base-url", "", "OAuth base URL (e.g. https://rating-eval.example.com)")
	cmd.Flags().StringVar(&oauthProvider, "oauth-provider", server.OAuthProviderDex, "OAuth provider: dex")
	cmd.Flags().StringVar(&dexIssuerURL, "dex-issuer-url", "", "Dex OIDC issuer URL (or set DEX_ISSUER_URL)")
	cmd.Flags().StringVar(&dexClientID, "dex-client-id", "", "Dex OAuth client ID (or set DEX_CLIENT_ID)")
	cmd.Flags().StringVar(&dexClientSecret, "dex-client-secret", "", "Dex OAuth client secret (or set DEX_CLIENT_SECRET)")

	return cmd
}

// openStore picks Redis when cfg.RedisAddr is set, the output directory otherwise.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return store.NewFileStore(cfg.OutputDir), func() {}, nil
	}
	client, err := store.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("storing results in redis", "addr", cfg.RedisAddr)
	return store.NewRedisStore(client, store.DefaultRedisTTL), func() { _ = client.Close() }, nil
}

func envFallback(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
