package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rating-eval",
	Short: "Compare LLM prompt strategies for 1-5 star review rating prediction",
	Long: `rating-eval measures how well prompt strategies get an LLM to predict the star
rating of a review. Each strategy is run over the same labeled sample and scored on
exact-match accuracy, JSON validity, run-to-run consistency and mean absolute error.

Models are reached through any OpenAI-compatible endpoint (OpenRouter by default) or
served on demand via KServe InferenceService CRDs (vLLM runtime). All functionality is
also exposed via an MCP server with optional OAuth 2.1 authentication.

When run without subcommands, it starts the MCP server (equivalent to 'rating-eval serve').`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

// serveCmd is stored so the root command can delegate to it by default.
var serveCmd *cobra.Command

var (
	buildCommit = "unknown"
	buildDate   = "unknown"
)

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetBuildInfo sets the commit and build date for the version command.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "rating-eval version %s\n" .Version}}`)

	// The root command cannot parse serve-specific flags, so it only falls
	// back to stdio.
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stderr, "No subcommand specified. Defaulting to 'serve' (stdio transport).")
		fmt.Fprintln(os.Stderr, "For HTTP transport or OAuth, use: rating-eval serve --transport streamable-http")
		fmt.Fprintln(os.Stderr)
		if err := serveCmd.RunE(serveCmd, args); err != nil {
			slog.Error("serve failed", "error", err)
			os.Exit(1)
		}
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	serveCmd = newServeCmd()
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newPredictCmd())
	rootCmd.AddCommand(newStrategiesCmd())

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("kubeconfig", "", "Path to kubeconfig file")
	rootCmd.PersistentFlags().StringP("namespace", "n", "rating-eval", "Kubernetes namespace for InferenceService resources")
}
