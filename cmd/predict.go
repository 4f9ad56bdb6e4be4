package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/runner"
	"github.com/giantswarm/rating-eval/internal/strategy"
)

func newPredictCmd() *cobra.Command {
	var (
		llmOpts        llmFlags
		strategyName   string
		strategiesFile string
		maxRetries     int
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "predict [review text]",
		Short: "Predict the star rating of a single review",
		Long: `Ask the model for the 1-5 star rating of one review using a single prompt strategy.

The review is taken from the arguments, or read from stdin when no argument is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			review := strings.Join(args, " ")
			if review == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read review from stdin: %w", err)
				}
				review = string(data)
			}
			if strings.TrimSpace(review) == "" {
				return fmt.Errorf("review text is required")
			}

			cfg := config.Load()
			llmOpts.apply(&cfg)
			if cmd.Flags().Changed("strategies-file") {
				cfg.StrategiesFile = strategiesFile
			}
			if cmd.Flags().Changed("max-retries") {
				cfg.MaxRetries = maxRetries
			}
			if cfg.MaxRetries <= 0 {
				return fmt.Errorf("max retries must be positive, got %d", cfg.MaxRetries)
			}

			selected, err := strategy.Resolve([]string{strategyName}, cfg.StrategiesFile)
			if err != nil {
				return err
			}

			requester := runner.NewRequesterFromConfig(newLLMClient(cfg, ""), cfg)
			pred := requester.Request(cmd.Context(), review, selected[0].Template, cfg.MaxRetries)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(pred)
			}

			if !pred.HasStars() {
				if pred.RawResponse != "" {
					_, _ = fmt.Fprintf(out, "Raw response: %s\n", pred.RawResponse)
				}
				return fmt.Errorf("no valid prediction after %d attempt(s): %s", pred.Attempts, pred.Error)
			}
			_, _ = fmt.Fprintf(out, "Rating: %d/5 (%s)\n", pred.Stars(), strings.Repeat("*", pred.Stars()))
			_, _ = fmt.Fprintf(out, "Explanation: %s\n", pred.Explanation)
			return nil
		},
	}

	llmOpts.register(cmd)
	cmd.Flags().StringVarP(&strategyName, "strategy", "s", strategy.Rubric, "Prompt strategy to use")
	cmd.Flags().StringVar(&strategiesFile, "strategies-file", "", "YAML file with additional strategies")
	cmd.Flags().IntVar(&maxRetries, "max-retries", config.DefaultMaxRetries, "Attempts before giving up")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full prediction as JSON")

	return cmd
}
