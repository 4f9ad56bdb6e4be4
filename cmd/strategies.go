package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/dataset"
	"github.com/giantswarm/rating-eval/internal/strategy"
)

func newStrategiesCmd() *cobra.Command {
	var (
		strategiesFile string
		showTemplate   bool
		datasetsDir    string
	)

	cmd := &cobra.Command{
		Use:     "strategies",
		Aliases: []string{"list"},
		Short:   "List available prompt strategies and datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("strategies-file") {
				cfg.StrategiesFile = strategiesFile
			}
			if cmd.Flags().Changed("datasets-dir") {
				cfg.DatasetsDir = datasetsDir
			}

			strategies, err := strategy.Resolve(nil, cfg.StrategiesFile)
			if err != nil {
				return fmt.Errorf("failed to load strategies: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Available strategies:\n\n")
			for _, s := range strategies {
				_, _ = fmt.Fprintf(out, "  - %s\n", s.Name)
				if s.Description != "" {
					_, _ = fmt.Fprintf(out, "    Description: %s\n", s.Description)
				}
				if showTemplate {
					_, _ = fmt.Fprintf(out, "    Template:\n")
					for _, line := range strings.Split(strings.TrimRight(s.Template, "\n"), "\n") {
						_, _ = fmt.Fprintf(out, "      %s\n", line)
					}
				}
				_, _ = fmt.Fprintln(out)
			}

			names, err := dataset.List(cfg.DatasetsDir)
			if err != nil {
				return fmt.Errorf("failed to list datasets: %w", err)
			}
			_, _ = fmt.Fprintf(out, "Available datasets:\n\n")
			for _, name := range names {
				_, _ = fmt.Fprintf(out, "  - %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategiesFile, "strategies-file", "", "YAML file with additional strategies")
	cmd.Flags().StringVar(&datasetsDir, "datasets-dir", "", "External datasets directory")
	cmd.Flags().BoolVar(&showTemplate, "templates", false, "Print each strategy's prompt template")

	return cmd
}
