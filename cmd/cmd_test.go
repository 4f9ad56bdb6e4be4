package cmd

import (
	"bytes"
	"math"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/metrics"
	"github.com/giantswarm/rating-eval/internal/runner"
)

func TestEvalFlagsApplyOnlyChanged(t *testing.T) {
	var f evalFlags
	cmd := &cobra.Command{Use: "evaluate"}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--test-size", "25", "--seed", "9"}))

	cfg := config.Config{TestSize: 200, ConsistencySize: 10, Seed: 42, OutputDir: "out", Dataset: "mine"}
	f.apply(cmd, &cfg)

	assert.Equal(t, 25, cfg.TestSize)
	assert.Equal(t, uint64(9), cfg.Seed)
	assert.Equal(t, 10, cfg.ConsistencySize)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "mine", cfg.Dataset)
}

func TestLLMFlagsApply(t *testing.T) {
	f := llmFlags{model: "qwen"}
	cfg := config.Config{Model: "openai/gpt-3.5-turbo", BaseURL: config.DefaultBaseURL, APIKey: "k"}
	f.apply(&cfg)

	assert.Equal(t, "qwen", cfg.Model)
	assert.Equal(t, config.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "k", cfg.APIKey)
}

func TestPrintReport(t *testing.T) {
	report := &runner.Report{
		ID:         "20260101-000000_abcdef12",
		Duration:   12.34,
		Strategies: []string{"naive", "rubric"},
		Summaries: map[string]metrics.Summary{
			"naive":  {Accuracy: 50, JSONValidityRate: 100, ConsistencyRate: 80, MeanAbsoluteError: 0.5, ValidPredictions: 4, TotalPredictions: 4},
			"rubric": {MeanAbsoluteError: math.Inf(1), TotalPredictions: 4},
		},
		Insights: metrics.Insights{
			Accuracy:     metrics.Best{Strategy: "naive", Value: 50},
			JSONValidity: metrics.Best{Strategy: "naive", Value: 100},
			Consistency:  metrics.Best{Strategy: "naive", Value: 80},
		},
		Partial: true,
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Run ID: 20260101-000000_abcdef12")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "0.50")
	assert.Contains(t, out, "0/4")
	assert.Contains(t, out, "Best accuracy: naive (50.00%)")
	assert.Contains(t, out, "Lowest MAE: n/a")
}
