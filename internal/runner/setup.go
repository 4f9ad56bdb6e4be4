package runner

import (
	"fmt"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/dataset"
	"github.com/giantswarm/rating-eval/internal/llm"
	"github.com/giantswarm/rating-eval/internal/prediction"
)

// NewRequesterFromConfig builds the production Predictor for cfg.
func NewRequesterFromConfig(client llm.Client, cfg config.Config) *prediction.Requester {
	return prediction.NewRequester(client,
		prediction.WithModel(cfg.Model),
		prediction.WithDelay(prediction.FixedDelay(cfg.RetryDelay)),
	)
}

// NewExperimentFromConfig wires requester, runner and experiment the same
// way for the CLI and the MCP server. progress may be nil.
func NewExperimentFromConfig(client llm.Client, cfg config.Config, progress ProgressFunc, sinks ...Sink) *Experiment {
	sr := NewStrategyRunner(NewRequesterFromConfig(client, cfg),
		WithMaxRetries(cfg.MaxRetries),
		WithConsistencySize(cfg.ConsistencySize),
		WithRatePause(cfg.RatePause),
		WithProgress(progress),
	)

	opts := []ExperimentOption{
		WithModelName(cfg.Model),
		WithDatasetName(cfg.Dataset),
	}
	for _, s := range sinks {
		opts = append(opts, WithSink(s))
	}
	return NewExperiment(sr, opts...)
}

// LoadSample loads cfg.Dataset and draws cfg.TestSize items with cfg.Seed.
func LoadSample(cfg config.Config) ([]dataset.SampleItem, error) {
	items, err := dataset.Load(cfg.Dataset, cfg.DatasetsDir)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("dataset %q has no usable rows", cfg.Dataset)
	}
	return dataset.Sample(items, cfg.TestSize, cfg.Seed), nil
}
