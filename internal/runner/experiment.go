package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/rating-eval/internal/dataset"
	"github.com/giantswarm/rating-eval/internal/metrics"
	"github.com/giantswarm/rating-eval/internal/strategy"
)

// Report is the outcome of one experiment: every strategy evaluated over the
// same sample.
type Report struct {
	ID              string                     `json:"id"`
	Model           string                     `json:"model"`
	Dataset         string                     `json:"dataset,omitempty"`
	Timestamp       time.Time                  `json:"timestamp"`
	Duration        float64                    `json:"full_duration"`
	SampleSize      int                        `json:"sample_size"`
	ConsistencySize int                        `json:"consistency_size"`
	Strategies      []string                   `json:"strategies"`
	Summaries       map[string]metrics.Summary `json:"summaries"`
	Insights        metrics.Insights           `json:"insights"`
	// Partial is set when the run was cancelled before every strategy finished.
	Partial bool `json:"partial,omitempty"`

	Samples []dataset.SampleItem `json:"-"`
	Results []StrategyResult     `json:"-"`
}

// Result returns the StrategyResult for name.
func (r *Report) Result(name string) (StrategyResult, bool) {
	for _, res := range r.Results {
		if res.Strategy == name {
			return res, true
		}
	}
	return StrategyResult{}, false
}

// Sink persists a finished report.
type Sink interface {
	Save(ctx context.Context, report *Report) error
}

// Experiment runs several strategies over one sample and aggregates them.
type Experiment struct {
	runner  *StrategyRunner
	model   string
	dataset string
	sinks   []Sink
	now     func() time.Time
}

// ExperimentOption configures an Experiment.
type ExperimentOption func(*Experiment)

// WithModelName records the model under evaluation in the report.
func WithModelName(name string) ExperimentOption {
	return func(e *Experiment) { e.model = name }
}

// WithDatasetName records the sample source in the report.
func WithDatasetName(name string) ExperimentOption {
	return func(e *Experiment) { e.dataset = name }
}

// WithSink adds a destination for the finished report. Sinks run in the
// order they were added.
func WithSink(s Sink) ExperimentOption {
	return func(e *Experiment) { e.sinks = append(e.sinks, s) }
}

// NewExperiment creates an Experiment driving runner.
func NewExperiment(runner *StrategyRunner, opts ...ExperimentOption) *Experiment {
	e := &Experiment{
		runner: runner,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates each strategy in order, computes its summary, ranks the
// strategies and hands the report to every sink. Strategies run sequentially.
func (e *Experiment) Run(ctx context.Context, samples []dataset.SampleItem, strategies []strategy.Strategy) (*Report, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to evaluate")
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no strategies specified for evaluation")
	}
	seen := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid strategy %q: %w", s.Name, err)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("strategy %q specified more than once", s.Name)
		}
		seen[s.Name] = true
	}

	start := e.now()
	report := &Report{
		ID:              newRunID(start),
		Model:           e.model,
		Dataset:         e.dataset,
		Timestamp:       start,
		SampleSize:      len(samples),
		ConsistencySize: min(e.runner.ConsistencySize(), len(samples)),
		Summaries:       make(map[string]metrics.Summary, len(strategies)),
		Samples:         samples,
	}
	actual := dataset.Ratings(samples)

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			slog.Warn("evaluation cancelled before strategy", "strategy", s.Name)
			report.Partial = true
			break
		}

		result := e.runner.Run(ctx, samples, s)
		summary := metrics.Compute(actual, result.Predictions, result.ConsistencyPredictions)

		report.Strategies = append(report.Strategies, s.Name)
		report.Results = append(report.Results, result)
		report.Summaries[s.Name] = summary

		if len(result.Predictions) < len(samples) {
			report.Partial = true
		}

		slog.Info("strategy summary",
			"strategy", s.Name,
			"accuracy", summary.Accuracy,
			"json_validity_rate", summary.JSONValidityRate,
			"consistency_rate", summary.ConsistencyRate,
			"mae", summary.MeanAbsoluteError,
		)
	}

	report.Insights = metrics.Rank(report.Strategies, report.Summaries)
	report.Duration = e.now().Sub(start).Seconds()

	// A cancelled run still persists what it completed.
	saveCtx := context.WithoutCancel(ctx)
	for _, sink := range e.sinks {
		if err := sink.Save(saveCtx, report); err != nil {
			return report, fmt.Errorf("failed to save report %s: %w", report.ID, err)
		}
	}

	return report, nil
}

// newRunID combines a sortable timestamp with a random suffix.
func newRunID(t time.Time) string {
	return fmt.Sprintf("%s_%s", t.Format("20060102-150405"), uuid.NewString()[:8])
}
