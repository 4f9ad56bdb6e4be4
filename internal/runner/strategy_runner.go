package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/giantswarm/rating-eval/internal/dataset"
	"github.com/giantswarm/rating-eval/internal/prediction"
	"github.com/giantswarm/rating-eval/internal/strategy"
)

// Pass names reported to ProgressFunc.
const (
	PassFull        = "full"
	PassConsistency = "consistency"
)

// DefaultRatePause is the courtesy pause between consecutive requests.
const DefaultRatePause = 500 * time.Millisecond

// ProgressFunc is called before each item of a pass. done is 1-based.
type ProgressFunc func(strategyName, pass string, done, total int)

// SleepFunc pauses between items. It must return early when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

// Predictor produces one prediction for a review and prompt template.
// *prediction.Requester is the production implementation.
type Predictor interface {
	Request(ctx context.Context, reviewText, template string, maxRetries int) prediction.Prediction
}

// StrategyResult holds both passes of one strategy over one sample.
type StrategyResult struct {
	Strategy               string                  `json:"strategy"`
	Predictions            []prediction.Prediction `json:"predictions"`
	ConsistencyPredictions []prediction.Prediction `json:"consistency_predictions"`
}

// StrategyRunner runs a single strategy over a sample: one full pass, then a
// consistency pass that re-requests the leading items.
type StrategyRunner struct {
	predictor       Predictor
	maxRetries      int
	consistencySize int
	ratePause       time.Duration
	sleep           SleepFunc
	progress        ProgressFunc

	// issued is set once the first request went out; every later request,
	// in any pass or strategy, is preceded by ratePause.
	issued bool
}

// RunnerOption configures a StrategyRunner.
type RunnerOption func(*StrategyRunner)

// WithMaxRetries sets the attempt budget passed to each request.
func WithMaxRetries(n int) RunnerOption {
	return func(r *StrategyRunner) { r.maxRetries = n }
}

// WithConsistencySize sets how many leading samples are re-requested.
func WithConsistencySize(n int) RunnerOption {
	return func(r *StrategyRunner) { r.consistencySize = n }
}

// WithRatePause sets the pause between consecutive requests, across passes
// and strategies.
func WithRatePause(d time.Duration) RunnerOption {
	return func(r *StrategyRunner) { r.ratePause = d }
}

// WithSleep replaces the function used for the pause between items.
func WithSleep(fn SleepFunc) RunnerOption {
	return func(r *StrategyRunner) { r.sleep = fn }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) RunnerOption {
	return func(r *StrategyRunner) { r.progress = fn }
}

// NewStrategyRunner creates a runner with two attempts per request, a
// consistency subset of 10 and a 500ms pause.
func NewStrategyRunner(predictor Predictor, opts ...RunnerOption) *StrategyRunner {
	r := &StrategyRunner{
		predictor:       predictor,
		maxRetries:      2,
		consistencySize: 10,
		ratePause:       DefaultRatePause,
		sleep:           contextSleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConsistencySize returns the configured consistency subset size.
func (r *StrategyRunner) ConsistencySize() int {
	return r.consistencySize
}

// Run evaluates strat over samples. Predictions preserves sample order; the
// consistency list covers the first min(ConsistencySize, len(samples))
// samples. When ctx is cancelled the remaining items are skipped and the
// lists are shorter than the sample; an item whose request was interrupted
// by the cancellation is dropped rather than recorded as a failure.
func (r *StrategyRunner) Run(ctx context.Context, samples []dataset.SampleItem, strat strategy.Strategy) StrategyResult {
	result := StrategyResult{Strategy: strat.Name}

	slog.Info("running strategy", "strategy", strat.Name, "samples", len(samples))
	start := time.Now()

	result.Predictions = r.pass(ctx, strat, PassFull, samples)

	n := min(r.consistencySize, len(samples))
	if n > 0 {
		slog.Info("running consistency pass", "strategy", strat.Name, "samples", n)
		result.ConsistencyPredictions = r.pass(ctx, strat, PassConsistency, samples[:n])
	}

	slog.Info("strategy complete",
		"strategy", strat.Name,
		"predictions", len(result.Predictions),
		"consistency_predictions", len(result.ConsistencyPredictions),
		"duration", time.Since(start),
	)
	return result
}

func (r *StrategyRunner) pass(ctx context.Context, strat strategy.Strategy, pass string, items []dataset.SampleItem) []prediction.Prediction {
	out := make([]prediction.Prediction, 0, len(items))
	for i, item := range items {
		if r.issued && r.ratePause > 0 {
			r.sleep(ctx, r.ratePause)
		}
		if err := ctx.Err(); err != nil {
			slog.Warn("run cancelled", "strategy", strat.Name, "pass", pass, "completed", i, "total", len(items))
			break
		}
		if r.progress != nil {
			r.progress(strat.Name, pass, i+1, len(items))
		}

		r.issued = true
		p := r.predictor.Request(ctx, item.ReviewText, strat.Template, r.maxRetries)
		if err := ctx.Err(); err != nil {
			slog.Warn("run cancelled during request", "strategy", strat.Name, "pass", pass, "completed", i, "total", len(items))
			break
		}
		out = append(out, p)
	}
	return out
}

func contextSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
