package prediction

import (
	"context"
	"log/slog"
	"time"

	"github.com/giantswarm/rating-eval/internal/llm"
	"github.com/giantswarm/rating-eval/internal/strategy"
)

const (
	// DefaultTemperature keeps replies close to deterministic.
	DefaultTemperature = 0.3
	// DefaultMaxTokens bounds the reply; a rating plus one sentence fits easily.
	DefaultMaxTokens = 200
	// DefaultMaxReviewRunes is the review prefix length substituted into prompts.
	DefaultMaxReviewRunes = 1000
	// DefaultRetryDelay is the pause between attempts of the same request.
	DefaultRetryDelay = time.Second
)

// DelayFunc pauses between attempts. attempt is the 1-based attempt that just failed.
type DelayFunc func(ctx context.Context, attempt int)

// FixedDelay returns a DelayFunc that sleeps for d or until ctx is done.
func FixedDelay(d time.Duration) DelayFunc {
	return func(ctx context.Context, _ int) {
		if d <= 0 {
			return
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
}

// NoDelay retries immediately.
func NoDelay(context.Context, int) {}

// Option configures a Requester.
type Option func(*Requester)

// WithModel sets the model name sent with each request.
func WithModel(model string) Option {
	return func(r *Requester) { r.model = model }
}

// WithTemperature overrides DefaultTemperature.
func WithTemperature(temp float64) Option {
	return func(r *Requester) { r.temperature = temp }
}

// WithMaxTokens overrides DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(r *Requester) { r.maxTokens = n }
}

// WithDelay replaces the pause between attempts.
func WithDelay(fn DelayFunc) Option {
	return func(r *Requester) { r.delay = fn }
}

// Requester issues one prediction request per (review, template) pair with a
// bounded retry loop around transport and validation failures.
type Requester struct {
	client      llm.Client
	model       string
	temperature float64
	maxTokens   int
	maxRunes    int
	delay       DelayFunc
}

// NewRequester creates a Requester using client as the model-call capability.
func NewRequester(client llm.Client, opts ...Option) *Requester {
	r := &Requester{
		client:      client,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		maxRunes:    DefaultMaxReviewRunes,
		delay:       FixedDelay(DefaultRetryDelay),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request predicts the rating for reviewText using template. It always returns
// a Prediction; failures are reported through its Error field.
func (r *Requester) Request(ctx context.Context, reviewText, template string, maxRetries int) Prediction {
	prompt := strategy.Fill(template, truncateRunes(reviewText, r.maxRunes))

	for attempt := 1; attempt <= maxRetries; attempt++ {
		last := attempt == maxRetries

		resp, err := r.client.ChatCompletion(ctx, llm.ChatRequest{
			Model:       r.model,
			UserMessage: prompt,
			Temperature: llm.Float64Ptr(r.temperature),
			MaxTokens:   r.maxTokens,
		})
		if err != nil {
			if !last {
				slog.Debug("prediction request failed, retrying", "attempt", attempt, "error", err)
				r.delay(ctx, attempt)
				continue
			}
			slog.Warn("prediction request failed", "attempts", attempt, "error", err)
			p := Failed("API error: "+err.Error(), "")
			p.Attempts = attempt
			return p
		}

		payload := ExtractPayload(resp.Content)
		stars, explanation, err := Validate(payload)
		if err != nil {
			if !last {
				slog.Debug("invalid prediction payload, retrying", "attempt", attempt, "error", err)
				r.delay(ctx, attempt)
				continue
			}
			slog.Warn("invalid prediction payload", "attempts", attempt, "error", err)
			p := Failed("JSON parsing error: "+err.Error(), payload)
			p.Attempts = attempt
			return p
		}

		p := Valid(stars, explanation, payload)
		p.Attempts = attempt
		return p
	}

	return Failed("Max retries exceeded", "")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
