package prediction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/rating-eval/internal/testutil"
)

const testTemplate = "Rate this: {review}"

func newTestRequester(client *testutil.MockLLMClient, opts ...Option) *Requester {
	return NewRequester(client, append([]Option{WithDelay(NoDelay)}, opts...)...)
}

func assertWellFormed(t *testing.T, p Prediction) {
	t.Helper()
	if p.IsValidJSON {
		require.NotNil(t, p.PredictedStars)
		assert.GreaterOrEqual(t, *p.PredictedStars, MinStars)
		assert.LessOrEqual(t, *p.PredictedStars, MaxStars)
		assert.Empty(t, p.Error)
	}
	if p.PredictedStars == nil {
		assert.False(t, p.IsValidJSON)
		assert.NotEmpty(t, p.Error)
	}
}

func TestRequestSuccess(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: "```json\n" + testutil.RatingJSON(4, "solid") + "\n```"}
	r := newTestRequester(client, WithModel("test-model"))

	p := r.Request(context.Background(), "Nice place.", testTemplate, 2)

	assertWellFormed(t, p)
	assert.True(t, p.IsValidJSON)
	assert.Equal(t, 4, p.Stars())
	assert.Equal(t, "solid", p.Explanation)
	assert.Equal(t, testutil.RatingJSON(4, "solid"), p.RawResponse)
	assert.Equal(t, 1, p.Attempts)
	assert.Equal(t, 1, client.Calls)

	req := client.LastRequest()
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, "Rate this: Nice place.", req.UserMessage)
	assert.Empty(t, req.SystemMessage)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, DefaultTemperature, *req.Temperature)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
}

func TestRequestNotJSONExhaustsRetries(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: "not json"}
	r := newTestRequester(client)

	p := r.Request(context.Background(), "review", testTemplate, 2)

	assertWellFormed(t, p)
	assert.Equal(t, 2, client.Calls)
	assert.False(t, p.IsValidJSON)
	assert.Nil(t, p.PredictedStars)
	assert.Contains(t, p.Error, "JSON parsing error")
	assert.Equal(t, "not json", p.RawResponse)
	assert.Equal(t, 2, p.Attempts)
}

func TestRequestOutOfRangeIsParsingError(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: `{"predicted_stars": 7}`}
	r := newTestRequester(client)

	p := r.Request(context.Background(), "review", testTemplate, 1)

	assertWellFormed(t, p)
	assert.Equal(t, 1, client.Calls)
	assert.Contains(t, p.Error, "JSON parsing error: invalid rating: 7")
}

func TestRequestTransportErrorExhaustsRetries(t *testing.T) {
	client := &testutil.MockLLMClient{Script: []testutil.Reply{
		{Err: errors.New("rate limited")},
		{Err: errors.New("timeout")},
	}}
	r := newTestRequester(client)

	p := r.Request(context.Background(), "review", testTemplate, 2)

	assertWellFormed(t, p)
	assert.Equal(t, 2, client.Calls)
	assert.Equal(t, "API error: timeout", p.Error)
	assert.Empty(t, p.RawResponse)
}

func TestRequestRecoversAfterTransportError(t *testing.T) {
	client := &testutil.MockLLMClient{Script: []testutil.Reply{
		{Err: errors.New("connection reset")},
		{Content: testutil.RatingJSON(2, "meh")},
	}}
	r := newTestRequester(client)

	p := r.Request(context.Background(), "review", testTemplate, 2)

	assertWellFormed(t, p)
	assert.True(t, p.IsValidJSON)
	assert.Equal(t, 2, p.Stars())
	assert.Equal(t, 2, p.Attempts)
}

func TestRequestRecoversAfterBadFormatWithFreshCall(t *testing.T) {
	client := &testutil.MockLLMClient{Script: []testutil.Reply{
		{Content: "I think 4 stars"},
		{Content: testutil.RatingJSON(4, "")},
	}}
	r := newTestRequester(client)

	p := r.Request(context.Background(), "review", testTemplate, 3)

	assert.True(t, p.IsValidJSON)
	assert.Equal(t, 2, client.Calls)
}

func TestRequestLastFailureKindWins(t *testing.T) {
	client := &testutil.MockLLMClient{Script: []testutil.Reply{
		{Content: "garbage"},
		{Err: errors.New("boom")},
	}}
	r := newTestRequester(client)

	p := r.Request(context.Background(), "review", testTemplate, 2)
	assert.Equal(t, "API error: boom", p.Error)
}

func TestRequestZeroRetries(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: testutil.RatingJSON(5, "")}
	r := newTestRequester(client)

	p := r.Request(context.Background(), "review", testTemplate, 0)

	assertWellFormed(t, p)
	assert.Equal(t, 0, client.Calls)
	assert.Equal(t, "Max retries exceeded", p.Error)
}

func TestRequestTruncatesReview(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: testutil.RatingJSON(3, "")}
	r := newTestRequester(client)

	long := strings.Repeat("é", DefaultMaxReviewRunes+50)
	r.Request(context.Background(), long, "{review}", 1)

	sent := client.LastRequest().UserMessage
	assert.Equal(t, DefaultMaxReviewRunes, len([]rune(sent)))
}

func TestRequestDelayCalledBetweenAttemptsOnly(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: "nope"}
	var delays []int
	r := NewRequester(client, WithDelay(func(_ context.Context, attempt int) {
		delays = append(delays, attempt)
	}))

	r.Request(context.Background(), "review", testTemplate, 3)
	assert.Equal(t, []int{1, 2}, delays)
}

func TestRequestCustomTemperatureAndTokens(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: testutil.RatingJSON(3, "")}
	r := newTestRequester(client, WithTemperature(0), WithMaxTokens(50))

	r.Request(context.Background(), "review", testTemplate, 1)

	req := client.LastRequest()
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
	assert.Equal(t, 50, req.MaxTokens)
}

func TestFixedDelayHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	FixedDelay(time.Hour)(ctx, 1)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "ab", truncateRunes("ab", 3))
	assert.Equal(t, "ab", truncateRunes("ab", 0))
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
}
