package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/strategy"
	"github.com/giantswarm/rating-eval/internal/testutil"
)

func testConfig() config.Config {
	return config.Config{
		Model:           "test-model",
		Dataset:         config.DefaultDataset,
		TestSize:        5,
		ConsistencySize: 2,
		Seed:            42,
		MaxRetries:      2,
	}
}

func TestLoadSample(t *testing.T) {
	items, err := LoadSample(testConfig())
	require.NoError(t, err)
	assert.Len(t, items, 5)

	again, err := LoadSample(testConfig())
	require.NoError(t, err)
	assert.Equal(t, items, again)
}

func TestLoadSampleUnknownDataset(t *testing.T) {
	cfg := testConfig()
	cfg.Dataset = "does-not-exist"
	_, err := LoadSample(cfg)
	assert.Error(t, err)
}

func TestNewExperimentFromConfig(t *testing.T) {
	cfg := testConfig()
	client := &testutil.MockLLMClient{DefaultResponse: testutil.RatingJSON(4, "fine")}
	sink := &recordingSink{}

	var progressCalls int
	e := NewExperimentFromConfig(client, cfg, func(string, string, int, int) { progressCalls++ }, sink)

	items, err := LoadSample(cfg)
	require.NoError(t, err)

	report, err := e.Run(context.Background(), items, []strategy.Strategy{naive(t)})
	require.NoError(t, err)

	assert.Equal(t, "test-model", report.Model)
	assert.Equal(t, config.DefaultDataset, report.Dataset)
	assert.Equal(t, 2, report.ConsistencySize)
	assert.Equal(t, 7, client.Calls)
	assert.Equal(t, 7, progressCalls)
	assert.Equal(t, "test-model", client.LastRequest().Model)
	assert.InDelta(t, 100.0, report.Summaries[strategy.Naive].JSONValidityRate, 1e-9)
	assert.Len(t, sink.reports, 1)
}
