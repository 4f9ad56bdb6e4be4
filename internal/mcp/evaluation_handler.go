package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/rating-eval/internal/dataset"
	"github.com/giantswarm/rating-eval/internal/prediction"
	"github.com/giantswarm/rating-eval/internal/runner"
	"github.com/giantswarm/rating-eval/internal/server"
	"github.com/giantswarm/rating-eval/internal/store"
	"github.com/giantswarm/rating-eval/internal/strategy"
)

func handleListStrategies(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	strategies, err := strategy.Resolve(nil, sc.Config.StrategiesFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load strategies: %v", err)), nil
	}
	return jsonResult(strategies)
}

func handleListDatasets(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	names, err := dataset.List(sc.Config.DatasetsDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list datasets: %v", err)), nil
	}
	return jsonResult(names)
}

func handlePredictRating(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.LLMClient == nil {
		return mcp.NewToolResultError("LLM client is not configured"), nil
	}

	args := request.GetArguments()

	review := stringArg(args, "review_text")
	if strings.TrimSpace(review) == "" {
		return mcp.NewToolResultError("review_text is required"), nil
	}

	name := stringArg(args, "strategy")
	if name == "" {
		name = strategy.Rubric
	}
	strategies, err := strategy.Resolve([]string{name}, sc.Config.StrategiesFile)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := sc.Config
	if model := stringArg(args, "model"); model != "" {
		cfg.Model = model
	}

	requester := runner.NewRequesterFromConfig(sc.ClientFor(stringArg(args, "endpoint")), cfg)
	pred := requester.Request(ctx, review, strategies[0].Template, cfg.MaxRetries)

	return jsonResult(struct {
		Strategy string `json:"strategy"`
		Model    string `json:"model"`
		prediction.Prediction
	}{strategies[0].Name, cfg.Model, pred})
}

func handleRunEvaluation(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.LLMClient == nil {
		return mcp.NewToolResultError("LLM client is not configured"), nil
	}

	args := request.GetArguments()
	cfg := sc.Config

	if ds := stringArg(args, "dataset"); ds != "" {
		cfg.Dataset = ds
	}
	if model := stringArg(args, "model"); model != "" {
		cfg.Model = model
	}

	for key, dst := range map[string]*int{
		"test_size":        &cfg.TestSize,
		"consistency_size": &cfg.ConsistencySize,
	} {
		n, ok, err := intArg(args, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if ok {
			*dst = n
		}
	}
	seed, ok, err := intArg(args, "seed")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if ok {
		if seed < 0 {
			return mcp.NewToolResultError("seed must not be negative"), nil
		}
		cfg.Seed = uint64(seed)
	}

	names, err := stringSliceArg(args, "strategies")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	strategies, err := strategy.Resolve(names, cfg.StrategiesFile)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	endpoint := stringArg(args, "endpoint")
	if modelName := stringArg(args, "model_name"); modelName != "" && endpoint == "" {
		if sc.KServeManager == nil {
			return mcp.NewToolResultError("model_name requires KServe, but the KServe manager is not configured"), nil
		}
		status, err := sc.KServeManager.Get(ctx, modelName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to look up model %q: %v", modelName, err)), nil
		}
		if !status.Ready {
			return mcp.NewToolResultError(fmt.Sprintf("model %q is not ready: %s", modelName, status.Message)), nil
		}
		endpoint = status.EndpointURL
		if stringArg(args, "model") == "" {
			cfg.Model = status.ServedModelName
		}
	}

	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	samples, err := runner.LoadSample(cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load dataset: %v", err)), nil
	}

	var sinks []runner.Sink
	if sc.Store != nil {
		sinks = append(sinks, sc.Store)
	}
	progress := func(name, pass string, done, total int) {
		slog.Debug("evaluation progress", "strategy", name, "pass", pass, "done", done, "total", total)
	}

	exp := runner.NewExperimentFromConfig(sc.ClientFor(endpoint), cfg, progress, sinks...)
	report, err := exp.Run(ctx, samples, strategies)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}
	return jsonResult(report)
}

func handleGetResults(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Store == nil {
		return mcp.NewToolResultError("result store is not configured"), nil
	}

	args := request.GetArguments()
	runID := stringArg(args, "run_id")

	if runID == "" {
		reports, err := sc.Store.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
		}
		if reports == nil {
			reports = []*runner.Report{}
		}
		return jsonResult(reports)
	}

	report, err := sc.Store.Get(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("run %q not found", runID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read run: %v", err)), nil
	}

	if include, _ := args["include_predictions"].(bool); include {
		return jsonResult(struct {
			*runner.Report
			Results []runner.StrategyResult `json:"results"`
		}{report, report.Results})
	}
	return jsonResult(report)
}
