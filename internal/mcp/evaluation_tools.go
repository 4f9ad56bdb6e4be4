package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/rating-eval/internal/server"
)

func registerEvaluationTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listStrategies := mcp.NewTool("list_strategies",
		mcp.WithDescription("List the prompt strategies available for rating prediction, with their templates"),
	)
	s.AddTool(listStrategies, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListStrategies(ctx, request, sc)
	})

	listDatasets := mcp.NewTool("list_datasets",
		mcp.WithDescription("List the labeled review datasets that evaluations can sample from"),
	)
	s.AddTool(listDatasets, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListDatasets(ctx, request, sc)
	})

	predict := mcp.NewTool("predict_rating",
		mcp.WithDescription("Predict the 1-5 star rating of a single review with one prompt strategy"),
		mcp.WithString("review_text",
			mcp.Required(),
			mcp.Description("Review text to rate"),
		),
		mcp.WithString("strategy",
			mcp.Description("Prompt strategy name (default: rubric)"),
		),
		mcp.WithString("model",
			mcp.Description("Model to query (default: server configuration)"),
		),
		mcp.WithString("endpoint",
			mcp.Description("OpenAI-compatible base URL (default: server configuration)"),
		),
	)
	s.AddTool(predict, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handlePredictRating(ctx, request, sc)
	})

	run := mcp.NewTool("run_evaluation",
		mcp.WithDescription("Evaluate prompt strategies over a sample of labeled reviews and report accuracy, JSON validity, consistency and MAE per strategy. If model_name refers to a ready KServe deployment, its endpoint is used."),
		mcp.WithArray("strategies",
			mcp.Description("Strategy names to compare (default: all)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("dataset",
			mcp.Description("Dataset name or CSV path (default: server configuration)"),
		),
		mcp.WithNumber("test_size",
			mcp.Description("Number of reviews to sample"),
		),
		mcp.WithNumber("consistency_size",
			mcp.Description("Number of leading reviews re-requested to measure consistency"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Sampling seed"),
		),
		mcp.WithString("model",
			mcp.Description("Model to evaluate (default: server configuration)"),
		),
		mcp.WithString("endpoint",
			mcp.Description("OpenAI-compatible base URL (overrides KServe discovery)"),
		),
		mcp.WithString("model_name",
			mcp.Description("Name of a KServe-deployed model to evaluate"),
		),
	)
	s.AddTool(run, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunEvaluation(ctx, request, sc)
	})

	getResults := mcp.NewTool("get_results",
		mcp.WithDescription("Retrieve past evaluation runs, or one run with its predictions"),
		mcp.WithString("run_id",
			mcp.Description("Run ID to retrieve (lists all runs if omitted)"),
		),
		mcp.WithBoolean("include_predictions",
			mcp.Description("Include per-review predictions for a specific run (default: false)"),
		),
	)
	s.AddTool(getResults, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetResults(ctx, request, sc)
	})

	return nil
}
