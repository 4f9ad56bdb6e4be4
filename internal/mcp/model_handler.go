package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/rating-eval/internal/kserve"
	"github.com/giantswarm/rating-eval/internal/server"
)

const errNoKServe = "KServe manager is not configured (not running in-cluster or KServe not available)"

func registerModelTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	deployTool := mcp.NewTool("deploy_model",
		mcp.WithDescription("Serve a model for rating evaluation through a KServe InferenceService (vLLM runtime) and wait until it is ready. Returns the OpenAI-compatible endpoint to pass to run_evaluation."),
		mcp.WithString("model_name",
			mcp.Required(),
			mcp.Description("Name for the InferenceService resource"),
		),
		mcp.WithString("model_uri",
			mcp.Required(),
			mcp.Description("Model storage URI (e.g. 'hf://Qwen/Qwen2.5-1.5B-Instruct')"),
		),
		mcp.WithString("served_model_name",
			mcp.Description("Model name the endpoint answers to (default: model_name)"),
		),
		mcp.WithNumber("gpu_count",
			mcp.Description("Number of GPUs to request (default: 1)"),
		),
		mcp.WithNumber("max_model_len",
			mcp.Description("Maximum context length passed to vLLM (default: 4096)"),
		),
		mcp.WithNumber("ready_timeout_seconds",
			mcp.Description("How long to wait for the model to become ready (default: 900)"),
		),
		mcp.WithArray("runtime_args",
			mcp.Description("Extra serving runtime arguments (e.g. ['--dtype=half'])"),
			mcp.WithStringItems(),
		),
	)
	s.AddTool(deployTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleDeployModel(ctx, request, sc)
	})

	teardownTool := mcp.NewTool("teardown_model",
		mcp.WithDescription("Delete a KServe InferenceService once its evaluations are finished"),
		mcp.WithString("model_name",
			mcp.Required(),
			mcp.Description("Name of the InferenceService to delete"),
		),
	)
	s.AddTool(teardownTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleTeardownModel(ctx, request, sc)
	})

	listTool := mcp.NewTool("list_models",
		mcp.WithDescription("List InferenceServices managed by rating-eval with their readiness and endpoints"),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListModels(ctx, request, sc)
	})

	return nil
}

func handleDeployModel(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.KServeManager == nil {
		return mcp.NewToolResultError(errNoKServe), nil
	}

	args := request.GetArguments()

	modelName := stringArg(args, "model_name")
	if modelName == "" {
		return mcp.NewToolResultError("model_name is required"), nil
	}
	modelURI := stringArg(args, "model_uri")
	if modelURI == "" {
		return mcp.NewToolResultError("model_uri is required"), nil
	}

	cfg := kserve.DefaultModelConfig(modelName, modelURI)
	cfg.ServedModelName = stringArg(args, "served_model_name")

	for key, dst := range map[string]*int{
		"gpu_count":     &cfg.GPUCount,
		"max_model_len": &cfg.MaxModelLen,
	} {
		n, ok, err := intArg(args, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if ok && n > 0 {
			*dst = n
		}
	}
	timeout, ok, err := intArg(args, "ready_timeout_seconds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if ok && timeout > 0 {
		cfg.ReadyTimeout = time.Duration(timeout) * time.Second
	}

	runtimeArgs, err := stringSliceArg(args, "runtime_args")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, a := range runtimeArgs {
		cfg.RuntimeArgs = append(cfg.RuntimeArgs, strings.TrimSpace(a))
	}

	status, err := sc.KServeManager.Deploy(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to deploy model: %v", err)), nil
	}
	return jsonResult(status)
}

func handleTeardownModel(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.KServeManager == nil {
		return mcp.NewToolResultError(errNoKServe), nil
	}

	modelName := stringArg(request.GetArguments(), "model_name")
	if modelName == "" {
		return mcp.NewToolResultError("model_name is required"), nil
	}

	if err := sc.KServeManager.Teardown(ctx, modelName); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to teardown model: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("InferenceService %q deleted", modelName)), nil
}

func handleListModels(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.KServeManager == nil {
		return mcp.NewToolResultError(errNoKServe), nil
	}

	statuses, err := sc.KServeManager.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list models: %v", err)), nil
	}
	if statuses == nil {
		statuses = []kserve.ModelStatus{}
	}
	return jsonResult(statuses)
}
