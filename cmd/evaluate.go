package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/rating-eval/internal/config"
	"github.com/giantswarm/rating-eval/internal/kserve"
	"github.com/giantswarm/rating-eval/internal/runner"
	"github.com/giantswarm/rating-eval/internal/store"
	"github.com/giantswarm/rating-eval/internal/strategy"
)

// evalFlags hold the experiment overrides. Only flags the user set replace
// the loaded configuration.
type evalFlags struct {
	dataset         string
	datasetsDir     string
	strategies      []string
	strategiesFile  string
	testSize        int
	consistencySize int
	seed            uint64
	maxRetries      int
	ratePause       time.Duration
	outputDir       string
}

func (f *evalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataset, "dataset", config.DefaultDataset, "Dataset name or CSV path")
	cmd.Flags().StringVar(&f.datasetsDir, "datasets-dir", "", "External datasets directory")
	cmd.Flags().StringSliceVar(&f.strategies, "strategies", nil, "Comma-separated strategies to compare (default: all)")
	cmd.Flags().StringVar(&f.strategiesFile, "strategies-file", "", "YAML file with additional strategies")
	cmd.Flags().IntVar(&f.testSize, "test-size", config.DefaultTestSize, "Number of reviews to sample")
	cmd.Flags().IntVar(&f.consistencySize, "consistency-size", config.DefaultConsistencySize, "Leading reviews re-requested to measure consistency")
	cmd.Flags().Uint64Var(&f.seed, "seed", config.DefaultSeed, "Sampling seed")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", config.DefaultMaxRetries, "Attempts per prediction")
	cmd.Flags().DurationVar(&f.ratePause, "rate-pause", config.DefaultRatePause, "Pause between requests")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", config.DefaultOutputDir, "Directory for evaluation results")
}

func (f *evalFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("dataset") {
		cfg.Dataset = f.dataset
	}
	if changed("datasets-dir") {
		cfg.DatasetsDir = f.datasetsDir
	}
	if changed("strategies-file") {
		cfg.StrategiesFile = f.strategiesFile
	}
	if changed("test-size") {
		cfg.TestSize = f.testSize
	}
	if changed("consistency-size") {
		cfg.ConsistencySize = f.consistencySize
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("max-retries") {
		cfg.MaxRetries = f.maxRetries
	}
	if changed("rate-pause") {
		cfg.RatePause = f.ratePause
	}
	if changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
}

func newEvaluateCmd() *cobra.Command {
	var (
		llmOpts   llmFlags
		evalOpts  evalFlags
		timeout   time.Duration
		modelURI  string
		isvcName  string
		gpuCount  int
		inCluster bool
		keepModel bool
	)

	cmd := &cobra.Command{
		Use:     "evaluate",
		Aliases: []string{"run"},
		Short:   "Compare prompt strategies on a labeled review sample",
		Long: `Sample reviews from a labeled dataset, ask the model to predict each review's star
rating once per prompt strategy, and report accuracy, JSON validity, consistency and
mean absolute error per strategy.

Results are written to the output directory (resultset.json, per-strategy predictions,
evaluation_results.csv and comparison_metrics.csv) and, when REDIS_ADDR is set, to Redis.

With --model-uri the model is served through a KServe InferenceService for the duration
of the run and deleted afterwards unless --keep-model is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			cfg := config.Load()
			llmOpts.apply(&cfg)
			evalOpts.apply(cmd, &cfg)

			strategies, err := strategy.Resolve(evalOpts.strategies, cfg.StrategiesFile)
			if err != nil {
				return err
			}

			endpoint := ""
			if modelURI != "" {
				namespace, _ := cmd.Flags().GetString("namespace")
				kubeconfig, _ := cmd.Flags().GetString("kubeconfig")

				status, teardown, err := serveModel(ctx, namespace, kubeconfig, inCluster, modelServeOptions{
					name:     isvcName,
					uri:      modelURI,
					gpuCount: gpuCount,
					keep:     keepModel,
				})
				if err != nil {
					return err
				}
				defer teardown()

				endpoint = status.EndpointURL
				if llmOpts.model == "" {
					cfg.Model = status.ServedModelName
				}
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			samples, err := runner.LoadSample(cfg)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}

			sinks, closeSinks, err := openSinks(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeSinks()

			progress := func(name, pass string, done, total int) {
				fmt.Printf("\r  [%s/%s] Processing review %d/%d...", name, pass, done, total)
				if done == total {
					fmt.Println()
				}
			}

			names := make([]string, len(strategies))
			for i, s := range strategies {
				names[i] = s.Name
			}
			fmt.Printf("Model: %s\n", cfg.Model)
			fmt.Printf("Dataset: %s (%d reviews, seed %d)\n", cfg.Dataset, len(samples), cfg.Seed)
			fmt.Printf("Strategies: %s\n\n", strings.Join(names, ", "))

			exp := runner.NewExperimentFromConfig(newLLMClient(cfg, endpoint), cfg, progress, sinks...)
			report, err := exp.Run(ctx, samples, strategies)
			if err != nil {
				return err
			}

			fmt.Println()
			printReport(cmd.OutOrStdout(), report)
			fmt.Printf("\nResults: %s\n", store.NewFileStore(cfg.OutputDir).RunDir(report.ID))

			slog.Info("evaluation complete", "run_id", report.ID, "partial", report.Partial)
			if report.Partial {
				return fmt.Errorf("evaluation interrupted: %w", context.Cause(ctx))
			}
			return nil
		},
	}

	llmOpts.register(cmd)
	evalOpts.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout for the evaluation (e.g. 30m, 1h). 0 means no timeout")
	cmd.Flags().StringVar(&modelURI, "model-uri", "", "Serve this model via KServe for the run (e.g. hf://Qwen/Qwen2.5-1.5B-Instruct)")
	cmd.Flags().StringVar(&isvcName, "model-name", "", "InferenceService name for --model-uri (default: derived from the URI)")
	cmd.Flags().IntVar(&gpuCount, "gpu-count", 1, "GPUs to request for --model-uri")
	cmd.Flags().BoolVar(&inCluster, "in-cluster", false, "Use in-cluster Kubernetes authentication")
	cmd.Flags().BoolVar(&keepModel, "keep-model", false, "Keep an InferenceService created for --model-uri after the run")

	return cmd
}

type modelServeOptions struct {
	name     string
	uri      string
	gpuCount int
	keep     bool
}

// serveModel makes sure an InferenceService for opts is ready. The returned
// func deletes it if this call created it and opts.keep is false.
func serveModel(ctx context.Context, namespace, kubeconfig string, inCluster bool, opts modelServeOptions) (*kserve.ModelStatus, func(), error) {
	manager, err := kserve.NewManager(namespace, kubeconfig, inCluster)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create KServe manager: %w", err)
	}
	if err := manager.CheckCRDAvailable(ctx); err != nil {
		return nil, nil, err
	}

	name := opts.name
	if name == "" {
		name = path.Base(opts.uri)
	}
	mcfg := kserve.DefaultModelConfig(name, opts.uri)
	if opts.gpuCount > 0 {
		mcfg.GPUCount = opts.gpuCount
	}

	fmt.Printf("Ensuring InferenceService %q in namespace %q is ready...\n", name, namespace)
	status, created, err := manager.Ensure(ctx, mcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serve model: %w", err)
	}
	fmt.Printf("Model ready at %s\n", status.EndpointURL)

	teardown := func() {}
	if created && !opts.keep {
		teardown = func() {
			if err := manager.Teardown(context.WithoutCancel(ctx), status.Name); err != nil {
				slog.Error("failed to tear down model", "name", status.Name, "error", err)
				return
			}
			fmt.Printf("InferenceService %q deleted\n", status.Name)
		}
	}
	return status, teardown, nil
}

// openSinks always writes to cfg.OutputDir and additionally to Redis when
// cfg.RedisAddr is set.
func openSinks(ctx context.Context, cfg config.Config) ([]runner.Sink, func(), error) {
	sinks := []runner.Sink{store.NewFileStore(cfg.OutputDir)}
	if cfg.RedisAddr == "" {
		return sinks, func() {}, nil
	}

	client, err := store.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	sinks = append(sinks, store.NewRedisStore(client, store.DefaultRedisTTL))
	return sinks, func() { _ = client.Close() }, nil
}
