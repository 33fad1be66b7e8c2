// Package main implements the autoforge CLI: a thin collaborator that
// wires the Test Harness Adapter, Result Parser, LLM Provider Pool, Model
// Cache/Dispatcher, Locked-File Registry, and Autocorrection Controller
// over a single project directory.
//
// The rich CLI surface (chat UI, campaign orchestration, browser
// automation) that the teacher product built around this kind of loop is
// explicitly out of scope here — this binary exists only to exercise the
// `run` subcommand end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"autoforge/internal/apperr"
	"autoforge/internal/autocorrect"
	"autoforge/internal/catalog"
	"autoforge/internal/config"
	"autoforge/internal/dispatcher"
	"autoforge/internal/harness"
	"autoforge/internal/lockregistry"
	"autoforge/internal/logging"
	"autoforge/internal/metrics"
	"autoforge/internal/modelcache"
	"autoforge/internal/providers"
	"autoforge/internal/resultparser"
	"autoforge/internal/types"
)

var (
	verbose     bool
	workspace   string
	language    string
	withCoverage bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autoforge",
	Short: "autoforge - autonomous code generation and self-healing pipeline",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize bootstrap logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [project-dir]",
	Short: "run the test-and-self-heal loop over a project directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runAutocorrection,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")

	runCmd.Flags().StringVar(&language, "language", "go", "project language (rust, py, go, ts)")
	runCmd.Flags().BoolVar(&withCoverage, "coverage", false, "collect coverage alongside test results")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAutocorrection(cmd *cobra.Command, args []string) error {
	projectDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load(filepath.Join(projectDir, ".autoforge", "config.json"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sink := metrics.NewInMemorySink()

	pool := buildProviderPool(cfg.Providers)

	locks, err := lockregistry.Load(projectDir, cfg.LockRegistry.LockedPaths, cfg.LockRegistry.ScanGitModified)
	if err != nil {
		return fmt.Errorf("load lock registry: %w", err)
	}

	cat, err := catalog.Open(filepath.Join(projectDir, cfg.Cache.CatalogPath))
	if err != nil {
		return fmt.Errorf("open model catalog: %w", err)
	}
	cache := modelcache.New(cat, cfg.Cache.MaxBytes, mockLoader)
	disp := dispatcher.New(cfg.Dispatcher.MaxConcurrentRequests, types.BackendMock, sink)

	runner := func(ctx context.Context, dir, lang string) (types.TestReport, error) {
		raw, err := harness.RunTests(ctx, dir, lang, withCoverage)
		if err != nil {
			return types.TestReport{}, err
		}
		return resultparser.Parse(raw), nil
	}

	ctrl := autocorrect.New(autocorrect.Config{
		MaxIterations:            cfg.Autocorrect.MaxIterations,
		TopKFailuresPerIteration: cfg.Autocorrect.TopKFailuresPerIteration,
		MinImprovementPercent:    cfg.Autocorrect.MinImprovementPercent,
		LLMTemperatureForFixes:   0.2,
		LLMMaxTokensForFixes:     4096,
	}, pool, locks, runner)

	project, err := loadProject(projectDir, language)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()

	if err := selfCheckInferencePath(ctx, cat, cache, disp); err != nil {
		logger.Warn("inference self-check failed, continuing without it", zap.Error(err))
	} else {
		logger.Info("inference self-check passed")
	}

	result, err := ctrl.Run(ctx, project, projectDir)
	if err != nil {
		return fmt.Errorf("run autocorrection: %w", err)
	}

	logger.Info("autocorrection complete",
		zap.Bool("converged", result.Converged),
		zap.Int("iterations_completed", result.IterationsCompleted),
		zap.Int("final_failed", result.FinalReport.Failed),
	)

	if !result.Converged {
		return fmt.Errorf("project did not converge after %d iterations (%d tests still failing)",
			result.IterationsCompleted, result.FinalReport.Failed)
	}
	return nil
}

// buildProviderPool constructs one client per configured provider entry
// whose credential environment variable is set, skipping any that are
// not — matching original_source's probe-and-skip provider construction.
func buildProviderPool(configs []config.ProviderConfig) *providers.Pool {
	var clients []providers.Provider

	for _, pc := range configs {
		switch pc.Name {
		case "openai":
			if key := os.Getenv("OPENAI_API_KEY"); key != "" {
				clients = append(clients, providers.NewOpenAICompatibleClient("openai", key, pc.BaseURL, pc.Model))
			}
		case "groq":
			if key := os.Getenv("GROQ_API_KEY"); key != "" {
				clients = append(clients, providers.NewOpenAICompatibleClient("groq", key, pc.BaseURL, pc.Model))
			}
		case "github":
			if key := os.Getenv("GITHUB_TOKEN"); key != "" {
				clients = append(clients, providers.NewOpenAICompatibleClient("github", key, pc.BaseURL, pc.Model))
			}
		case "anthropic":
			if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
				clients = append(clients, providers.NewAnthropicClient(key, pc.BaseURL, pc.Model))
			}
		case "huggingface":
			if key := os.Getenv("HUGGINGFACE_API_KEY"); key != "" {
				clients = append(clients, providers.NewHuggingFaceClient(key, pc.BaseURL, pc.Model))
			}
		case "cloudflare":
			if key := os.Getenv("CLOUDFLARE_API_KEY"); key != "" {
				clients = append(clients, providers.NewCloudflareClient(key, os.Getenv("CLOUDFLARE_ACCOUNT_ID"), pc.BaseURL, pc.Model))
			}
		case "gemini":
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				clients = append(clients, providers.NewGeminiClient(key, pc.Model))
			}
		}
	}

	return providers.NewPool(clients...)
}

// mockLoader satisfies modelcache.Loader without touching disk or a real
// backend; it is the only loader this binary has a use for until a real
// on-disk model format is wired in.
func mockLoader(ctx context.Context, d types.ModelDescriptor) (interface{}, error) {
	return struct{}{}, nil
}

// selfCheckInferencePath exercises the Model Cache and Inference Dispatcher
// against the first cataloged descriptor before the autocorrection loop
// starts, so a misconfigured cache budget or dispatcher concurrency limit
// surfaces immediately instead of silently degrading every LLM-backed fix.
// A catalog with no descriptors skips the check (catalog.Open seeds
// default descriptors on a first run, so that case is not empty).
func selfCheckInferencePath(ctx context.Context, cat *catalog.Catalog, cache *modelcache.Cache, disp *dispatcher.Dispatcher) error {
	descriptors := cat.List()
	if len(descriptors) == 0 {
		return nil
	}
	id := descriptors[0].ID

	handle, err := cache.Acquire(ctx, id)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", id, err)
	}
	defer cache.Release(handle)

	_, err = disp.Infer(ctx, types.InferenceRequest{
		ModelID: id,
		Input:   types.InferenceInput{Variant: types.InputText, Text: "self-check"},
	})
	if err != nil {
		return fmt.Errorf("infer %s: %w", id, err)
	}
	return nil
}

// loadProject reads src/main.<ext> as the project's single primary file.
// A richer multi-file project model exists in types.GeneratedProject but
// this CLI collaborator only needs the primary file the autocorrection
// loop actually rewrites.
func loadProject(projectDir, lang string) (*types.GeneratedProject, error) {
	ext := map[string]string{
		"rust": "rs", "py": "py", "python": "py", "go": "go",
		"ts": "ts", "typescript": "ts", "js": "ts", "javascript": "ts",
	}[lang]
	if ext == "" {
		ext = "txt"
	}

	path := filepath.Join(projectDir, "src", "main."+ext)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &types.GeneratedProject{Language: lang}, nil
		}
		return nil, &apperr.IOFailureError{Op: "read", Path: path, Cause: err}
	}

	return &types.GeneratedProject{Language: lang, Code: string(data)}, nil
}
