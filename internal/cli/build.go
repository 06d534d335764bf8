package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvp-joe/depgraph/internal/bundle"
	"github.com/mvp-joe/depgraph/internal/config"
	"github.com/mvp-joe/depgraph/internal/dump"
	"github.com/mvp-joe/depgraph/internal/graph"
	"github.com/mvp-joe/depgraph/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	quietFlag      bool
	watchFlag      bool
	noScriptFlag   bool
	scriptPathFlag string
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build [graph] [config] [output]",
	Short: "Build the visualizer bundle from a dependency graph and config dump",
	Long: `Build parses the module dependency graph (DOT) and the configuration dump,
resolves every InputTag against the graph labels and writes one JSON bundle.

By default a script copy of the bundle (window.EMBEDDED_BUNDLE_DATA = ...;) is
written next to it so the visualizer can be opened straight from disk.

Positional arguments override the configured paths, in order.

Examples:
  # Build with the configured paths (dependency.gv, dumpConfig.py -> data/bundle.json)
  depgraph build

  # Build from explicit files
  depgraph build run/dependency.gv run/dumpConfig.py out/bundle.json

  # Rebuild whenever either input changes
  depgraph build --watch

  # JSON bundle only
  depgraph build --no-script
`,
	Args: cobra.MaximumNArgs(3),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	buildCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the inputs and rebuild when they change")
	buildCmd.Flags().BoolVar(&noScriptFlag, "no-script", false, "Do not write the script copy of the bundle")
	buildCmd.Flags().StringVar(&scriptPathFlag, "script-path", "", "Script copy location (default: next to the bundle)")
}

// buildOptions is the effective build request after flags and arguments are applied.
type buildOptions struct {
	graphPath     string
	configPath    string
	outputPath    string
	scriptEnabled bool
	scriptPath    string
	quiet         bool
}

// resolveBuildOptions applies positional arguments and flags on top of cfg.
func resolveBuildOptions(cfg *config.Config, args []string, noScript bool, scriptPath string, quiet bool) buildOptions {
	opts := buildOptions{
		graphPath:     cfg.Input.Graph,
		configPath:    cfg.Input.Config,
		outputPath:    cfg.Output.Path,
		scriptEnabled: cfg.Output.Script.Enabled && !noScript,
		scriptPath:    cfg.Output.Script.Path,
		quiet:         quiet,
	}

	targets := []*string{&opts.graphPath, &opts.configPath, &opts.outputPath}
	for i, arg := range args {
		if i < len(targets) && arg != "" {
			*targets[i] = arg
		}
	}

	if scriptPath != "" {
		opts.scriptPath = scriptPath
	}
	return opts
}

// newBuilder wires the parsers, logger and progress reporter for one build.
func newBuilder(cfg *config.Config, opts buildOptions, out io.Writer, logger *zap.Logger) *bundle.Builder {
	graphParser := graph.NewParser(append(cfg.GraphOptions(), graph.WithLogger(logger))...)
	dumpParser := dump.NewParser(append(cfg.DumpOptions(), dump.WithLogger(logger))...)

	return bundle.NewBuilder(
		bundle.WithGraphParser(graphParser),
		bundle.WithDumpParser(dumpParser),
		bundle.WithLogger(logger),
		bundle.WithProgress(NewCLIProgressReporter(out, opts.quiet)),
		bundle.WithScript(opts.scriptEnabled, opts.scriptPath),
	)
}

func runBuild(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := resolveBuildOptions(cfg, args, noScriptFlag, scriptPathFlag, quietFlag)
	out := cmd.OutOrStdout()
	log := rootLogger()

	if watchFlag {
		return watchBuild(ctx, out, cfg, opts, log)
	}

	_, err = executeBuild(ctx, out, cfg, opts, log)
	return err
}

// executeBuild runs the pipeline once.
func executeBuild(ctx context.Context, out io.Writer, cfg *config.Config, opts buildOptions, logger *zap.Logger) (*bundle.Summary, error) {
	builder := newBuilder(cfg, opts, out, logger)

	summary, err := builder.Run(ctx, opts.graphPath, opts.configPath, opts.outputPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("build cancelled")
		}
		return nil, err
	}
	return summary, nil
}

// watchBuild performs an initial build and rebuilds whenever an input changes,
// until ctx is cancelled.
func watchBuild(ctx context.Context, out io.Writer, cfg *config.Config, opts buildOptions, logger *zap.Logger) error {
	if _, err := executeBuild(ctx, out, cfg, opts, logger); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	files, err := watcher.NewFileWatcher(
		[]string{opts.graphPath, opts.configPath},
		watcher.WithDebounce(cfg.Watch.Debounce()),
		watcher.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to watch inputs: %w", err)
	}

	rebuilder := watcher.RebuilderFunc(func(ctx context.Context, changed []string) error {
		if !opts.quiet {
			fmt.Fprintln(out)
			faintColor.Fprintf(out, "Change detected in %d file(s), rebuilding...\n", len(changed))
		}
		_, err := executeBuild(ctx, out, cfg, opts, logger)
		return err
	})

	if !opts.quiet {
		fmt.Fprintf(out, "\nWatching %s and %s (Ctrl+C to stop)\n", opts.graphPath, opts.configPath)
	}

	coordinator := watcher.NewRebuildCoordinator(files, rebuilder, logger)
	if err := coordinator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch mode failed: %w", err)
	}

	if !opts.quiet {
		fmt.Fprintln(out, "Watch mode stopped")
	}
	return nil
}
