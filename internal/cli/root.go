package cli

import (
	"fmt"
	"os"

	"github.com/mvp-joe/depgraph/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	verbose bool

	// logger is built once flags are parsed; commands read it through rootLogger.
	logger *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "depgraph",
	Short: "Bundle CMSSW dependency graphs for the visualizer",
	Long: `depgraph turns a CMSSW module dependency graph (DOT) and the matching
configuration dump into a single JSON bundle for the dependency visualizer.

It can also answer questions about a bundle from the terminal: which modules
feed or consume a module, which modules mention a plugin, and which modules
have references that do not resolve.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .depgraph/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initLogger builds the process logger from the --verbose flag.
func initLogger() {
	l, err := newLogger(verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		l = zap.NewNop()
	}
	logger = l
}

// newLogger returns a development logger when verbose, otherwise a production
// logger that only reports warnings and errors on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func rootLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// loadConfig loads configuration from the working directory or the --config file.
func loadConfig() (*config.Config, error) {
	var opts []config.LoaderOption
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
