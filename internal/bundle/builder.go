package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mvp-joe/depgraph/internal/dump"
	"github.com/mvp-joe/depgraph/internal/graph"
	"go.uber.org/zap"
)

// ErrInputNotFound is returned when the graph or config dump does not exist.
var ErrInputNotFound = errors.New("input file not found")

// Builder merges a DOT graph and a config dump into a Bundle.
type Builder struct {
	graphParser *graph.Parser
	dumpParser  *dump.Parser
	logger      *zap.Logger
	progress    ProgressReporter

	scriptEnabled bool
	scriptPath    string // Empty means DefaultScriptPath of the output
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithGraphParser sets the DOT parser.
func WithGraphParser(p *graph.Parser) BuilderOption {
	return func(b *Builder) {
		b.graphParser = p
	}
}

// WithDumpParser sets the config dump parser.
func WithDumpParser(p *dump.Parser) BuilderOption {
	return func(b *Builder) {
		b.dumpParser = p
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *zap.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithProgress sets the progress reporter.
func WithProgress(progress ProgressReporter) BuilderOption {
	return func(b *Builder) {
		if progress != nil {
			b.progress = progress
		}
	}
}

// WithScript enables or disables the script copy. An empty path places it next
// to the bundle.
func WithScript(enabled bool, path string) BuilderOption {
	return func(b *Builder) {
		b.scriptEnabled = enabled
		b.scriptPath = path
	}
}

// NewBuilder creates a bundle builder. The script copy is off unless enabled.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		logger:   zap.NewNop(),
		progress: &NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.graphParser == nil {
		b.graphParser = graph.NewParser(graph.WithLogger(b.logger))
	}
	if b.dumpParser == nil {
		b.dumpParser = dump.NewParser(dump.WithLogger(b.logger))
	}
	return b
}

// Build parses both inputs and resolves every reference tag against the graph.
func (b *Builder) Build(ctx context.Context, graphPath, configPath string) (*Bundle, *Summary, error) {
	start := time.Now()

	for _, path := range []string{graphPath, configPath} {
		if err := checkInput(path); err != nil {
			return nil, nil, err
		}
	}

	b.progress.OnStageStart(StageGraph)
	g, err := b.graphParser.ParseFile(ctx, graphPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse graph %s: %w", graphPath, err)
	}
	b.progress.OnStageComplete(StageGraph, fmt.Sprintf("%d nodes, %d edges", len(g.Nodes), len(g.Edges)))
	b.logger.Info("parsed graph",
		zap.String("path", graphPath),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.Int("skipped_edges", g.SkippedEdges))
	if g.LabelCollisions > 0 {
		b.logger.Warn("labels shared by several nodes",
			zap.Int("collisions", g.LabelCollisions))
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	b.progress.OnStageStart(StageConfig)
	parsed, err := b.dumpParser.ParseFile(ctx, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config dump %s: %w", configPath, err)
	}
	b.progress.OnStageComplete(StageConfig, fmt.Sprintf("%d modules", len(parsed.Modules)))
	b.logger.Info("parsed config dump",
		zap.String("path", configPath),
		zap.Int("modules", len(parsed.Modules)),
		zap.Int("skipped", parsed.Stats.Skipped),
		zap.Int("overwritten", parsed.Stats.Overwritten))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	b.progress.OnStageStart(StageResolve)
	stats := Resolve(parsed.Modules, g.LabelToID)
	b.progress.OnStageComplete(StageResolve, fmt.Sprintf("%d/%d references", stats.Found, stats.Total))

	bundle := &Bundle{
		Nodes:     g.Nodes,
		Edges:     g.Edges,
		Modules:   parsed.Modules,
		LabelToID: g.LabelToID,
		Metadata: Metadata{
			IsDirected:         g.Directed,
			NodeCount:          len(g.Nodes),
			EdgeCount:          len(g.Edges),
			ModuleCount:        len(parsed.Modules),
			SkippedEdgeCount:   g.SkippedEdges,
			InputTagCount:      stats.Total,
			InputTagFoundCount: stats.Found,
		},
	}

	summary := &Summary{
		GraphPath:         graphPath,
		ConfigPath:        configPath,
		Nodes:             len(g.Nodes),
		Edges:             len(g.Edges),
		SkippedEdges:      g.SkippedEdges,
		LabelCollisions:   g.LabelCollisions,
		Modules:           len(parsed.Modules),
		SkippedStatements: parsed.Stats.Skipped,
		InputTags:         stats.Total,
		ResolvedTags:      stats.Found,
		Duration:          time.Since(start),
	}

	return bundle, summary, nil
}

// Run builds the bundle, writes it to outputPath and, when enabled, writes the
// script copy. A failed script copy is logged and does not fail the run.
func (b *Builder) Run(ctx context.Context, graphPath, configPath, outputPath string) (*Summary, error) {
	start := time.Now()

	bundle, summary, err := b.Build(ctx, graphPath, configPath)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.progress.OnStageStart(StageWrite)
	data, err := Write(bundle, outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to write bundle %s: %w", outputPath, err)
	}
	summary.OutputPath = outputPath
	summary.OutputBytes = int64(len(data))
	b.progress.OnStageComplete(StageWrite, formatBytes(summary.OutputBytes))

	if b.scriptEnabled {
		scriptPath := b.scriptPath
		if scriptPath == "" {
			scriptPath = DefaultScriptPath(outputPath)
		}

		b.progress.OnStageStart(StageScript)
		if filepath.Clean(scriptPath) == filepath.Clean(outputPath) {
			b.logger.Warn("skipping script copy: path is the bundle itself",
				zap.String("path", scriptPath))
		} else if err := WriteScript(data, scriptPath); err != nil {
			b.logger.Warn("failed to write script copy",
				zap.String("path", scriptPath),
				zap.Error(err))
		} else {
			summary.ScriptPath = scriptPath
			b.progress.OnStageComplete(StageScript, scriptPath)
		}
	}

	summary.Duration = time.Since(start)
	b.progress.OnComplete(summary)

	return summary, nil
}

func checkInput(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat input %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}
	return nil
}

// formatBytes renders a size for progress output.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
