package cli

// Test Plan for Build Command:
// - resolveBuildOptions uses configured paths when no arguments are given
// - resolveBuildOptions applies positional arguments in order and leaves the rest
// - --no-script and --script-path override the configured script settings
// - executeBuild writes the bundle and the script copy next to it
// - executeBuild prints stage lines and the InputTag resolution summary
// - executeBuild --quiet prints nothing
// - executeBuild reports missing inputs before parsing
// - watchBuild rebuilds after an input changes and stops on cancellation
// - newLogger builds both the verbose and the quiet logger
// - formatNumber inserts thousand separators

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mvp-joe/depgraph/internal/bundle"
	"github.com/mvp-joe/depgraph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	fixtureGraph  = "../../testdata/cmssw/dependency.gv"
	fixtureConfig = "../../testdata/cmssw/dumpConfig.py"
)

// copyFixtures copies the sample inputs into a temp directory so tests can modify them.
func copyFixtures(t *testing.T) (graphPath, configPath string) {
	t.Helper()

	dir := t.TempDir()
	graphPath = filepath.Join(dir, "dependency.gv")
	configPath = filepath.Join(dir, "dumpConfig.py")

	for src, dst := range map[string]string{fixtureGraph: graphPath, fixtureConfig: configPath} {
		data, err := os.ReadFile(src)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(dst, data, 0644))
	}
	return graphPath, configPath
}

func TestResolveBuildOptions_Defaults(t *testing.T) {
	t.Parallel()

	opts := resolveBuildOptions(config.Default(), nil, false, "", false)

	assert.Equal(t, "dependency.gv", opts.graphPath)
	assert.Equal(t, "dumpConfig.py", opts.configPath)
	assert.Equal(t, "data/bundle.json", opts.outputPath)
	assert.True(t, opts.scriptEnabled)
	assert.Empty(t, opts.scriptPath)
	assert.False(t, opts.quiet)
}

func TestResolveBuildOptions_PositionalArguments(t *testing.T) {
	t.Parallel()

	opts := resolveBuildOptions(config.Default(), []string{"run/graph.gv", "run/dump.py"}, false, "", true)

	assert.Equal(t, "run/graph.gv", opts.graphPath)
	assert.Equal(t, "run/dump.py", opts.configPath)
	assert.Equal(t, "data/bundle.json", opts.outputPath, "output keeps its configured value")
	assert.True(t, opts.quiet)

	opts = resolveBuildOptions(config.Default(), []string{"a.gv", "b.py", "out/c.json"}, false, "", false)
	assert.Equal(t, "out/c.json", opts.outputPath)
}

func TestResolveBuildOptions_ScriptFlags(t *testing.T) {
	t.Parallel()

	opts := resolveBuildOptions(config.Default(), nil, true, "", false)
	assert.False(t, opts.scriptEnabled)

	opts = resolveBuildOptions(config.Default(), nil, false, "web/data.js", false)
	assert.True(t, opts.scriptEnabled)
	assert.Equal(t, "web/data.js", opts.scriptPath)

	cfg := config.Default()
	cfg.Output.Script.Enabled = false
	opts = resolveBuildOptions(cfg, nil, false, "", false)
	assert.False(t, opts.scriptEnabled, "disabled in config stays disabled")
}

func TestExecuteBuild_WritesBundleAndScript(t *testing.T) {
	t.Parallel()

	graphPath, configPath := copyFixtures(t)
	outputPath := filepath.Join(t.TempDir(), "data", "bundle.json")

	cfg := config.Default()
	opts := resolveBuildOptions(cfg, []string{graphPath, configPath, outputPath}, false, "", true)

	summary, err := executeBuild(context.Background(), &bytes.Buffer{}, cfg, opts, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Nodes)
	assert.Equal(t, 6, summary.Edges)
	assert.Equal(t, 7, summary.Modules)
	assert.Equal(t, 7, summary.InputTags)
	assert.Equal(t, 3, summary.ResolvedTags)

	b, err := bundle.Load(outputPath)
	require.NoError(t, err)
	assert.Len(t, b.Nodes, 6)
	assert.Equal(t, 3, b.Metadata.InputTagFoundCount)

	scriptPath := bundle.DefaultScriptPath(outputPath)
	assert.Equal(t, scriptPath, summary.ScriptPath)
	script, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(script), bundle.ScriptVariable+" = {"))
}

func TestExecuteBuild_PrintsSummary(t *testing.T) {
	t.Parallel()

	graphPath, configPath := copyFixtures(t)
	outputPath := filepath.Join(t.TempDir(), "bundle.json")

	cfg := config.Default()
	opts := resolveBuildOptions(cfg, []string{graphPath, configPath, outputPath}, true, "", false)

	var out bytes.Buffer
	_, err := executeBuild(context.Background(), &out, cfg, opts, zap.NewNop())
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Parsing dependency graph: 6 nodes, 6 edges")
	assert.Contains(t, output, "Resolving references: 3/7 references")
	assert.Contains(t, output, "Bundle written: "+outputPath)
	assert.Contains(t, output, "Found 3/7 InputTag references (42.9%)")
	assert.NotContains(t, output, "Script:")
}

func TestExecuteBuild_Quiet(t *testing.T) {
	t.Parallel()

	graphPath, configPath := copyFixtures(t)
	outputPath := filepath.Join(t.TempDir(), "bundle.json")

	cfg := config.Default()
	opts := resolveBuildOptions(cfg, []string{graphPath, configPath, outputPath}, false, "", true)

	var out bytes.Buffer
	_, err := executeBuild(context.Background(), &out, cfg, opts, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestExecuteBuild_MissingInput(t *testing.T) {
	t.Parallel()

	_, configPath := copyFixtures(t)
	missing := filepath.Join(t.TempDir(), "missing.gv")
	outputPath := filepath.Join(t.TempDir(), "bundle.json")

	cfg := config.Default()
	opts := resolveBuildOptions(cfg, []string{missing, configPath, outputPath}, false, "", true)

	_, err := executeBuild(context.Background(), &bytes.Buffer{}, cfg, opts, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, bundle.ErrInputNotFound)
	assert.Contains(t, err.Error(), missing)

	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr), "no bundle is written")
}

func TestWatchBuild_RebuildsOnChange(t *testing.T) {
	t.Parallel()

	graphPath, configPath := copyFixtures(t)
	outputPath := filepath.Join(t.TempDir(), "bundle.json")

	cfg := config.Default()
	cfg.Watch.DebounceMS = 50
	opts := resolveBuildOptions(cfg, []string{graphPath, configPath, outputPath}, true, "", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- watchBuild(ctx, &bytes.Buffer{}, cfg, opts, zap.NewNop())
	}()

	// Initial build
	require.Eventually(t, func() bool {
		b, err := bundle.Load(outputPath)
		return err == nil && b.Metadata.ModuleCount == 7
	}, 5*time.Second, 20*time.Millisecond)

	// Give the watcher time to start
	time.Sleep(100 * time.Millisecond)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	extra := "\nprocess.extra = cms.EDProducer(\"ExtraProducer\",\n    src = cms.InputTag(\"jetFilter\")\n)\n"
	require.NoError(t, os.WriteFile(configPath, append(data, extra...), 0644))

	require.Eventually(t, func() bool {
		b, err := bundle.Load(outputPath)
		return err == nil && b.Metadata.ModuleCount == 8 && b.Metadata.InputTagFoundCount == 4
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch mode did not stop after cancellation")
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	verboseLogger, err := newLogger(true)
	require.NoError(t, err)
	assert.True(t, verboseLogger.Core().Enabled(zap.DebugLevel))

	quietLogger, err := newLogger(false)
	require.NoError(t, err)
	assert.False(t, quietLogger.Core().Enabled(zap.InfoLevel))
	assert.True(t, quietLogger.Core().Enabled(zap.WarnLevel))
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		number   int
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatNumber(tt.number))
	}
}
