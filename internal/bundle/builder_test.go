package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvp-joe/depgraph/internal/dump"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Test Plan for Builder:
// - Fixture inputs produce the expected counts and resolution outcomes
// - Missing inputs fail with ErrInputNotFound before anything is written
// - Run writes the bundle, creating parent directories, and reports its size
// - Rebuilding unchanged inputs produces byte-identical output
// - The script copy wraps the bundle in a global assignment
// - A failing script copy logs a warning and does not fail the run
// - A script path equal to the bundle path is skipped, leaving the bundle intact
// - A reference with an empty module part never resolves
// - References resolve by label, never by raw node ID
// - Progress events arrive in stage order
// - Cancelled contexts stop the build

const (
	fixtureGraph = "../../testdata/cmssw/dependency.gv"
	fixtureDump  = "../../testdata/cmssw/dumpConfig.py"
)

func writeInputs(t *testing.T, dot, config string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	graphPath := filepath.Join(dir, "dependency.gv")
	configPath := filepath.Join(dir, "dumpConfig.py")
	require.NoError(t, os.WriteFile(graphPath, []byte(dot), 0644))
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))
	return graphPath, configPath
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	bundle, summary, err := NewBuilder().Build(context.Background(), fixtureGraph, fixtureDump)
	require.NoError(t, err)

	assert.Equal(t, Metadata{
		IsDirected:         true,
		NodeCount:          6,
		EdgeCount:          6,
		ModuleCount:        7,
		SkippedEdgeCount:   1,
		InputTagCount:      7,
		InputTagFoundCount: 3,
	}, bundle.Metadata)

	assert.Equal(t, 7, summary.InputTags)
	assert.Equal(t, 3, summary.ResolvedTags)
	assert.Equal(t, 1, summary.SkippedStatements)
	assert.InDelta(t, 42.857, summary.ResolutionRate(), 0.01)

	tags := bundle.Modules["ak4Jets"].ReferenceTags
	require.Len(t, tags, 3)
	assert.False(t, tags[0].Found)
	assert.Nil(t, tags[0].TargetID)
	assert.True(t, tags[2].Found)
	require.NotNil(t, tags[2].TargetID)
	assert.Equal(t, "1", *tags[2].TargetID)

	// Every tag has exactly one outcome.
	for name, m := range bundle.Modules {
		for _, tag := range m.ReferenceTags {
			assert.Equal(t, tag.Found, tag.TargetID != nil, name)
		}
	}
}

func TestBuilder_InputNotFound(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out", "bundle.json")
	builder := NewBuilder()

	_, err := builder.Run(context.Background(), "missing.gv", fixtureDump, out)
	require.ErrorIs(t, err, ErrInputNotFound)
	assert.Contains(t, err.Error(), "missing.gv")

	_, err = builder.Run(context.Background(), fixtureGraph, "missing.py", out)
	require.ErrorIs(t, err, ErrInputNotFound)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuilder_Run(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "nested", "data", "bundle.json")

	summary, err := NewBuilder().Run(context.Background(), fixtureGraph, fixtureDump, out)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), summary.OutputBytes)
	assert.Equal(t, out, summary.OutputPath)
	assert.Empty(t, summary.ScriptPath)

	_, err = os.Stat(DefaultScriptPath(out))
	assert.True(t, os.IsNotExist(err))

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	loaded, err := Load(out)
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 6)
	assert.Equal(t, "ak4Jets", loaded.Nodes[2].Label)
	assert.Equal(t, "2", loaded.LabelToID["ak4Jets"])
	assert.Equal(t, dump.KindFilter, loaded.Modules["jetFilter"].Kind)
}

func TestBuilder_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")

	_, err := NewBuilder().Run(context.Background(), fixtureGraph, fixtureDump, first)
	require.NoError(t, err)
	_, err = NewBuilder().Run(context.Background(), fixtureGraph, fixtureDump, second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestBuilder_Script(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "bundle.json")

	summary, err := NewBuilder(WithScript(true, "")).Run(context.Background(), fixtureGraph, fixtureDump, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bundle.js"), summary.ScriptPath)

	script, err := os.ReadFile(summary.ScriptPath)
	require.NoError(t, err)
	bundleData, err := os.ReadFile(out)
	require.NoError(t, err)

	text := string(script)
	require.True(t, strings.HasPrefix(text, ScriptVariable+" = "))
	require.True(t, strings.HasSuffix(text, ";\n"))

	payload := strings.TrimSuffix(strings.TrimPrefix(text, ScriptVariable+" = "), ";\n")
	assert.Equal(t, string(bundleData), payload)
	assert.True(t, json.Valid([]byte(payload)))
}

func TestBuilder_ScriptFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not a directory"), 0644))

	core, logs := observer.New(zapcore.WarnLevel)
	builder := NewBuilder(
		WithLogger(zap.New(core)),
		WithScript(true, filepath.Join(blocker, "bundle.js")),
	)

	out := filepath.Join(dir, "bundle.json")
	summary, err := builder.Run(context.Background(), fixtureGraph, fixtureDump, out)
	require.NoError(t, err)
	assert.Empty(t, summary.ScriptPath)

	_, err = os.Stat(out)
	assert.NoError(t, err)

	warnings := logs.FilterMessage("failed to write script copy").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, filepath.Join(blocker, "bundle.js"), warnings[0].ContextMap()["path"])
}

func TestBuilder_ScriptPathSameAsBundle(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	out := filepath.Join(t.TempDir(), "out", "bundle.js")

	summary, err := NewBuilder(WithLogger(zap.New(core)), WithScript(true, "")).
		Run(context.Background(), fixtureGraph, fixtureDump, out)
	require.NoError(t, err)
	assert.Empty(t, summary.ScriptPath)

	loaded, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Metadata.InputTagFoundCount)

	warnings := logs.FilterMessage("skipping script copy: path is the bundle itself").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, out, warnings[0].ContextMap()["path"])
}

func TestBuilder_ResolvesByLabelOnly(t *testing.T) {
	t.Parallel()

	graphPath, configPath := writeInputs(t,
		`digraph { n1 [label="X"]; }`,
		`process.m = cms.EDProducer("P", byLabel = cms.InputTag("X"), byID = cms.InputTag("n1"))`)

	bundle, _, err := NewBuilder().Build(context.Background(), graphPath, configPath)
	require.NoError(t, err)

	tags := bundle.Modules["m"].ReferenceTags
	require.Len(t, tags, 2)
	assert.True(t, tags[0].Found)
	assert.Equal(t, "n1", *tags[0].TargetID)
	assert.False(t, tags[1].Found)
	assert.Nil(t, tags[1].TargetID)
}

func TestBuilder_EmptyModuleDoesNotResolve(t *testing.T) {
	t.Parallel()

	graphPath, configPath := writeInputs(t,
		`digraph { n1 [label=""]; }`,
		`process.m = cms.EDProducer("P", src = cms.InputTag(":inst"))`)

	bundle, summary, err := NewBuilder().Build(context.Background(), graphPath, configPath)
	require.NoError(t, err)

	assert.Empty(t, bundle.LabelToID)
	tags := bundle.Modules["m"].ReferenceTags
	require.Len(t, tags, 1)
	assert.Equal(t, "", tags[0].Module)
	assert.Equal(t, "inst", tags[0].Instance)
	assert.False(t, tags[0].Found)
	assert.Nil(t, tags[0].TargetID)
	assert.Equal(t, 0, summary.ResolvedTags)
}

func TestBuilder_ParseErrors(t *testing.T) {
	t.Parallel()

	graphPath, configPath := writeInputs(t, `digraph { a -> `, ``)

	_, _, err := NewBuilder().Build(context.Background(), graphPath, configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse graph")
}

func TestBuilder_Progress(t *testing.T) {
	t.Parallel()

	progress := &recordingProgress{}
	out := filepath.Join(t.TempDir(), "bundle.json")

	_, err := NewBuilder(WithProgress(progress), WithScript(true, "")).
		Run(context.Background(), fixtureGraph, fixtureDump, out)
	require.NoError(t, err)

	assert.Equal(t, Stages, progress.started)
	assert.Equal(t, Stages, progress.completed)
	assert.Equal(t, "6 nodes, 6 edges", progress.details[0])
	assert.Equal(t, "3/7 references", progress.details[2])
	require.NotNil(t, progress.summary)
	assert.Equal(t, 7, progress.summary.Modules)
}

func TestBuilder_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "bundle.json")
	_, err := NewBuilder().Run(ctx, fixtureGraph, fixtureDump, out)
	assert.ErrorIs(t, err, context.Canceled)
}

// recordingProgress tracks progress events for testing
type recordingProgress struct {
	started   []Stage
	completed []Stage
	details   []string
	summary   *Summary
}

func (r *recordingProgress) OnStageStart(stage Stage) {
	r.started = append(r.started, stage)
}

func (r *recordingProgress) OnStageComplete(stage Stage, detail string) {
	r.completed = append(r.completed, stage)
	r.details = append(r.details, detail)
}

func (r *recordingProgress) OnComplete(summary *Summary) {
	r.summary = summary
}
