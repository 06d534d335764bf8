package bundle

// Stage names a step of the build pipeline.
type Stage string

const (
	StageGraph   Stage = "graph"
	StageConfig  Stage = "config"
	StageResolve Stage = "resolve"
	StageWrite   Stage = "write"
	StageScript  Stage = "script"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageGraph, StageConfig, StageResolve, StageWrite, StageScript}

// ProgressReporter receives pipeline progress events.
type ProgressReporter interface {
	// OnStageStart is called before a stage runs.
	OnStageStart(stage Stage)

	// OnStageComplete is called after a stage succeeds with a short description of its output.
	OnStageComplete(stage Stage, detail string)

	// OnComplete is called once the bundle has been written.
	OnComplete(summary *Summary)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnStageStart(stage Stage)                   {}
func (n *NoOpProgressReporter) OnStageComplete(stage Stage, detail string) {}
func (n *NoOpProgressReporter) OnComplete(summary *Summary)                {}
