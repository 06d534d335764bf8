package bundle

import (
	"time"

	"github.com/mvp-joe/depgraph/internal/dump"
	"github.com/mvp-joe/depgraph/internal/graph"
)

// Bundle is the JSON document handed to the visualization front end.
type Bundle struct {
	Nodes     []graph.Node            `json:"nodes"`
	Edges     []graph.Edge            `json:"edges"`
	Modules   map[string]*dump.Module `json:"modules"`
	LabelToID graph.LabelIndex        `json:"labelToId"`
	Metadata  Metadata                `json:"metadata"`
}

// Metadata carries aggregate counts. It has no timestamps so that unchanged
// inputs produce byte-identical bundles.
type Metadata struct {
	IsDirected         bool `json:"is_directed"`
	NodeCount          int  `json:"node_count"`
	EdgeCount          int  `json:"edge_count"`
	ModuleCount        int  `json:"module_count"`
	SkippedEdgeCount   int  `json:"skipped_edge_count"`
	InputTagCount      int  `json:"input_tag_count"`
	InputTagFoundCount int  `json:"input_tag_found_count"`
}

// Summary reports what a build produced.
type Summary struct {
	GraphPath  string
	ConfigPath string
	OutputPath string
	ScriptPath string // Empty when no script copy was written

	Nodes             int
	Edges             int
	SkippedEdges      int
	LabelCollisions   int
	Modules           int
	SkippedStatements int
	InputTags         int
	ResolvedTags      int

	OutputBytes int64
	Duration    time.Duration
}

// ResolutionRate returns the percentage of references that resolved, 0 when there are none.
func (s *Summary) ResolutionRate() float64 {
	if s.InputTags == 0 {
		return 0
	}
	return float64(s.ResolvedTags) / float64(s.InputTags) * 100
}
