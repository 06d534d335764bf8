package bundle

import (
	"sort"

	"github.com/mvp-joe/depgraph/internal/dump"
	"github.com/mvp-joe/depgraph/internal/graph"
)

// ResolveStats counts reference tags and how many matched a graph label.
type ResolveStats struct {
	Total int
	Found int
}

// Resolve sets Found and TargetID on every reference tag by exact lookup of
// the referenced module in the label index. Instance and process are ignored.
func Resolve(modules map[string]*dump.Module, index graph.LabelIndex) ResolveStats {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	var stats ResolveStats
	for _, name := range names {
		tags := modules[name].ReferenceTags
		for i := range tags {
			tag := &tags[i]
			stats.Total++

			id, ok := index.Lookup(tag.Module)
			if !ok {
				tag.Found = false
				tag.TargetID = nil
				continue
			}
			tag.Found = true
			tag.TargetID = &id
			stats.Found++
		}
	}
	return stats
}
