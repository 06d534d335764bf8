package search

import (
	"fmt"
	"sort"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/depgraph/internal/dump"
)

// Filter selects modules by name pattern, kind and resolution state.
type Filter struct {
	Match      string          // Glob over module names, e.g. "ak*Jets"; empty matches all
	Kind       dump.ModuleKind // Empty matches every kind
	Unresolved bool            // Only modules with at least one unresolved reference
}

// FilterModules returns the matching modules sorted by name.
func FilterModules(modules map[string]*dump.Module, f Filter) ([]*dump.Module, error) {
	var g glob.Glob
	if f.Match != "" {
		compiled, err := glob.Compile(f.Match)
		if err != nil {
			return nil, fmt.Errorf("invalid match pattern %q: %w", f.Match, err)
		}
		g = compiled
	}

	matched := make([]*dump.Module, 0, len(modules))
	for name, m := range modules {
		if g != nil && !g.Match(name) {
			continue
		}
		if f.Kind != "" && m.Kind != f.Kind {
			continue
		}
		if f.Unresolved && !hasUnresolved(m) {
			continue
		}
		matched = append(matched, m)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
	})
	return matched, nil
}

func hasUnresolved(m *dump.Module) bool {
	for _, tag := range m.ReferenceTags {
		if !tag.Found {
			return true
		}
	}
	return false
}
