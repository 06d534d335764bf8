package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	_ "github.com/blevesearch/bleve/v2/search/highlight/highlighter/ansi"
	"github.com/mvp-joe/depgraph/internal/dump"
)

// Search limits
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ModuleSearcher runs keyword queries over the modules of a bundle.
type ModuleSearcher interface {
	// Search executes a bleve query-string query, e.g. "plugin:fastjetjetproducer"
	// or "refs:offlineBeamSpot". Options may be nil.
	Search(ctx context.Context, queryStr string, options *Options) ([]*Result, error)

	// Close releases the index.
	Close() error
}

// Options narrows a search.
type Options struct {
	Limit int             // Maximum results, DefaultLimit when not positive
	Kind  dump.ModuleKind // Only modules of this kind when set
}

// Result is a matching module with its relevance score.
type Result struct {
	Module     *dump.Module `json:"module"`
	Score      float64      `json:"score"`
	Highlights []string     `json:"highlights,omitempty"`
}

// moduleSearcher implements ModuleSearcher with an in-memory bleve index.
type moduleSearcher struct {
	index   bleve.Index
	modules map[string]*dump.Module
	mu      sync.RWMutex
}

// NewModuleSearcher indexes every module.
func NewModuleSearcher(ctx context.Context, modules map[string]*dump.Module) (ModuleSearcher, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	if err := indexModules(ctx, index, modules); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index modules: %w", err)
	}

	return &moduleSearcher{
		index:   index,
		modules: modules,
	}, nil
}

// buildMapping creates the index mapping for module documents.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	textField := func(analyzer string) *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = analyzer
		m.Store = false
		m.Index = true
		return m
	}

	// Snippet is highlighted, so it keeps term vectors and its stored text.
	snippetMapping := textField("standard")
	snippetMapping.Store = true
	snippetMapping.IncludeTermVectors = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textField("standard"))
	docMapping.AddFieldMappingsAt("label", textField("keyword"))
	docMapping.AddFieldMappingsAt("plugin", textField("standard"))
	docMapping.AddFieldMappingsAt("kind", textField("keyword"))
	docMapping.AddFieldMappingsAt("params", textField("standard"))
	docMapping.AddFieldMappingsAt("refs", textField("keyword"))
	docMapping.AddFieldMappingsAt("snippet", snippetMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// indexModules adds modules to the index in batches.
func indexModules(ctx context.Context, index bleve.Index, modules map[string]*dump.Module) error {
	const batchSize = 1000

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	batch := index.NewBatch()
	for i, name := range names {
		if i%batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		if err := batch.Index(name, moduleToDocument(modules[name])); err != nil {
			return fmt.Errorf("failed to add module %s to batch: %w", name, err)
		}

		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}

	return nil
}

// moduleToDocument converts a module to a bleve document.
func moduleToDocument(m *dump.Module) map[string]interface{} {
	keys := make([]string, 0, len(m.Parameters))
	for k := range m.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([]string, 0, len(keys))
	for _, k := range keys {
		params = append(params, k+" "+m.Parameters[k].Value)
	}

	refs := make([]string, 0, len(m.ReferenceTags))
	for _, tag := range m.ReferenceTags {
		refs = append(refs, tag.Module)
	}

	return map[string]interface{}{
		"name":    m.Name,
		"label":   m.Name,
		"plugin":  m.Plugin,
		"kind":    string(m.Kind),
		"params":  strings.Join(params, "\n"),
		"refs":    refs,
		"snippet": m.RawSnippet,
	}
}

// Search executes a query-string search, optionally restricted to one module kind.
func (s *moduleSearcher) Search(ctx context.Context, queryStr string, options *Options) ([]*Result, error) {
	if options == nil {
		options = &Options{}
	}

	limit := options.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var finalQuery query.Query = bleve.NewQueryStringQuery(queryStr)
	if options.Kind != "" {
		kindQuery := bleve.NewTermQuery(string(options.Kind))
		kindQuery.SetField("kind")
		finalQuery = bleve.NewConjunctionQuery(finalQuery, kindQuery)
	}

	searchRequest := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	searchRequest.Highlight = bleve.NewHighlightWithStyle("ansi")
	searchRequest.Highlight.Fields = []string{"snippet"}

	searchResult, err := s.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*Result, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		module, ok := s.modules[hit.ID]
		if !ok {
			continue
		}
		results = append(results, &Result{
			Module:     module,
			Score:      hit.Score,
			Highlights: extractHighlights(hit.Fragments),
		})
	}

	return results, nil
}

// extractHighlights keeps at most three fragments per result.
func extractHighlights(fragments map[string][]string) []string {
	var highlights []string
	for _, snippets := range fragments {
		highlights = append(highlights, snippets...)
	}
	if len(highlights) > 3 {
		highlights = highlights[:3]
	}
	return highlights
}

// Close releases resources held by the searcher.
func (s *moduleSearcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
