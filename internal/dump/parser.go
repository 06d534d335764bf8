package dump

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultProcessNamespace is the object modules are attached to in the dump.
	DefaultProcessNamespace = "process"
	// DefaultMaxSnippetLines bounds the raw snippet kept per module.
	DefaultMaxSnippetLines = 50
	// TruncationMarker is appended to snippets cut at the line limit.
	TruncationMarker = "\n...(truncated)"
)

// Parser recovers module records from a configuration dump.
type Parser struct {
	processNamespace string
	maxSnippetLines  int
	logger           *zap.Logger

	statement *regexp.Regexp
	patterns  *patterns
}

// Option configures a Parser.
type Option func(*Parser)

// WithProcessNamespace sets the object module statements are assigned on.
func WithProcessNamespace(ns string) Option {
	return func(p *Parser) {
		p.processNamespace = ns
	}
}

// WithCMSNamespace sets the namespace constructors are qualified with.
func WithCMSNamespace(ns string) Option {
	return func(p *Parser) {
		p.patterns = newPatterns(ns)
	}
}

// WithMaxSnippetLines bounds the raw snippet stored per module.
func WithMaxSnippetLines(n int) Option {
	return func(p *Parser) {
		p.maxSnippetLines = n
	}
}

// WithLogger sets the logger used for skipped statements.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a config dump parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		processNamespace: DefaultProcessNamespace,
		maxSnippetLines:  DefaultMaxSnippetLines,
		logger:           zap.NewNop(),
		patterns:         defaultPatterns,
	}
	for _, opt := range opts {
		opt(p)
	}

	kinds := make([]string, len(ModuleKinds))
	for i, k := range ModuleKinds {
		kinds[i] = string(k)
	}

	p.statement = regexp.MustCompile(
		regexp.QuoteMeta(p.processNamespace) + `\.(\w+)\s*=\s*` + regexp.QuoteMeta(p.patterns.namespace) +
			`\.(` + strings.Join(kinds, "|") + `)\s*\(\s*["']([^"']+)["']\s*`)

	return p
}

// ParseFile reads and parses a config dump from disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config dump: %w", err)
	}
	return p.Parse(ctx, string(data))
}

// Parse extracts every module statement from the dump text. Statements it cannot
// make sense of are skipped and counted, never reported as errors.
func (p *Parser) Parse(ctx context.Context, content string) (*Result, error) {
	content = strings.ToValidUTF8(content, "")

	result := &Result{Modules: make(map[string]*Module)}

	for _, loc := range p.statement.FindAllStringSubmatchIndex(content, -1) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result.Stats.Statements++
		start, end := loc[0], loc[1]
		name := content[loc[2]:loc[3]]

		// Only plain constructor calls carry a parameter list we understand.
		if end >= len(content) || (content[end] != ',' && content[end] != ')') {
			result.Stats.Skipped++
			p.logger.Debug("skipping module statement without parameter list", zap.String("module", name))
			continue
		}

		parenPos := strings.IndexByte(content[start:], '(')
		if parenPos < 0 {
			result.Stats.Skipped++
			continue
		}
		block, blockEnd := ExtractBalancedBlock(content, start+parenPos)

		module := &Module{
			Name:          name,
			Kind:          ModuleKind(content[loc[4]:loc[5]]),
			Plugin:        content[loc[6]:loc[7]],
			Parameters:    p.patterns.parameters(block),
			ReferenceTags: p.patterns.referenceTags(block),
			RawSnippet:    truncateLines(content[start:blockEnd], p.maxSnippetLines),
		}
		if module.ReferenceTags == nil {
			module.ReferenceTags = []ReferenceTag{}
		}

		if previous, ok := result.Modules[name]; ok {
			result.Stats.Overwritten++
			result.Stats.Tags -= len(previous.ReferenceTags)
		}
		result.Modules[name] = module
		result.Stats.Tags += len(module.ReferenceTags)
	}

	p.logger.Debug("parsed config dump",
		zap.Int("statements", result.Stats.Statements),
		zap.Int("modules", len(result.Modules)),
		zap.Int("skipped", result.Stats.Skipped),
		zap.Int("overwritten", result.Stats.Overwritten))

	return result, nil
}

// truncateLines keeps at most maxLines lines of s, marking the cut.
func truncateLines(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n") + TruncationMarker
}
