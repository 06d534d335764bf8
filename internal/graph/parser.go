package graph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/awalterschulze/gographviz/ast"
	"go.uber.org/zap"
)

// ErrParse is returned when the input is not valid DOT.
var ErrParse = errors.New("invalid DOT graph")

// reservedIDs are DOT keywords that never name a node.
var reservedIDs = map[string]bool{
	"node":  true,
	"graph": true,
	"edge":  true,
}

// Parser turns DOT text into nodes, edges and a label index.
type Parser struct {
	collision CollisionPolicy
	logger    *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLabelCollision sets which node keeps a label shared by several nodes.
func WithLabelCollision(policy CollisionPolicy) Option {
	return func(p *Parser) {
		p.collision = policy
	}
}

// WithLogger sets the logger used for dropped edges and label collisions.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a DOT parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		collision: CollisionLast,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses a DOT file from disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	return p.Parse(ctx, string(data))
}

// pendingEdge is an edge statement pair whose endpoints are checked once every
// node is known.
type pendingEdge struct {
	source, target ast.Location
	attrs          map[string]string
}

// walkState accumulates nodes and edges while visiting statements.
type walkState struct {
	nodes   []Node
	indexOf map[string]int
	edges   []pendingEdge
}

// Parse parses DOT text. Syntax errors wrap ErrParse.
func (p *Parser) Parse(ctx context.Context, content string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := gographviz.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	state := &walkState{indexOf: make(map[string]int)}
	state.walk(tree.StmtList)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Directed:  tree.Type == ast.DIGRAPH,
		Nodes:     state.nodes,
		Edges:     []Edge{},
		LabelToID: make(LabelIndex, len(state.nodes)),
	}
	if result.Nodes == nil {
		result.Nodes = []Node{}
	}

	for _, pe := range state.edges {
		if !pe.source.IsNode() || !pe.target.IsNode() {
			result.SkippedEdges++
			p.logger.Debug("dropping edge with subgraph endpoint")
			continue
		}
		source := unquote(string(pe.source.GetID()))
		target := unquote(string(pe.target.GetID()))
		_, okSource := state.indexOf[source]
		_, okTarget := state.indexOf[target]
		if !okSource || !okTarget {
			result.SkippedEdges++
			p.logger.Debug("dropping edge with unknown endpoint",
				zap.String("source", source),
				zap.String("target", target))
			continue
		}
		result.Edges = append(result.Edges, Edge{Source: source, Target: target, Attributes: pe.attrs})
	}

	for _, n := range result.Nodes {
		if n.Label == "" {
			continue
		}
		existing, taken := result.LabelToID[n.Label]
		if taken && existing != n.ID {
			result.LabelCollisions++
			p.logger.Debug("label shared by several nodes",
				zap.String("label", n.Label),
				zap.String("kept", existing),
				zap.String("other", n.ID))
			if p.collision == CollisionFirst {
				continue
			}
		}
		result.LabelToID[n.Label] = n.ID
	}

	p.logger.Debug("parsed graph",
		zap.Bool("directed", result.Directed),
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("edges", len(result.Edges)),
		zap.Int("skipped_edges", result.SkippedEdges),
		zap.Int("label_collisions", result.LabelCollisions))

	return result, nil
}

func (s *walkState) walk(stmts ast.StmtList) {
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case *ast.NodeStmt:
			s.addNode(st)
		case *ast.EdgeStmt:
			s.addEdges(st)
		case *ast.SubGraph:
			s.walk(st.StmtList)
		}
	}
}

func (s *walkState) addNode(st *ast.NodeStmt) {
	id := unquote(string(st.NodeID.GetID()))
	if reservedIDs[id] {
		return
	}
	attrs := attributes(st.Attrs)
	delete(attrs, "id")

	// Repeated statements for the same node merge into its first occurrence.
	if i, ok := s.indexOf[id]; ok {
		n := &s.nodes[i]
		if label, ok := attrs["label"]; ok {
			n.Label = label
			delete(attrs, "label")
		}
		for k, v := range attrs {
			n.Attributes[k] = v
		}
		return
	}

	label, ok := attrs["label"]
	if !ok {
		label = id
	}
	delete(attrs, "label")

	s.indexOf[id] = len(s.nodes)
	s.nodes = append(s.nodes, Node{ID: id, Label: label, Attributes: attrs})
}

func (s *walkState) addEdges(st *ast.EdgeStmt) {
	attrs := attributes(st.Attrs)
	delete(attrs, "source")
	delete(attrs, "target")

	source := st.Source
	for _, rh := range st.EdgeRHS {
		s.edges = append(s.edges, pendingEdge{
			source: source,
			target: rh.Destination,
			attrs:  copyAttrs(attrs),
		})
		source = rh.Destination
	}
}

// attributes returns the statement attributes with quotes stripped from keys and values.
func attributes(list ast.AttrList) map[string]string {
	attrs := make(map[string]string)
	for k, v := range list.GetMap() {
		attrs[unquote(k)] = unquote(v)
	}
	return attrs
}

func copyAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// unquote strips the double quotes around a DOT string literal and undoes
// escaped quotes inside it. Other IDs are returned unchanged.
func unquote(id string) string {
	if len(id) >= 2 && id[0] == '"' && id[len(id)-1] == '"' {
		return strings.ReplaceAll(id[1:len(id)-1], `\"`, `"`)
	}
	return id
}
