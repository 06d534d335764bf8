package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

// Direction selects which relationships a neighbourhood query follows.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // Producers feeding the center
	DirectionDownstream Direction = "downstream" // Consumers of the center
	DirectionBoth       Direction = "both"       // Any adjacent node
	DirectionPaths      Direction = "paths"      // Upstream and downstream chains
)

// Query defaults and limits
const (
	DefaultDepth = 1
	MaxDepth     = 25
)

// ErrNodeNotFound is returned when a center matches neither a label nor an ID.
var ErrNodeNotFound = errors.New("node not found")

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUpstream, DirectionDownstream, DirectionBoth, DirectionPaths:
		return true
	}
	return false
}

// Neighbor is a node reached from the center and the BFS level it was found at.
type Neighbor struct {
	Node  *Node `json:"node"`
	Depth int   `json:"depth"`
}

// Neighborhood is the answer to an Explorer query.
type Neighborhood struct {
	Center    *Node      `json:"center"`
	Direction Direction  `json:"direction"`
	Depth     int        `json:"depth"`
	Nodes     []Neighbor `json:"nodes"` // Sorted by depth, then ID; excludes the center
	Edges     []Edge     `json:"edges"`
}

// Explorer answers dependency queries over a parsed module graph.
type Explorer struct {
	graph  graph.Graph[string, *Node]
	labels LabelIndex
	edges  []Edge

	successors   map[string][]string
	predecessors map[string][]string
}

// NewExplorer loads nodes and edges into an in-memory graph.
func NewExplorer(nodes []Node, edges []Edge, labels LabelIndex, directed bool) (*Explorer, error) {
	var g graph.Graph[string, *Node]
	if directed {
		g = graph.New(func(n *Node) string { return n.ID }, graph.Directed())
	} else {
		g = graph.New(func(n *Node) string { return n.ID })
	}

	for i := range nodes {
		node := &nodes[i]
		if err := g.AddVertex(node); err != nil {
			return nil, fmt.Errorf("failed to add node %s: %w", node.ID, err)
		}
	}

	for _, edge := range edges {
		err := g.AddEdge(edge.Source, edge.Target)
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add edge %s -> %s: %w", edge.Source, edge.Target, err)
		}
	}

	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to build adjacency map: %w", err)
	}
	predecessors, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to build predecessor map: %w", err)
	}

	if labels == nil {
		labels = LabelIndex{}
	}

	return &Explorer{
		graph:        g,
		labels:       labels,
		edges:        edges,
		successors:   sortedKeys(adjacency),
		predecessors: sortedKeys(predecessors),
	}, nil
}

// Lookup resolves a label, falling back to a raw node ID.
func (e *Explorer) Lookup(ref string) (*Node, error) {
	id := ref
	if mapped, ok := e.labels.Lookup(ref); ok {
		id = mapped
	}
	node, err := e.graph.Vertex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, ref)
	}
	return node, nil
}

// Neighborhood returns the nodes within depth steps of center in the given direction.
func (e *Explorer) Neighborhood(ctx context.Context, center string, depth int, dir Direction) (*Neighborhood, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("unsupported direction: %s", dir)
	}
	if depth <= 0 {
		depth = DefaultDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}

	start, err := e.Lookup(center)
	if err != nil {
		return nil, err
	}

	var levels map[string]int
	var keep func(Edge) bool

	switch dir {
	case DirectionUpstream:
		levels = e.traverse(ctx, start.ID, depth, e.predecessors)
		keep = within(levels)
	case DirectionDownstream:
		levels = e.traverse(ctx, start.ID, depth, e.successors)
		keep = within(levels)
	case DirectionBoth:
		levels = e.traverse(ctx, start.ID, depth, e.predecessors, e.successors)
		keep = within(levels)
	case DirectionPaths:
		up := e.traverse(ctx, start.ID, depth, e.predecessors)
		down := e.traverse(ctx, start.ID, depth, e.successors)
		inUp, inDown := within(up), within(down)
		keep = func(edge Edge) bool { return inUp(edge) || inDown(edge) }
		levels = make(map[string]int, len(up)+len(down))
		for id, d := range up {
			levels[id] = d
		}
		for id, d := range down {
			if prev, ok := levels[id]; !ok || d < prev {
				levels[id] = d
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Neighborhood{
		Center:    start,
		Direction: dir,
		Depth:     depth,
		Nodes:     []Neighbor{},
		Edges:     []Edge{},
	}

	for id, d := range levels {
		if id == start.ID {
			continue
		}
		node, err := e.graph.Vertex(id)
		if err != nil {
			continue
		}
		result.Nodes = append(result.Nodes, Neighbor{Node: node, Depth: d})
	}
	sort.Slice(result.Nodes, func(i, j int) bool {
		if result.Nodes[i].Depth != result.Nodes[j].Depth {
			return result.Nodes[i].Depth < result.Nodes[j].Depth
		}
		return result.Nodes[i].Node.ID < result.Nodes[j].Node.ID
	})

	for _, edge := range e.edges {
		if keep(edge) {
			result.Edges = append(result.Edges, edge)
		}
	}

	return result, nil
}

// traverse runs a level-order walk from start over the union of the given
// adjacency lists, recording the level each node is first reached at.
func (e *Explorer) traverse(ctx context.Context, start string, depth int, adjacency ...map[string][]string) map[string]int {
	levels := map[string]int{start: 0}
	frontier := []string{start}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		if ctx.Err() != nil {
			break
		}
		var next []string
		for _, id := range frontier {
			for _, adj := range adjacency {
				for _, neighbor := range adj[id] {
					if _, seen := levels[neighbor]; seen {
						continue
					}
					levels[neighbor] = level
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	return levels
}

// within keeps edges whose endpoints were both visited.
func within(levels map[string]int) func(Edge) bool {
	return func(edge Edge) bool {
		_, okSource := levels[edge.Source]
		_, okTarget := levels[edge.Target]
		return okSource && okTarget
	}
}

// sortedKeys flattens an adjacency map into neighbour lists in ID order.
func sortedKeys(m map[string]map[string]graph.Edge[string]) map[string][]string {
	out := make(map[string][]string, len(m))
	for id, neighbors := range m {
		list := make([]string, 0, len(neighbors))
		for n := range neighbors {
			list = append(list, n)
		}
		sort.Strings(list)
		out[id] = list
	}
	return out
}
