package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Explorer:
// - Upstream follows predecessors level by level
// - Downstream follows successors
// - Both follows any adjacent node and keeps all edges among visited nodes
// - Paths unions the upstream and downstream chains without cross edges
// - Centers resolve by label first, then by node ID
// - Unknown centers and directions are rejected
// - Depth defaults to 1 when not positive
// - Undirected graphs treat every neighbour as both upstream and downstream
// - Node and Edge JSON is flat and round-trips

func setupExplorer(t *testing.T) *Explorer {
	t.Helper()

	result, err := NewParser().ParseFile(context.Background(), fixtureGraph)
	require.NoError(t, err)

	explorer, err := NewExplorer(result.Nodes, result.Edges, result.LabelToID, result.Directed)
	require.NoError(t, err)
	return explorer
}

func neighborIDs(n *Neighborhood) map[string]int {
	ids := make(map[string]int, len(n.Nodes))
	for _, nb := range n.Nodes {
		ids[nb.Node.ID] = nb.Depth
	}
	return ids
}

func TestExplorer_Directions(t *testing.T) {
	t.Parallel()

	explorer := setupExplorer(t)

	tests := []struct {
		name      string
		dir       Direction
		depth     int
		wantNodes map[string]int
		wantEdges int
	}{
		{"upstream depth 1", DirectionUpstream, 1, map[string]int{"2": 1}, 1},
		{"upstream depth 2", DirectionUpstream, 2, map[string]int{"2": 1, "0": 2, "1": 2}, 4},
		{"downstream", DirectionDownstream, 3, map[string]int{"4": 1, "5": 1}, 2},
		{"both", DirectionBoth, 1, map[string]int{"2": 1, "4": 1, "5": 1}, 3},
		{"paths", DirectionPaths, 2, map[string]int{"2": 1, "0": 2, "1": 2, "4": 1, "5": 1}, 6},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n, err := explorer.Neighborhood(context.Background(), "jetFilter", tt.depth, tt.dir)
			require.NoError(t, err)

			assert.Equal(t, "3", n.Center.ID)
			assert.Equal(t, tt.wantNodes, neighborIDs(n))
			assert.Len(t, n.Edges, tt.wantEdges)
		})
	}
}

func TestExplorer_OrderedByDepth(t *testing.T) {
	t.Parallel()

	explorer := setupExplorer(t)

	n, err := explorer.Neighborhood(context.Background(), "out", 5, DirectionUpstream)
	require.NoError(t, err)

	var ids []string
	for _, nb := range n.Nodes {
		ids = append(ids, nb.Node.ID)
	}
	assert.Equal(t, []string{"3", "2", "0", "1"}, ids)
}

func TestExplorer_Lookup(t *testing.T) {
	t.Parallel()

	explorer := setupExplorer(t)

	byLabel, err := explorer.Lookup("ak4Jets")
	require.NoError(t, err)
	assert.Equal(t, "2", byLabel.ID)

	byID, err := explorer.Lookup("4")
	require.NoError(t, err)
	assert.Equal(t, "analyzer", byID.Label)

	_, err = explorer.Lookup("missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestExplorer_Errors(t *testing.T) {
	t.Parallel()

	explorer := setupExplorer(t)

	_, err := explorer.Neighborhood(context.Background(), "ak4Jets", 1, Direction("sideways"))
	assert.Error(t, err)

	_, err = explorer.Neighborhood(context.Background(), "nope", 1, DirectionBoth)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestExplorer_DefaultDepth(t *testing.T) {
	t.Parallel()

	explorer := setupExplorer(t)

	n, err := explorer.Neighborhood(context.Background(), "source", 0, DirectionDownstream)
	require.NoError(t, err)
	assert.Equal(t, DefaultDepth, n.Depth)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, neighborIDs(n))
}

func TestExplorer_Undirected(t *testing.T) {
	t.Parallel()

	result, err := NewParser().Parse(context.Background(), `graph { a; b; c; a -- b; b -- c; }`)
	require.NoError(t, err)

	explorer, err := NewExplorer(result.Nodes, result.Edges, result.LabelToID, result.Directed)
	require.NoError(t, err)

	n, err := explorer.Neighborhood(context.Background(), "c", 2, DirectionUpstream)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b": 1, "a": 2}, neighborIDs(n))
}

func TestExplorer_PathsDropsCrossEdges(t *testing.T) {
	t.Parallel()

	result, err := NewParser().Parse(context.Background(), `digraph { u; c; d; u -> c; c -> d; u -> d; }`)
	require.NoError(t, err)

	explorer, err := NewExplorer(result.Nodes, result.Edges, result.LabelToID, result.Directed)
	require.NoError(t, err)

	n, err := explorer.Neighborhood(context.Background(), "c", 1, DirectionPaths)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"u": 1, "d": 1}, neighborIDs(n))

	pairs := make([]string, 0, len(n.Edges))
	for _, e := range n.Edges {
		pairs = append(pairs, e.Source+"->"+e.Target)
	}
	assert.ElementsMatch(t, []string{"u->c", "c->d"}, pairs)

	// Both keeps the edge between the two neighbours.
	n, err = explorer.Neighborhood(context.Background(), "c", 1, DirectionBoth)
	require.NoError(t, err)
	assert.Len(t, n.Edges, 3)
}

func TestNode_JSON(t *testing.T) {
	t.Parallel()

	node := Node{ID: "1", Label: "ak4Jets", Attributes: map[string]string{"shape": "box", "color": "red", "id": "shadow"}}

	data, err := json.Marshal(node)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","label":"ak4Jets","color":"red","shape":"box"}`, string(data))
	assert.Equal(t, `{"id":"1","label":"ak4Jets","color":"red","shape":"box"}`, string(data))

	var back Node
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "1", back.ID)
	assert.Equal(t, "ak4Jets", back.Label)
	assert.Equal(t, map[string]string{"color": "red", "shape": "box"}, back.Attributes)
}

func TestEdge_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Edge{Source: "a", Target: "b"})
	require.NoError(t, err)
	assert.Equal(t, `{"source":"a","target":"b"}`, string(data))

	var back Edge
	require.NoError(t, json.Unmarshal([]byte(`{"source":"a","target":"b","weight":2}`), &back))
	assert.Equal(t, "a", back.Source)
	assert.Equal(t, map[string]string{"weight": "2"}, back.Attributes)
}
