package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Node is a vertex of the module graph.
type Node struct {
	ID         string            // Unique DOT node identifier
	Label      string            // Display name, defaults to ID
	Attributes map[string]string // Remaining DOT attributes, values unquoted
}

// Edge is a directed (or undirected) relationship between two registered nodes.
type Edge struct {
	Source     string
	Target     string
	Attributes map[string]string
}

// LabelIndex maps a node label to the identifier of the node carrying it.
type LabelIndex map[string]string

// Lookup returns the node ID registered for label.
func (l LabelIndex) Lookup(label string) (string, bool) {
	id, ok := l[label]
	return id, ok
}

// CollisionPolicy decides which node keeps a label shared by several nodes.
type CollisionPolicy string

const (
	CollisionLast  CollisionPolicy = "last"  // Later nodes overwrite earlier ones
	CollisionFirst CollisionPolicy = "first" // The first node keeps the label
)

// Valid reports whether p is a known policy.
func (p CollisionPolicy) Valid() bool {
	return p == CollisionLast || p == CollisionFirst
}

// Result is the parsed form of a DOT file.
type Result struct {
	Directed        bool
	Nodes           []Node // Declaration order
	Edges           []Edge // Declaration order, chains expanded
	LabelToID       LabelIndex
	SkippedEdges    int // Edges with an unknown or subgraph endpoint
	LabelCollisions int // Labels claimed by more than one node
}

// MarshalJSON flattens attributes next to id and label.
func (n Node) MarshalJSON() ([]byte, error) {
	return marshalFlat([][2]string{{"id", n.ID}, {"label", n.Label}}, n.Attributes)
}

// UnmarshalJSON reverses MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	fields, err := unmarshalFlat(data)
	if err != nil {
		return fmt.Errorf("failed to parse node: %w", err)
	}
	n.ID = fields["id"]
	n.Label = fields["label"]
	delete(fields, "id")
	delete(fields, "label")
	n.Attributes = fields
	return nil
}

// MarshalJSON flattens attributes next to source and target.
func (e Edge) MarshalJSON() ([]byte, error) {
	return marshalFlat([][2]string{{"source", e.Source}, {"target", e.Target}}, e.Attributes)
}

// UnmarshalJSON reverses MarshalJSON.
func (e *Edge) UnmarshalJSON(data []byte) error {
	fields, err := unmarshalFlat(data)
	if err != nil {
		return fmt.Errorf("failed to parse edge: %w", err)
	}
	e.Source = fields["source"]
	e.Target = fields["target"]
	delete(fields, "source")
	delete(fields, "target")
	e.Attributes = fields
	return nil
}

// marshalFlat writes the fixed pairs first, then attributes in key order.
// Attributes shadowing a fixed key are left out.
func marshalFlat(fixed [][2]string, attrs map[string]string) ([]byte, error) {
	reserved := make(map[string]bool, len(fixed))
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key, value string) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for _, kv := range fixed {
		reserved[kv[0]] = true
		if err := write(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, attrs[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unmarshalFlat(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case nil:
			fields[k] = ""
		default:
			fields[k] = fmt.Sprint(val)
		}
	}
	return fields, nil
}
