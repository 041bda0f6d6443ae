package render

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Node is one rendered vertex.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Edge is one rendered connection from a parent to the child in one of its
// argument slots.
type Edge struct {
	Source string `json:"source"`
	ID     string `json:"id"`
	Target string `json:"target"`
}

// Set is the rendering set of one step, in processing order.
type Set struct {
	Nodes []Node
	Edges []Edge
}

// Clone returns a copy of s that shares no backing arrays with it.
func (s Set) Clone() Set {
	return Set{Nodes: slices.Clone(s.Nodes), Edges: slices.Clone(s.Edges)}
}

// NodeIDs returns the node identifiers in order.
func (s Set) NodeIDs() []string {
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// HasNode reports whether id names a node of the set.
func (s Set) HasNode(id string) bool {
	for _, n := range s.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Label returns the label of the node with the given identifier.
func (s Set) Label(id string) (string, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n.Label, true
		}
	}
	return "", false
}

// elementJSON is the cytoscape element wrapper.
type elementJSON[T any] struct {
	Data T `json:"data"`
}

type setJSON struct {
	Nodes []elementJSON[Node] `json:"nodes"`
	Edges []elementJSON[Edge] `json:"edges"`
}

// MarshalJSON encodes the set as cytoscape elements. Empty lists encode as
// [] rather than null.
func (s Set) MarshalJSON() ([]byte, error) {
	out := setJSON{
		Nodes: make([]elementJSON[Node], len(s.Nodes)),
		Edges: make([]elementJSON[Edge], len(s.Edges)),
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = elementJSON[Node]{Data: n}
	}
	for i, e := range s.Edges {
		out.Edges[i] = elementJSON[Edge]{Data: e}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes cytoscape elements.
func (s *Set) UnmarshalJSON(data []byte) error {
	var in setJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Set{}
	for _, n := range in.Nodes {
		s.Nodes = append(s.Nodes, n.Data)
	}
	for _, e := range in.Edges {
		s.Edges = append(s.Edges, e.Data)
	}
	return nil
}

// MarshalSet returns the indented JSON encoding of s.
func MarshalSet(s Set) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rendering set: %w", err)
	}
	return data, nil
}
