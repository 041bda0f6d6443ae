package render

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestBuilder(t *testing.T) {
	var b Builder
	b.AddNode("0", "f")
	b.AddNode("1", "1")
	b.AddEdge("0", "0", "1")
	got := b.Build()

	want := Set{
		Nodes: []Node{{ID: "0", Label: "f"}, {ID: "1", Label: "1"}},
		Edges: []Edge{{Source: "0", ID: "0.0", Target: "1"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build() = %+v, want %+v", got, want)
	}
	if again := b.Build(); len(again.Nodes) != 0 {
		t.Errorf("Build() after Build() = %+v, want empty", again)
	}
}

func TestSetJSON(t *testing.T) {
	s := Set{
		Nodes: []Node{{ID: "0", Label: "f"}, {ID: "1", Label: "1"}},
		Edges: []Edge{{Source: "0", ID: "0.0", Target: "1"}},
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"nodes":[{"data":{"id":"0","label":"f"}},{"data":{"id":"1","label":"1"}}],` +
		`"edges":[{"data":{"source":"0","id":"0.0","target":"1"}}]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}

	var back Set
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(back, s) {
		t.Errorf("Unmarshal() = %+v, want %+v", back, s)
	}

	empty, err := json.Marshal(Set{})
	if err != nil {
		t.Fatal(err)
	}
	if string(empty) != `{"nodes":[],"edges":[]}` {
		t.Errorf("Marshal(empty) = %s", empty)
	}
}

func TestSetLookups(t *testing.T) {
	s := Set{Nodes: []Node{{ID: "3", Label: "g"}, {ID: "7", Label: "x"}}}
	if !s.HasNode("7") || s.HasNode("4") {
		t.Error("HasNode() mismatch")
	}
	if l, ok := s.Label("3"); !ok || l != "g" {
		t.Errorf("Label(3) = %q, %v", l, ok)
	}
	if got := s.NodeIDs(); !reflect.DeepEqual(got, []string{"3", "7"}) {
		t.Errorf("NodeIDs() = %v", got)
	}
}

func TestSetClone(t *testing.T) {
	orig := Set{
		Nodes: []Node{{ID: "0", Label: "add"}},
		Edges: []Edge{{Source: "0", ID: "0.0", Target: "1"}},
	}
	c := orig.Clone()
	c.Nodes[0].Label = "mul"
	c.Edges[0].Target = "2"
	if orig.Nodes[0].Label != "add" || orig.Edges[0].Target != "1" {
		t.Errorf("Clone shares storage with the original: %+v", orig)
	}
	if empty := (Set{}).Clone(); empty.Nodes != nil || empty.Edges != nil {
		t.Errorf("Clone of an empty set = %+v, want nil slices", empty)
	}
}

func TestDiff(t *testing.T) {
	prev := Set{
		Nodes: []Node{{ID: "0", Label: "f"}, {ID: "1", Label: "1"}},
		Edges: []Edge{{Source: "0", ID: "0.0", Target: "1"}},
	}
	next := Set{
		Nodes: []Node{{ID: "1", Label: "1"}, {ID: "2", Label: "g"}},
		Edges: []Edge{{Source: "2", ID: "2.0", Target: "1"}},
	}

	d := next.Diff(prev)
	want := Diff{
		KeptNodes:    []string{"1"},
		AddedNodes:   []string{"2"},
		RemovedNodes: []string{"0"},
		AddedEdges:   []string{"2.0"},
		RemovedEdges: []string{"0.0"},
	}
	if !reflect.DeepEqual(d, want) {
		t.Errorf("Diff() = %+v, want %+v", d, want)
	}
	if d.Empty() {
		t.Error("Empty() = true, want false")
	}
	if !prev.Diff(prev).Empty() {
		t.Error("a set diffed with itself should be empty")
	}
}

func TestDiffRetargetedEdge(t *testing.T) {
	prev := Set{Edges: []Edge{{Source: "0", ID: "0.0", Target: "1"}}}
	next := Set{Edges: []Edge{{Source: "0", ID: "0.0", Target: "2"}}}
	d := next.Diff(prev)
	if len(d.KeptEdges) != 0 || len(d.AddedEdges) != 1 || len(d.RemovedEdges) != 1 {
		t.Errorf("Diff() = %+v, want one added and one removed edge", d)
	}
}
