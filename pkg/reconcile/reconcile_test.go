package reconcile

import (
	"reflect"
	"strconv"
	"testing"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/reach"
	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

func withCandidates(cs ...candidate) Option {
	return func(c *config) { c.candidates = cs }
}

// simple is f(1) stored children first.
func simple() []typez.Node {
	return []typez.Node{
		typez.Primitive("n2", "Int", "1"),
		typez.Call("n1", "f", []string{"n2"}),
	}
}

func TestEndToEnd(t *testing.T) {
	want := render.Set{
		Nodes: []render.Node{{ID: "0", Label: "f"}, {ID: "1", Label: "1"}},
		Edges: []render.Edge{{ID: "0.0", Source: "0", Target: "1"}},
	}

	orders := map[string][]typez.Node{
		"children first": simple(),
		"parents first":  {simple()[1], simple()[0]},
	}
	for name, nodes := range orders {
		t.Run(name, func(t *testing.T) {
			s, err := New(nodes, "n1", nil)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if got := s.Elements(); !reflect.DeepEqual(got, want) {
				t.Errorf("Elements() = %+v, want %+v", got, want)
			}
			if s.NextID() != 2 {
				t.Errorf("NextID() = %d, want 2", s.NextID())
			}
			if s.Root() != "n1" || s.Len() != 2 {
				t.Errorf("Root() = %q, Len() = %d", s.Root(), s.Len())
			}
			if got := s.Tally(); got != (Tally{Fresh: 2}) {
				t.Errorf("Tally() = %+v, want two fresh identifiers", got)
			}
		})
	}
}

func TestReRooting(t *testing.T) {
	first, err := New(simple(), "n1", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(simple(), "n2", first)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	want := render.Set{Nodes: []render.Node{{ID: "1", Label: "1"}}}
	if got := second.Elements(); !reflect.DeepEqual(got, want) {
		t.Errorf("Elements() = %+v, want %+v", got, want)
	}
	if second.NextID() != 2 {
		t.Errorf("NextID() = %d, want 2 (nothing minted)", second.NextID())
	}
	if got := second.Tally(); got != (Tally{Previous: 1}) {
		t.Errorf("Tally() = %+v, want one kept identifier", got)
	}
}

func TestElementsReturnsCopy(t *testing.T) {
	s, err := New(simple(), "n1", nil)
	if err != nil {
		t.Fatal(err)
	}
	before := s.Elements()
	mutated := s.Elements()
	for i := range mutated.Nodes {
		mutated.Nodes[i].ID = "x"
	}
	for i := range mutated.Edges {
		mutated.Edges[i].Target = "x"
	}
	if got := s.Elements(); !reflect.DeepEqual(got, before) {
		t.Errorf("Elements() changed after mutating a returned set: %+v", got)
	}
}

func TestMalformedGraph(t *testing.T) {
	tests := []struct {
		name  string
		nodes []typez.Node
		root  string
		code  errs.Code
	}{
		{"missing root", simple(), "n9", errs.ErrCodeMalformedGraph},
		{"missing child", []typez.Node{typez.Call("n1", "f", []string{"n2"})}, "n1", errs.ErrCodeMalformedGraph},
		{"duplicate id", append(simple(), typez.Primitive("n2", "Int", "2")), "n1", errs.ErrCodeDuplicateID},
		{"reserved id", []typez.Node{typez.Primitive(RootParentID, "Int", "1")}, RootParentID, errs.ErrCodeMalformedGraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.nodes, tt.root, nil)
			if s != nil {
				t.Errorf("New() returned a partial state: %+v", s.Elements())
			}
			if !errs.Is(err, tt.code) {
				t.Errorf("New() error = %v, want %s", err, tt.code)
			}
			if !errs.IsFatal(err) {
				t.Error("reconciliation failures must be fatal")
			}
		})
	}
}

func TestPositionalFallback(t *testing.T) {
	nodes := []typez.Node{
		typez.Primitive("a", "Sym", "a"),
		typez.Call("p", "wrap", []string{"a"}),
		typez.Primitive("b", "Sym", "b"),
		typez.Call("p2", "wrap", []string{"b"}),
	}

	before, err := New(nodes, "p", nil)
	if err != nil {
		t.Fatal(err)
	}
	x, _ := before.ElementID("a")

	after, err := New(nodes, "p2", before)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := after.ElementID("b"); got != x {
		t.Errorf("ElementID(b) = %q, want %q (slot 0 of the replaced parent)", got, x)
	}
	if gotP, _ := after.ElementID("p2"); gotP != "0" {
		t.Errorf("ElementID(p2) = %q, want root identifier 0", gotP)
	}
	if after.NextID() != before.NextID() {
		t.Errorf("no identifier should be minted, NextID %d → %d", before.NextID(), after.NextID())
	}
	if got := after.Tally(); got != (Tally{Positional: 2}) {
		t.Errorf("Tally() = %+v, want two positional identifiers", got)
	}
}

func TestContinuityWhenNewSiblingTakesSlot(t *testing.T) {
	// S = pair(a, c) becomes T = pair(d, a). d is visited before a and sits in
	// the slot a used to occupy; a must still keep its identifier.
	nodes := []typez.Node{
		typez.Primitive("a", "Sym", "a"),
		typez.Primitive("c", "Sym", "c"),
		typez.Call("s", "pair", []string{"a", "c"}),
		typez.Primitive("d", "Sym", "d"),
		typez.Call("t", "pair", []string{"d", "a"}),
	}

	before, err := New(nodes, "s", nil)
	if err != nil {
		t.Fatal(err)
	}
	after, err := New(nodes, "t", before)
	if err != nil {
		t.Fatal(err)
	}

	was, _ := before.ElementID("a")
	if now, _ := after.ElementID("a"); now != was {
		t.Errorf("ElementID(a) = %q, want %q", now, was)
	}
	if d, _ := after.ElementID("d"); d != strconv.Itoa(before.NextID()) {
		t.Errorf("ElementID(d) = %q, want fresh %d", d, before.NextID())
	}
}

func TestPropertiesAcrossSteps(t *testing.T) {
	var b typez.Builder
	zero := b.Primitive("Nat", "0")
	depth := []string{zero}
	for i := 0; i < 9; i++ {
		depth = append(depth, b.Call("succ", []string{depth[len(depth)-1]}))
	}
	pair := b.Call("pair", []string{depth[3], depth[1]}, typez.Keyword{Name: "tag", Child: depth[3]})
	doc, err := b.Document()
	if err != nil {
		t.Fatal(err)
	}

	roots := []string{depth[3], depth[1], depth[4], pair, depth[1], depth[5], depth[9], zero, depth[2], depth[6], pair}

	var chain Chain
	minted := map[string]bool{}
	var prev *State
	for step, root := range roots {
		if step == 7 {
			chain.Reset()
			prev = nil
		}
		prevNext := chain.nextID
		s, err := chain.Advance(doc.Nodes, root)
		if err != nil {
			t.Fatalf("step %d: Advance() error: %v", step, err)
		}
		set := s.Elements()

		sg, err := reach.Resolve(doc.Nodes, root)
		if err != nil {
			t.Fatal(err)
		}

		// Uniqueness and reachability soundness.
		seen := map[string]bool{}
		for _, n := range set.Nodes {
			if seen[n.ID] {
				t.Errorf("step %d: identifier %q assigned twice", step, n.ID)
			}
			seen[n.ID] = true
		}
		if len(set.Nodes) != sg.Len() {
			t.Errorf("step %d: %d rendered nodes, %d reachable", step, len(set.Nodes), sg.Len())
		}
		for _, id := range sg.Order {
			e, ok := s.ElementID(id)
			if !ok || !seen[e] {
				t.Errorf("step %d: reachable node %q not rendered", step, id)
			}
		}

		// Edge correctness.
		for _, e := range set.Edges {
			if !seen[e.Source] || !seen[e.Target] {
				t.Errorf("step %d: edge %+v leaves the node set", step, e)
			}
			if e.Source == RootParentElementID {
				t.Errorf("step %d: edge emitted for the root parent", step)
			}
		}

		// Identity continuity.
		if prev != nil {
			for _, id := range sg.Order {
				if was, ok := prev.ElementID(id); ok {
					if now, _ := s.ElementID(id); now != was {
						t.Errorf("step %d: node %q moved from %q to %q", step, id, was, now)
					}
				}
			}
		}

		// Fresh identifiers are never reused.
		for _, n := range set.Nodes {
			v, err := strconv.Atoi(n.ID)
			if err != nil {
				t.Fatalf("step %d: non-numeric identifier %q", step, n.ID)
			}
			if v < prevNext {
				if prev == nil || !prev.Elements().HasNode(n.ID) {
					t.Errorf("step %d: identifier %q reused without continuity", step, n.ID)
				}
				continue
			}
			if minted[n.ID] || v >= s.NextID() {
				t.Errorf("step %d: identifier %q minted out of sequence", step, n.ID)
			}
			minted[n.ID] = true
		}
		if s.NextID() < prevNext {
			t.Errorf("step %d: counter went backwards", step)
		}
		prev = s
	}
}

func TestSharedChildEdges(t *testing.T) {
	nodes := []typez.Node{
		typez.Primitive("x", "Int", "2"),
		typez.Call("sq", "mul", []string{"x", "x"}, typez.Keyword{Name: "alpha", Child: "x"}),
	}
	s, err := New(nodes, "sq", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []render.Edge{
		{ID: "0.0", Source: "0", Target: "1"},
		{ID: "0.1", Source: "0", Target: "1"},
		{ID: "0.alpha", Source: "0", Target: "1"},
	}
	if got := s.Elements().Edges; !reflect.DeepEqual(got, want) {
		t.Errorf("Edges = %+v, want %+v", got, want)
	}
	if e, ok := s.ChildElementID("0", typez.Kwarg("alpha")); !ok || e != "1" {
		t.Errorf("ChildElementID(0, alpha) = %q, %v", e, ok)
	}
	if e, ok := s.ChildElementID(RootParentElementID, typez.Arg(0)); !ok || e != "0" {
		t.Errorf("root slot = %q, %v, want 0", e, ok)
	}
	if _, ok := s.ElementID(RootParentID); ok {
		t.Error("root parent must not be reported as a rendered node")
	}
}

func TestPositionalMajorityTieBreak(t *testing.T) {
	nodes := []typez.Node{
		typez.Primitive("x", "Int", "1"),
		typez.Call("p1", "f", []string{"x"}),
		typez.Call("p2", "g", []string{"x"}),
		typez.Call("r", "h", []string{"p1", "p2"}),
	}
	sg, err := reach.Resolve(nodes, "r")
	if err != nil {
		t.Fatal(err)
	}
	if got := sg.Parents("x"); got[0].ID != "p2" || got[1].ID != "p1" {
		t.Fatalf("Parents(x) = %v, want p2 then p1", got)
	}

	tests := []struct {
		name string
		p1   string
		p2   string
		want string
	}{
		{"tie goes to first tallied", "A", "B", "B"},
		{"majority", "A", "A", "A"},
		{"only one parent knows", "", "B", "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := &State{children: map[string]children{}}
			if tt.p1 != "" {
				prev.children["10"] = children{typez.Arg(0): tt.p1}
			}
			prev.children["20"] = children{typez.Arg(0): tt.p2}

			c := &construction{
				prev:     prev,
				subgraph: sg,
				state:    &State{elementIDs: map[string]string{"p1": "10", "p2": "20"}},
			}
			got, ok, err := positionalMajority(c, "x")
			if err != nil || !ok {
				t.Fatalf("positionalMajority() = %q, %v, %v", got, ok, err)
			}
			if got != tt.want {
				t.Errorf("positionalMajority() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPositionalMajorityMissingParent(t *testing.T) {
	sg, err := reach.Resolve(simple(), "n1")
	if err != nil {
		t.Fatal(err)
	}
	c := &construction{prev: &State{}, subgraph: sg, state: &State{elementIDs: map[string]string{}}}
	if _, _, err := positionalMajority(c, "n2"); !errs.Is(err, errs.ErrCodeMissingLookup) {
		t.Errorf("positionalMajority() error = %v, want MISSING_LOOKUP", err)
	}
}

func TestCollision(t *testing.T) {
	constant := func(*construction, string) (string, bool, error) { return "same", true, nil }
	s, err := New(simple(), "n1", nil, withCandidates(constant))
	if s != nil || !errs.Is(err, errs.ErrCodeIDCollision) {
		t.Errorf("New() = %v, %v, want ID_COLLISION and no state", s, err)
	}
}

func TestWithFirstID(t *testing.T) {
	s, err := New(simple(), "n1", nil, WithFirstID(40))
	if err != nil {
		t.Fatal(err)
	}
	if ids := s.Elements().NodeIDs(); !reflect.DeepEqual(ids, []string{"40", "41"}) {
		t.Errorf("NodeIDs() = %v, want [40 41]", ids)
	}

	next, err := New(simple(), "n1", s, WithFirstID(0))
	if err != nil {
		t.Fatal(err)
	}
	if next.NextID() != 42 {
		t.Errorf("NextID() = %d, want 42 (counter follows previous state)", next.NextID())
	}
}

func TestChainUnchangedOnFailure(t *testing.T) {
	var c Chain
	if c.Current() != nil {
		t.Fatal("Current() should be nil before Advance")
	}
	first, err := c.Advance(simple(), "n1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Advance(simple(), "ghost"); err == nil {
		t.Fatal("Advance() to a missing root should fail")
	}
	if c.Current() != first {
		t.Error("failed Advance() replaced the current state")
	}

	c.Reset()
	again, err := c.Advance(simple(), "n1")
	if err != nil {
		t.Fatal(err)
	}
	if ids := again.Elements().NodeIDs(); !reflect.DeepEqual(ids, []string{"2", "3"}) {
		t.Errorf("after Reset NodeIDs() = %v, want fresh [2 3]", ids)
	}
}
