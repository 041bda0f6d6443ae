package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/exprtrail/pkg/player"
	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// traceDoc is neg(add(1, 2)) rewritten to add(1, 2), then to 2.
func traceDoc(t *testing.T) *typez.Document {
	t.Helper()
	var b typez.Builder
	one := b.Primitive("Int", "1")
	two := b.Primitive("Int", "2")
	sum := b.Call("add", []string{one, two})
	neg := b.Call("neg", []string{sum})
	b.Initial(neg)
	b.Rewrite(sum, "strip_neg", "")
	b.Rewrite(two, "take_rhs", "")
	doc, err := b.Document()
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func newTestModel(t *testing.T) PlayModel {
	t.Helper()
	updates := make(chan player.Update, 1)
	p, err := player.New(traceDoc(t), latestSink(updates))
	if err != nil {
		t.Fatal(err)
	}
	return NewPlayModel("trace", p, updates)
}

// deliver feeds the pending player update into the model.
func deliver(t *testing.T, m PlayModel) PlayModel {
	t.Helper()
	select {
	case u := <-m.Updates:
		next, _ := m.Update(updateMsg(u))
		return next.(PlayModel)
	default:
		t.Fatal("no pending update")
		return m
	}
}

func press(m PlayModel, key string) PlayModel {
	var msg tea.KeyMsg
	switch key {
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(PlayModel)
}

func TestPlayModelNavigation(t *testing.T) {
	m := deliver(t, newTestModel(t))
	if m.Cursor != 0 || m.Shown == nil || m.Shown.Step.Index != 0 {
		t.Fatalf("initial state: cursor=%d shown=%+v", m.Cursor, m.Shown)
	}
	if got := len(m.Shown.Set.Nodes); got != 4 {
		t.Errorf("step 0 nodes = %d, want 4", got)
	}

	m = deliver(t, press(m, "right"))
	if m.Cursor != 1 || m.Shown.Step.Rule != "strip_neg" {
		t.Errorf("after right: cursor=%d rule=%q", m.Cursor, m.Shown.Step.Rule)
	}
	if got := m.Shown.Diff.RemovedNodes; len(got) != 1 {
		t.Errorf("strip_neg removed %v, want one node", got)
	}

	m = deliver(t, press(m, "G"))
	if m.Cursor != 2 {
		t.Errorf("after G: cursor=%d, want 2", m.Cursor)
	}

	// Moving past the last step does nothing.
	m = press(m, "right")
	if m.Cursor != 2 {
		t.Errorf("cursor moved past the end: %d", m.Cursor)
	}
	select {
	case u := <-m.Updates:
		t.Errorf("unexpected update %+v", u.Step)
	default:
	}

	m = deliver(t, press(m, "g"))
	if m.Cursor != 0 {
		t.Errorf("after g: cursor=%d, want 0", m.Cursor)
	}
	m = press(m, "left")
	if m.Cursor != 0 {
		t.Errorf("cursor moved before the start: %d", m.Cursor)
	}
}

func TestPlayModelQuit(t *testing.T) {
	m := deliver(t, newTestModel(t))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestPlayModelView(t *testing.T) {
	m := deliver(t, newTestModel(t))
	view := m.View()
	for _, want := range []string{"trace", "[0/2]", "neg", "add", "4 nodes"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	// A selection not yet delivered shows as pending.
	m.Cursor = 1
	if !strings.Contains(m.View(), "reconciling...") {
		t.Error("stale view should say reconciling")
	}
}

func TestLatestSinkKeepsNewest(t *testing.T) {
	ch := make(chan player.Update, 1)
	sink := latestSink(ch)
	sink(player.Update{Step: typez.Step{Index: 1}})
	sink(player.Update{Step: typez.Step{Index: 2}})

	if u := <-ch; u.Step.Index != 2 {
		t.Errorf("got step %d, want 2", u.Step.Index)
	}
}

func TestRenderTree(t *testing.T) {
	// add(x, x) shares its argument.
	set := render.Set{
		Nodes: []render.Node{{ID: "0", Label: "add"}, {ID: "1", Label: "x"}},
		Edges: []render.Edge{
			{Source: "0", ID: "0.0", Target: "1"},
			{Source: "0", ID: "0.1", Target: "1"},
		},
	}
	tree := renderTree(set, []string{"1"})
	lines := strings.Split(strings.TrimRight(tree, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("tree has %d lines, want 3:\n%s", len(lines), tree)
	}
	if !strings.Contains(lines[0], "add") || !strings.Contains(lines[1], "x") || !strings.Contains(lines[2], "↑") {
		t.Errorf("unexpected tree:\n%s", tree)
	}
	if renderTree(render.Set{}, nil) != "" {
		t.Error("empty set should render nothing")
	}
}
