package player

import (
	"reflect"
	"sync"
	"testing"
	"time"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// chainDoc is neg(add(1, 2)) → add(1, 2) → 2 → 1.
func chainDoc(t *testing.T) *typez.Document {
	t.Helper()
	var b typez.Builder
	one := b.Primitive("Int", "1")
	two := b.Primitive("Int", "2")
	sum := b.Call("add", []string{one, two})
	neg := b.Call("neg", []string{sum})
	b.Initial(neg)
	b.Rewrite(sum, "strip", "")
	b.Rewrite(two, "rhs", "")
	b.Rewrite(one, "other", "")
	doc, err := b.Document()
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
	ch      chan Update
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Update, 16)}
}

func (r *recorder) sink(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
	r.ch <- u
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func TestSelect(t *testing.T) {
	rec := newRecorder()
	p, err := New(chainDoc(t), rec.sink)
	if err != nil {
		t.Fatal(err)
	}
	if i, _ := p.Current(); i != -1 {
		t.Errorf("Current() before selection = %d, want -1", i)
	}

	if err := p.Select(0); err != nil {
		t.Fatal(err)
	}
	if err := p.Select(1); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 2 {
		t.Fatalf("got %d updates, want 2", rec.count())
	}

	second := rec.updates[1]
	if got := second.Set.NodeIDs(); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("step 1 ids = %v", got)
	}
	if !reflect.DeepEqual(second.Diff.RemovedNodes, []string{"0"}) {
		t.Errorf("step 1 removed = %v", second.Diff.RemovedNodes)
	}
	if i, set := p.Current(); i != 1 || len(set.Nodes) != 3 {
		t.Errorf("Current() = %d, %v", i, set.NodeIDs())
	}
}

func TestSelectReconcilesAgainstDisplayed(t *testing.T) {
	// Jumping 0 → 3 keeps the identifier the literal 1 had at step 0, even
	// though steps 1 and 2 were never shown.
	rec := newRecorder()
	p, err := New(chainDoc(t), rec.sink)
	if err != nil {
		t.Fatal(err)
	}
	_ = p.Select(0)
	_ = p.Select(3)

	first, last := rec.updates[0], rec.updates[1]
	oneID := first.Set.NodeIDs()[3]
	if label, _ := first.Set.Label(oneID); label != "1" {
		t.Fatalf("expected node %s to be the literal 1, got %q", oneID, label)
	}
	if got := last.Set.NodeIDs(); !reflect.DeepEqual(got, []string{oneID}) {
		t.Errorf("step 3 ids = %v, want [%s]", got, oneID)
	}
}

func TestSelectOutOfRange(t *testing.T) {
	p, err := New(chainDoc(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{-1, 4} {
		if err := p.Select(i); !errs.Is(err, errs.ErrCodeStepOutOfRange) {
			t.Errorf("Select(%d) error = %v", i, err)
		}
	}
}

func TestNewRejectsInvalidDocument(t *testing.T) {
	if _, err := New(&typez.Document{}, nil); !errs.Is(err, errs.ErrCodeInvalidDocument) {
		t.Errorf("New() without states error = %v", err)
	}
	cyclic := &typez.Document{
		Nodes: []typez.Node{
			typez.Call("a", "f", []string{"b"}),
			typez.Call("b", "g", []string{"a"}),
		},
		States: &typez.States{Initial: "a"},
	}
	if _, err := New(cyclic, nil); !errs.Is(err, errs.ErrCodeInvalidDocument) {
		t.Errorf("New() with cycle error = %v", err)
	}
}

func TestDebouncedDeliversLastSelection(t *testing.T) {
	rec := newRecorder()
	p, err := New(chainDoc(t), rec.sink, Debounced(30*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	for _, i := range []int{1, 2, 3, 0} {
		if err := p.Select(i); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case u := <-rec.ch:
		if u.Step.Index != 0 {
			t.Errorf("delivered step %d, want 0", u.Step.Index)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}

	time.Sleep(100 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("got %d updates, want 1", n)
	}

	// Only the delivered selection was reconciled, so an undebounced player
	// selecting just step 0 shows the same identifiers.
	direct := newRecorder()
	q, _ := New(chainDoc(t), direct.sink)
	_ = q.Select(0)
	if !reflect.DeepEqual(rec.updates[0].Set, direct.updates[0].Set) {
		t.Errorf("debounced set %+v differs from direct %+v", rec.updates[0].Set, direct.updates[0].Set)
	}
}

func TestReset(t *testing.T) {
	rec := newRecorder()
	p, _ := New(chainDoc(t), rec.sink)
	_ = p.Select(2)
	p.Reset()
	if i, set := p.Current(); i != -1 || len(set.Nodes) != 0 {
		t.Errorf("Current() after Reset = %d, %v", i, set.NodeIDs())
	}

	_ = p.Select(2)
	before, after := rec.updates[0].Set.NodeIDs(), rec.updates[1].Set.NodeIDs()
	if reflect.DeepEqual(before, after) {
		t.Errorf("identifiers after reset should be fresh, got %v twice", after)
	}
	if len(rec.updates[1].Diff.AddedNodes) != 1 {
		t.Errorf("after reset every node is added: %+v", rec.updates[1].Diff)
	}
}
