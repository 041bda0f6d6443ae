// Package reach resolves the subgraph reachable from a root node of a typez
// node collection.
//
// [Resolve] returns the reachable nodes in ancestor-first processing order:
// a node is listed only after every reachable node that references it. Each
// node carries the (parent, position) pairs through which it was reached, one
// per reference, so a child referenced twice by the same parent has two
// entries.
//
// Among nodes that are ready at the same time, the one stored later in the
// collection goes first. For a collection stored children-first this makes
// the processing order exactly the reverse of the stored order.
//
// Resolution fails fast. A root or child id absent from the collection, or a
// cycle among reachable nodes, is MALFORMED_GRAPH. An id that appears twice
// in the collection is DUPLICATE_ID.
package reach

import (
	"container/heap"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// Parent is one incoming reference: the referencing node and the slot the
// child occupies under it.
type Parent struct {
	ID       string
	Position typez.Position
}

// Subgraph is the resolved reachable subgraph of one root.
type Subgraph struct {
	// Root is the id the subgraph was resolved from.
	Root string
	// Order lists every reachable id once, ancestors first.
	Order []string

	nodes   map[string]typez.Node
	parents map[string][]Parent
}

// Node returns the node with the given id if it is reachable.
func (s *Subgraph) Node(id string) (typez.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Parents returns the references recorded against id, in the order the
// parents were processed. The root's list holds only the seeded parent, if
// any.
func (s *Subgraph) Parents(id string) []Parent {
	return s.parents[id]
}

// Len returns the number of reachable nodes.
func (s *Subgraph) Len() int { return len(s.Order) }

// Contains reports whether id is reachable.
func (s *Subgraph) Contains(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// Option configures [Resolve].
type Option func(*config)

type config struct {
	rootParent *Parent
}

// WithRootParent records p as the first parent of the root. The parent is
// bookkeeping only: it does not need to exist in the collection.
func WithRootParent(p Parent) Option {
	return func(c *config) { c.rootParent = &p }
}

// Resolve computes the subgraph of nodes reachable from rootID.
func Resolve(nodes []typez.Node, rootID string, opts ...Option) (*Subgraph, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	arena := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := arena[n.ID]; dup {
			return nil, errs.New(errs.ErrCodeDuplicateID, "node id %q appears more than once", n.ID)
		}
		arena[n.ID] = i
	}

	reachable, err := collect(nodes, arena, rootID)
	if err != nil {
		return nil, err
	}

	// In-degree counts every reference from a reachable parent.
	indegree := make(map[string]int, len(reachable))
	for id := range reachable {
		for _, c := range nodes[arena[id]].Children() {
			indegree[c.ID]++
		}
	}

	sg := &Subgraph{
		Root:    rootID,
		Order:   make([]string, 0, len(reachable)),
		nodes:   make(map[string]typez.Node, len(reachable)),
		parents: make(map[string][]Parent, len(reachable)),
	}
	if cfg.rootParent != nil {
		sg.parents[rootID] = []Parent{*cfg.rootParent}
	}

	ready := &readyQueue{}
	if indegree[rootID] == 0 {
		heap.Push(ready, arena[rootID])
	}
	for ready.Len() > 0 {
		idx := heap.Pop(ready).(int)
		n := nodes[idx]
		sg.Order = append(sg.Order, n.ID)
		sg.nodes[n.ID] = n

		for _, c := range n.Children() {
			sg.parents[c.ID] = append(sg.parents[c.ID], Parent{ID: n.ID, Position: c.Position})
			indegree[c.ID]--
			if indegree[c.ID] == 0 {
				heap.Push(ready, arena[c.ID])
			}
		}
	}

	if len(sg.Order) != len(reachable) {
		for id := range reachable {
			if _, ok := sg.nodes[id]; !ok {
				return nil, errs.New(errs.ErrCodeMalformedGraph, "cycle among nodes reachable from %q (through %q)", rootID, id)
			}
		}
	}
	return sg, nil
}

// collect returns the set of ids reachable from root, failing on the first
// reference to an id missing from the arena.
func collect(nodes []typez.Node, arena map[string]int, root string) (map[string]struct{}, error) {
	if _, ok := arena[root]; !ok {
		return nil, errs.New(errs.ErrCodeMalformedGraph, "root %q is not in the node collection", root)
	}
	seen := map[string]struct{}{root: {}}
	stack := []string{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range nodes[arena[id]].Children() {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			if _, ok := arena[c.ID]; !ok {
				return nil, errs.New(errs.ErrCodeMalformedGraph,
					"node %q references missing child %q at position %s", id, c.ID, c.Position)
			}
			seen[c.ID] = struct{}{}
			stack = append(stack, c.ID)
		}
	}
	return seen, nil
}

// readyQueue is a max-heap of stored indices.
type readyQueue []int

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] > q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(int)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
