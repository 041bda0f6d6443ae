package reconcile

import (
	"strconv"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/reach"
	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

const (
	// RootParentID is the logical id of the bookkeeping parent of the root.
	RootParentID = "parent-of-root-id"
	// RootParentElementID is the rendering identifier of the bookkeeping parent.
	RootParentElementID = "parent-of-root-element-id"
)

// children maps an argument slot to the rendering identifier occupying it.
type children map[typez.Position]string

// State is the reconciled rendering state of one root selection. It is
// immutable once returned by [New].
type State struct {
	root     string
	elements render.Set

	elementIDs map[string]string   // logical id → rendering identifier
	children   map[string]children // rendering identifier → slot table
	nextID     int
	tally      Tally
}

// Tally counts the rendered nodes of a state by the tier that supplied their
// identifier. The counts sum to [State.Len].
type Tally struct {
	Previous   int // same logical id as in the previous state
	Positional int // slot majority under the node's parents
	Fresh      int // minted from the counter
}

// Root returns the logical id the state was built for.
func (s *State) Root() string { return s.root }

// Elements returns a copy of the rendering set; changing it does not affect
// the state.
func (s *State) Elements() render.Set { return s.elements.Clone() }

// ElementID returns the rendering identifier of a logical node id processed in
// this state.
func (s *State) ElementID(id string) (string, bool) {
	if id == RootParentID {
		return "", false
	}
	e, ok := s.elementIDs[id]
	return e, ok
}

// ChildElementID returns the identifier recorded in slot pos of the node
// rendered as parent.
func (s *State) ChildElementID(parent string, pos typez.Position) (string, bool) {
	e, ok := s.children[parent][pos]
	return e, ok
}

// NextID is the counter value the next fresh identifier will be minted from.
func (s *State) NextID() int { return s.nextID }

// Len returns the number of rendered nodes.
func (s *State) Len() int { return len(s.elements.Nodes) }

// Tally reports how the identifiers of this state were obtained.
func (s *State) Tally() Tally { return s.tally }

// Option configures [New].
type Option func(*config)

type config struct {
	firstID    int
	candidates []candidate
}

// WithFirstID starts the fresh identifier counter at n when there is no
// previous state. It is ignored otherwise: the counter always continues from
// the previous state.
func WithFirstID(n int) Option {
	return func(c *config) { c.firstID = n }
}

// New reconciles the subgraph reachable from rootID against prev, which may
// be nil. prev is only read.
func New(nodes []typez.Node, rootID string, prev *State, opts ...Option) (*State, error) {
	cfg := config{candidates: defaultCandidates}
	for _, opt := range opts {
		opt(&cfg)
	}

	sg, err := reach.Resolve(nodes, rootID,
		reach.WithRootParent(reach.Parent{ID: RootParentID, Position: typez.Arg(0)}))
	if err != nil {
		return nil, err
	}
	if sg.Contains(RootParentID) {
		return nil, errs.New(errs.ErrCodeMalformedGraph, "node id %q is reserved", RootParentID)
	}

	c := &construction{
		prev:     prev,
		subgraph: sg,
		claimed:  make(map[string]struct{}, sg.Len()),
		state: &State{
			root:       rootID,
			elementIDs: map[string]string{RootParentID: RootParentElementID},
			children:   make(map[string]children, sg.Len()+1),
			nextID:     cfg.firstID,
		},
	}
	if prev != nil {
		c.state.nextID = prev.nextID
		c.reserved = reserve(sg, prev)
	}

	var b render.Builder
	for _, id := range sg.Order {
		if err := c.visit(id, cfg.candidates, &b); err != nil {
			return nil, err
		}
	}
	c.state.elements = b.Build()
	return c.state, nil
}

// construction is the mutable working set of one [New] call. It owns the
// fresh identifier counter through state.nextID.
type construction struct {
	prev     *State
	subgraph *reach.Subgraph
	claimed  map[string]struct{}
	reserved map[string]string // previous identifier → logical id still reachable
	state    *State
}

// reserve maps every identifier of the previous state whose logical node is
// reachable again to that node. Positional guesses must not take these.
func reserve(sg *reach.Subgraph, prev *State) map[string]string {
	reserved := make(map[string]string)
	for _, id := range sg.Order {
		if e, ok := prev.elementIDs[id]; ok {
			reserved[e] = id
		}
	}
	return reserved
}

func (c *construction) visit(id string, candidates []candidate, b *render.Builder) error {
	n, ok := c.subgraph.Node(id)
	if !ok {
		return errs.New(errs.ErrCodeMissingLookup, "node %q was ordered but not resolved", id)
	}

	elementID, tier, err := c.assign(id, candidates)
	if err != nil {
		return err
	}
	switch tier {
	case 0:
		c.state.tally.Previous++
	case 1:
		c.state.tally.Positional++
	default:
		c.state.tally.Fresh++
	}
	c.claimed[elementID] = struct{}{}
	c.state.elementIDs[id] = elementID
	b.AddNode(elementID, n.Label())

	parents := c.subgraph.Parents(id)
	if len(parents) == 0 {
		return errs.New(errs.ErrCodeMissingLookup, "no parents recorded for node %q", id)
	}
	for _, p := range parents {
		parentElementID, ok := c.state.elementIDs[p.ID]
		if !ok {
			return errs.New(errs.ErrCodeMissingLookup, "parent %q of node %q has no rendering identifier", p.ID, id)
		}
		slots, ok := c.state.children[parentElementID]
		if !ok {
			slots = make(children)
			c.state.children[parentElementID] = slots
		}
		slots[p.Position] = elementID
		if p.ID == RootParentID {
			continue
		}
		b.AddEdge(parentElementID, p.Position.String(), elementID)
	}
	return nil
}

// assign walks the candidate tiers and returns the first identifier that is
// present and unclaimed, with the index of the tier that supplied it.
// Exhausting the tiers is an identifier collision.
func (c *construction) assign(id string, candidates []candidate) (string, int, error) {
	for tier, next := range candidates {
		e, ok, err := next(c, id)
		if err != nil {
			return "", 0, err
		}
		if !ok {
			continue
		}
		if _, taken := c.claimed[e]; taken {
			continue
		}
		return e, tier, nil
	}
	return "", 0, errs.New(errs.ErrCodeIDCollision, "every candidate identifier for node %q is already claimed", id)
}

// mint returns a fresh identifier and advances the counter.
func (c *construction) mint() string {
	e := strconv.Itoa(c.state.nextID)
	c.state.nextID++
	return e
}
