package reconcile

import (
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// Chain is the two-state window of a display session: the state currently
// shown, and the next one while it is being built. Only the latest state is
// retained.
//
// Chain is not safe for concurrent use.
type Chain struct {
	current *State
	nextID  int
}

// Advance reconciles root against the current state and makes the result
// current. On failure the chain is left unchanged and the error is returned.
func (c *Chain) Advance(nodes []typez.Node, root string) (*State, error) {
	next, err := New(nodes, root, c.current, WithFirstID(c.nextID))
	if err != nil {
		return nil, err
	}
	c.current = next
	c.nextID = next.NextID()
	return next, nil
}

// Current returns the latest state, or nil before the first Advance.
func (c *Chain) Current() *State { return c.current }

// Reset drops the current state. The fresh identifier counter is kept, so
// identifiers minted after a reset never repeat earlier ones.
func (c *Chain) Reset() {
	c.current = nil
}
