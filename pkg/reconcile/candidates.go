package reconcile

import (
	errs "github.com/matzehuels/exprtrail/pkg/errors"
)

// candidate proposes a rendering identifier for a logical node id. It reports
// false when it has no proposal. The claimed check is applied by the caller.
type candidate func(c *construction, id string) (string, bool, error)

// defaultCandidates is the tier order: previous identity, positional
// majority, fresh identifier.
var defaultCandidates = []candidate{
	previousIdentity,
	positionalMajority,
	freshIdentifier,
}

// previousIdentity proposes the identifier id held in the previous state.
func previousIdentity(c *construction, id string) (string, bool, error) {
	if c.prev == nil {
		return "", false, nil
	}
	e, ok := c.prev.elementIDs[id]
	return e, ok, nil
}

// positionalMajority looks up, for every recorded parent of id, which
// identifier the previous state placed in the same slot under that parent's
// current identifier, and proposes the most frequent one. On equal counts the
// identifier tallied first wins. Identifiers reserved for another node that
// is reachable in both states are not tallied.
func positionalMajority(c *construction, id string) (string, bool, error) {
	if c.prev == nil {
		return "", false, nil
	}
	parents := c.subgraph.Parents(id)
	if len(parents) == 0 {
		return "", false, errs.New(errs.ErrCodeMissingLookup, "no parents recorded for node %q", id)
	}

	counts := make(map[string]int, len(parents))
	var order []string
	for _, p := range parents {
		parentElementID, ok := c.state.elementIDs[p.ID]
		if !ok {
			return "", false, errs.New(errs.ErrCodeMissingLookup, "parent %q of node %q has no rendering identifier", p.ID, id)
		}
		e, ok := c.prev.ChildElementID(parentElementID, p.Position)
		if !ok || e == "" {
			continue
		}
		if owner, held := c.reserved[e]; held && owner != id {
			continue
		}
		if _, seen := counts[e]; !seen {
			order = append(order, e)
		}
		counts[e]++
	}

	best, bestCount := "", 0
	for _, e := range order {
		if counts[e] > bestCount {
			best, bestCount = e, counts[e]
		}
	}
	return best, bestCount > 0, nil
}

// freshIdentifier mints a new identifier. It always proposes.
func freshIdentifier(c *construction, _ string) (string, bool, error) {
	return c.mint(), true, nil
}
