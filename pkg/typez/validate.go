package typez

import (
	errs "github.com/matzehuels/exprtrail/pkg/errors"
)

// Validate checks the structural contract of the document:
//
//   - every node id is non-empty, free of control characters and unique
//   - every node is exactly one of call or primitive
//   - every child reference resolves to a node in the collection
//   - the node graph is acyclic
//   - every step root exists
//
// Type and function definitions are not checked. The first violation is
// returned as an INVALID_DOCUMENT error.
func (d *Document) Validate() error {
	if d == nil {
		return errs.New(errs.ErrCodeInvalidDocument, "document is nil")
	}

	byID := make(map[string]Node, len(d.Nodes))
	for i, n := range d.Nodes {
		if err := errs.ValidateNodeID(n.ID); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidDocument, err, "node %d", i)
		}
		if _, dup := byID[n.ID]; dup {
			return errs.New(errs.ErrCodeInvalidDocument, "duplicate node id %q", n.ID)
		}
		if err := validateShape(n); err != nil {
			return err
		}
		byID[n.ID] = n
	}

	for _, n := range d.Nodes {
		for _, c := range n.Children() {
			if _, ok := byID[c.ID]; !ok {
				return errs.New(errs.ErrCodeInvalidDocument,
					"node %q references missing child %q at position %s", n.ID, c.ID, c.Position)
			}
		}
	}

	if id, ok := findCycle(d.Nodes, byID); ok {
		return errs.New(errs.ErrCodeInvalidDocument, "cycle through node %q", id)
	}

	for _, s := range d.Steps() {
		if s.Node == "" {
			return errs.New(errs.ErrCodeInvalidDocument, "step %d has no root", s.Index)
		}
		if _, ok := byID[s.Node]; !ok {
			return errs.New(errs.ErrCodeInvalidDocument, "step %d root %q is not a node", s.Index, s.Node)
		}
	}
	return nil
}

func validateShape(n Node) error {
	if n.IsPrimitive() {
		if n.Function != "" || len(n.Args) > 0 || len(n.Kwargs) > 0 || len(n.TypeParams) > 0 {
			return errs.New(errs.ErrCodeInvalidDocument, "primitive node %q carries call fields", n.ID)
		}
		if n.Type == "" {
			return errs.New(errs.ErrCodeInvalidDocument, "primitive node %q has no type", n.ID)
		}
		return nil
	}
	if n.Function == "" {
		return errs.New(errs.ErrCodeInvalidDocument, "node %q is neither a call nor a primitive", n.ID)
	}
	if n.Type != "" {
		return errs.New(errs.ErrCodeInvalidDocument, "call node %q carries a primitive type", n.ID)
	}
	return nil
}

const (
	white = iota
	gray
	black
)

// findCycle runs an iterative depth-first search with white/gray/black
// coloring and returns a node on the first cycle found.
func findCycle(nodes []Node, byID map[string]Node) (string, bool) {
	color := make(map[string]int, len(nodes))

	type frame struct {
		id       string
		children []Child
		next     int
	}

	for _, start := range nodes {
		if color[start.ID] != white {
			continue
		}
		stack := []frame{{id: start.ID, children: start.Children()}}
		color[start.ID] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.children) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := top.children[top.next].ID
			top.next++
			switch color[child] {
			case gray:
				return child, true
			case white:
				color[child] = gray
				stack = append(stack, frame{id: child, children: byID[child].Children()})
			}
		}
	}
	return "", false
}
