package render

// Diff classifies the elements of a set against the set displayed before it.
// Identifiers are listed in the order they appear in their own set.
type Diff struct {
	KeptNodes    []string
	AddedNodes   []string
	RemovedNodes []string

	KeptEdges    []string
	AddedEdges   []string
	RemovedEdges []string
}

// Diff compares s with prev. Nodes are matched by identifier; edges by
// identifier, source and target, so an edge slot whose target changed counts
// as removed and added.
func (s Set) Diff(prev Set) Diff {
	var d Diff

	prevNodes := make(map[string]bool, len(prev.Nodes))
	for _, n := range prev.Nodes {
		prevNodes[n.ID] = true
	}
	curNodes := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		curNodes[n.ID] = true
		if prevNodes[n.ID] {
			d.KeptNodes = append(d.KeptNodes, n.ID)
		} else {
			d.AddedNodes = append(d.AddedNodes, n.ID)
		}
	}
	for _, n := range prev.Nodes {
		if !curNodes[n.ID] {
			d.RemovedNodes = append(d.RemovedNodes, n.ID)
		}
	}

	prevEdges := make(map[Edge]bool, len(prev.Edges))
	for _, e := range prev.Edges {
		prevEdges[e] = true
	}
	curEdges := make(map[Edge]bool, len(s.Edges))
	for _, e := range s.Edges {
		curEdges[e] = true
		if prevEdges[e] {
			d.KeptEdges = append(d.KeptEdges, e.ID)
		} else {
			d.AddedEdges = append(d.AddedEdges, e.ID)
		}
	}
	for _, e := range prev.Edges {
		if !curEdges[e] {
			d.RemovedEdges = append(d.RemovedEdges, e.ID)
		}
	}
	return d
}

// Empty reports whether nothing was added or removed.
func (d Diff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}
