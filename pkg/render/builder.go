package render

// Builder collects nodes and edges in the order they are added. The zero
// value is ready to use.
type Builder struct {
	set Set
}

// AddNode appends a node.
func (b *Builder) AddNode(id, label string) {
	b.set.Nodes = append(b.set.Nodes, Node{ID: id, Label: label})
}

// AddEdge appends an edge from source to target. The edge identifier is
// source + "." + position.
func (b *Builder) AddEdge(source, position, target string) {
	b.set.Edges = append(b.set.Edges, Edge{
		Source: source,
		ID:     EdgeID(source, position),
		Target: target,
	})
}

// Build returns the collected set. The builder must not be used afterwards.
func (b *Builder) Build() Set {
	s := b.set
	b.set = Set{}
	return s
}

// EdgeID is the identifier of the edge leaving source at position.
func EdgeID(source, position string) string {
	return source + "." + position
}
