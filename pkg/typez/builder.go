package typez

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
)

// idLength is the number of hex characters kept from the content hash.
const idLength = 16

// Builder assembles a document from subexpressions. Node ids are derived from
// node content, so building the same subexpression twice yields the same id
// and a single shared node. Nodes are appended the first time they are built,
// which places every child before its parents.
//
// The zero value is ready to use. A Builder is not safe for concurrent use.
type Builder struct {
	nodes  []Node
	index  map[string]int
	defs   Definitions
	states *States
	err    error
}

// Primitive adds a host value leaf and returns its id.
func (b *Builder) Primitive(typ, repr string) string {
	return b.add(Primitive("", typ, repr))
}

// Call adds a function application over existing nodes and returns its id.
// Referencing an id the builder has not produced is recorded as an error and
// reported by [Builder.Document].
func (b *Builder) Call(function string, args []string, kwargs ...Keyword) string {
	return b.add(Call("", function, args, kwargs...))
}

// TypedCall is [Builder.Call] with type parameter bindings.
func (b *Builder) TypedCall(function string, typeParams map[string]TypeInstance, args []string, kwargs ...Keyword) string {
	n := Call("", function, args, kwargs...)
	n.TypeParams = typeParams
	return b.add(n)
}

// Define records a kind or function definition.
func (b *Builder) Define(name string, def Definition) {
	if b.defs == nil {
		b.defs = make(Definitions)
	}
	b.defs[name] = def
}

// Initial sets the root of step 0.
func (b *Builder) Initial(root string) {
	b.check(root)
	if b.states == nil {
		b.states = &States{}
	}
	b.states.Initial = root
}

// Rewrite appends a step whose root is root, produced by rule.
func (b *Builder) Rewrite(root, rule, label string) {
	b.check(root)
	if b.states == nil {
		b.err = firstErr(b.err, errs.New(errs.ErrCodeInvalidDocument, "rewrite %q before initial root", rule))
		return
	}
	b.states.States = append(b.states.States, State{Node: root, Rule: rule, Label: label})
}

// Document returns the assembled document, or the first error recorded while
// building. The builder keeps its nodes, so further steps may be appended and
// Document called again.
func (b *Builder) Document() (*Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	doc := &Document{
		Definitions: b.defs,
		Nodes:       append([]Node(nil), b.nodes...),
	}
	if b.states != nil {
		st := *b.states
		st.States = append([]State(nil), b.states.States...)
		doc.States = &st
	}
	return doc, nil
}

func (b *Builder) add(n Node) string {
	for _, c := range n.Children() {
		b.check(c.ID)
	}
	id := contentID(n)
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if _, ok := b.index[id]; ok {
		return id
	}
	n.ID = id
	b.index[id] = len(b.nodes)
	b.nodes = append(b.nodes, n)
	return id
}

func (b *Builder) check(id string) {
	if _, ok := b.index[id]; !ok {
		b.err = firstErr(b.err, errs.New(errs.ErrCodeInvalidDocument, "unknown node id %q", id))
	}
}

// contentID hashes the node's JSON encoding with an empty id. Child ids are
// themselves content ids, so equal subexpressions hash equally.
func contentID(n Node) string {
	n.ID = ""
	data, err := json.Marshal(n)
	if err != nil {
		// Node encoding only fails on unsupported values, which Node cannot hold.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:idLength]
}

func firstErr(have, next error) error {
	if have != nil {
		return have
	}
	return next
}
