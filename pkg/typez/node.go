package typez

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// NodeKind distinguishes call nodes from primitive leaves.
type NodeKind int

const (
	// NodeKindCall is an application of a DSL function to child nodes.
	NodeKindCall NodeKind = iota
	// NodeKindPrimitive is a host-language value with no children.
	NodeKindPrimitive
)

// String returns "call" or "primitive".
func (k NodeKind) String() string {
	if k == NodeKindPrimitive {
		return "primitive"
	}
	return "call"
}

// Node is one entry of the node collection.
//
// Call nodes use Function, TypeParams, Args and Kwargs. Primitive nodes use
// Type and Repr. The Kind field is derived while decoding: a JSON object with
// a "repr" key is a primitive, anything else is a call.
type Node struct {
	ID   string
	Kind NodeKind

	Function   string
	TypeParams map[string]TypeInstance
	Args       []string
	Kwargs     Kwargs

	Type string
	Repr string
}

// Call returns a call node.
func Call(id, function string, args []string, kwargs ...Keyword) Node {
	return Node{ID: id, Kind: NodeKindCall, Function: function, Args: args, Kwargs: kwargs}
}

// Primitive returns a primitive node.
func Primitive(id, typ, repr string) Node {
	return Node{ID: id, Kind: NodeKindPrimitive, Type: typ, Repr: repr}
}

// IsCall reports whether n is a call node.
func (n Node) IsCall() bool { return n.Kind == NodeKindCall }

// IsPrimitive reports whether n is a primitive leaf.
func (n Node) IsPrimitive() bool { return n.Kind == NodeKindPrimitive }

// Label is the display text of the node: the repr for primitives and the
// function name for calls.
func (n Node) Label() string {
	if n.IsPrimitive() {
		return n.Repr
	}
	return n.Function
}

// Child is one outgoing reference of a call node.
type Child struct {
	Position Position
	ID       string
}

// Children returns the node's child references: positional arguments in
// order, then keyword arguments. Keywords follow JavaScript object key
// order, which the typez front end reconciles in: names that are array
// indices ("0", "7", "42") first in ascending numeric order, then the rest
// in document order. Primitives have none.
func (n Node) Children() []Child {
	if n.IsPrimitive() {
		return nil
	}
	children := make([]Child, 0, len(n.Args)+len(n.Kwargs))
	for i, id := range n.Args {
		children = append(children, Child{Position: Arg(i), ID: id})
	}
	for _, kw := range n.Kwargs.keyOrder() {
		children = append(children, Child{Position: Kwarg(kw.Name), ID: kw.Child})
	}
	return children
}

// keyOrder returns k with array-index names moved to the front in ascending
// order. The common case of no such name returns k itself.
func (k Kwargs) keyOrder() Kwargs {
	var idx []int
	for i, kw := range k {
		if _, ok := arrayIndex(kw.Name); ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return k
	}

	out := make(Kwargs, 0, len(k))
	for _, i := range idx {
		out = append(out, k[i])
	}
	slices.SortStableFunc(out, func(a, b Keyword) int {
		x, _ := arrayIndex(a.Name)
		y, _ := arrayIndex(b.Name)
		return cmp.Compare(x, y)
	})
	for _, kw := range k {
		if _, ok := arrayIndex(kw.Name); !ok {
			out = append(out, kw)
		}
	}
	return out
}

// maxArrayIndex is the largest array index of a JavaScript object key.
const maxArrayIndex = 1<<32 - 2

// arrayIndex reports whether name is the canonical decimal form of an
// array index: digits only, no leading zero, at most maxArrayIndex.
func arrayIndex(name string) (uint64, bool) {
	if name == "" || len(name) > 10 || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	v, err := strconv.ParseUint(name, 10, 64)
	if err != nil || v > maxArrayIndex {
		return 0, false
	}
	return v, true
}

// Position identifies the slot a child occupies under its parent: either a
// zero-based positional index or a keyword name. Positions are comparable and
// usable as map keys; Arg(0) and Kwarg("0") are distinct.
type Position struct {
	Index   int
	Name    string
	Keyword bool
}

// Arg returns the position of the i-th positional argument.
func Arg(i int) Position { return Position{Index: i} }

// Kwarg returns the position of the keyword argument name.
func Kwarg(name string) Position { return Position{Name: name, Keyword: true} }

// String renders the position as it appears in edge ids.
func (p Position) String() string {
	if p.Keyword {
		return p.Name
	}
	return strconv.Itoa(p.Index)
}

// Keyword is a single keyword argument.
type Keyword struct {
	Name  string
	Child string
}

// Kwargs is an ordered list of keyword arguments. It encodes as a JSON object
// and decodes preserving key order. Names must be unique.
type Kwargs []Keyword

// Get returns the child id bound to name.
func (k Kwargs) Get(name string) (string, bool) {
	for _, kw := range k {
		if kw.Name == name {
			return kw.Child, true
		}
	}
	return "", false
}

// MarshalJSON writes the keyword arguments as an object in list order.
func (k Kwargs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kw := range k {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(kw.Name)
		if err != nil {
			return nil, err
		}
		child, err := json.Marshal(kw.Child)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(child)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of name → child id pairs in document order.
func (k *Kwargs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*k = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("kwargs: expected object, got %v", tok)
	}

	var out Kwargs
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("kwargs: expected string key, got %v", keyTok)
		}
		if seen[name] {
			return fmt.Errorf("kwargs: duplicate keyword %q", name)
		}
		seen[name] = true

		var child string
		if err := dec.Decode(&child); err != nil {
			return fmt.Errorf("kwargs: keyword %q: %w", name, err)
		}
		out = append(out, Keyword{Name: name, Child: child})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*k = out
	return nil
}

// nodeJSON is the wire shape shared by both node kinds.
type nodeJSON struct {
	ID         string                  `json:"id"`
	Function   string                  `json:"function,omitempty"`
	TypeParams map[string]TypeInstance `json:"type_params,omitempty"`
	Args       []string                `json:"args,omitempty"`
	Kwargs     Kwargs                  `json:"kwargs,omitempty"`
	Type       string                  `json:"type,omitempty"`
	Repr       *string                 `json:"repr,omitempty"`
}

// MarshalJSON writes only the fields that belong to the node's kind.
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{ID: n.ID}
	if n.IsPrimitive() {
		repr := n.Repr
		out.Type = n.Type
		out.Repr = &repr
	} else {
		out.Function = n.Function
		out.TypeParams = n.TypeParams
		out.Args = n.Args
		if len(n.Kwargs) > 0 {
			out.Kwargs = n.Kwargs
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes either node kind. Shape errors (a primitive that also
// names a function, a call without a function) are left to [Document.Validate].
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*n = Node{
		ID:         in.ID,
		Function:   in.Function,
		TypeParams: in.TypeParams,
		Args:       in.Args,
		Kwargs:     in.Kwargs,
		Type:       in.Type,
	}
	if in.Repr != nil {
		n.Kind = NodeKindPrimitive
		n.Repr = *in.Repr
	}
	return nil
}
