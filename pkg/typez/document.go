package typez

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// InitialRule is the rule name reported for step 0, the initial expression.
const InitialRule = "initial"

// Document is a complete typez payload. All sections are optional.
type Document struct {
	Definitions Definitions `json:"definitions,omitempty"`
	Nodes       []Node      `json:"nodes,omitempty"`
	States      *States     `json:"states,omitempty"`
}

// States holds the initial root and the rewrite steps that follow it.
type States struct {
	Initial string  `json:"initial"`
	States  []State `json:"states,omitempty"`
}

// State is one rewrite step: the new root, the rule that produced it and
// optional display text.
type State struct {
	Node  string `json:"node"`
	Rule  string `json:"rule"`
	Label string `json:"label,omitempty"`
	Logs  string `json:"logs,omitempty"`
}

// Step is a flattened view of a root selection, numbered from zero.
type Step struct {
	Index int    `json:"index"`
	Node  string `json:"node"`
	Rule  string `json:"rule"`
	Label string `json:"label,omitempty"`
	Logs  string `json:"logs,omitempty"`
}

// Title is the label when present, otherwise the rule name.
func (s Step) Title() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Rule
}

// Steps returns the ordered list of root selections: the initial root as
// step 0 with rule [InitialRule], followed by every recorded state. A document
// without states has no steps.
func (d *Document) Steps() []Step {
	if d == nil || d.States == nil {
		return nil
	}
	steps := make([]Step, 0, len(d.States.States)+1)
	steps = append(steps, Step{Index: 0, Node: d.States.Initial, Rule: InitialRule})
	for i, s := range d.States.States {
		steps = append(steps, Step{
			Index: i + 1,
			Node:  s.Node,
			Rule:  s.Rule,
			Label: s.Label,
			Logs:  s.Logs,
		})
	}
	return steps
}

// Step returns the step at index i.
func (d *Document) Step(i int) (Step, bool) {
	steps := d.Steps()
	if i < 0 || i >= len(steps) {
		return Step{}, false
	}
	return steps[i], true
}

// Node returns the first node with the given id.
func (d *Document) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// =============================================================================
// Definitions
// =============================================================================

// Definitions maps kind and function names to their signatures. They are used
// for display only.
type Definitions map[string]Definition

// Names returns the definition names in sorted order.
func (d Definitions) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition is either a [Kind] (type constructor) or a [Function].
type Definition struct {
	Kind     *Kind
	Function *Function
}

// IsFunction reports whether the definition is a function signature.
func (d Definition) IsFunction() bool { return d.Function != nil }

// Kind is a type constructor with optional parameter names.
type Kind struct {
	Params []string `json:"params,omitempty"`
}

// Function is a function signature. Methods are functions named
// "<type>.<method>" whose first parameter takes the type.
type Function struct {
	TypeParams []string `json:"type_params,omitempty"`
	Params     []Param  `json:"params"`
	RestParam  *Param   `json:"rest_param,omitempty"`
	Return     Type     `json:"return_"`
}

// Signature renders the function as "(a: T, b: U) -> R".
func (f Function) Signature() string {
	parts := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		parts = append(parts, p.String())
	}
	if f.RestParam != nil {
		parts = append(parts, "*"+f.RestParam.String())
	}
	sig := "(" + strings.Join(parts, ", ") + ") -> " + f.Return.String()
	if len(f.TypeParams) > 0 {
		sig = "[" + strings.Join(f.TypeParams, ", ") + "]" + sig
	}
	return sig
}

// Param is a named parameter. It is encoded as a two element array.
type Param struct {
	Name string
	Type Type
}

func (p Param) String() string { return p.Name + ": " + p.Type.String() }

// MarshalJSON encodes the parameter as [name, type].
func (p Param) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Name, p.Type})
}

// UnmarshalJSON decodes a [name, type] pair.
func (p *Param) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("param: expected [name, type], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Name); err != nil {
		return fmt.Errorf("param name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Type); err != nil {
		return fmt.Errorf("param %q type: %w", p.Name, err)
	}
	return nil
}

// Type is a type reference in a signature: a type parameter (Param set), a
// declared type (Type with optional Params) or an external host type (Type
// and Repr).
type Type struct {
	Param  string          `json:"param,omitempty"`
	Type   string          `json:"type,omitempty"`
	Params map[string]Type `json:"params,omitempty"`
	Repr   string          `json:"repr,omitempty"`
}

func (t Type) String() string {
	switch {
	case t.Param != "":
		return t.Param
	case t.Repr != "":
		return t.Repr
	case len(t.Params) == 0:
		return t.Type
	}
	keys := make([]string, 0, len(t.Params))
	for k := range t.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, k+"="+t.Params[k].String())
	}
	return t.Type + "[" + strings.Join(args, ", ") + "]"
}

// TypeInstance binds a type parameter of a call node: either a declared type
// with optional parameters or an external type identified by its repr.
type TypeInstance struct {
	Type   string                  `json:"type,omitempty"`
	Params map[string]TypeInstance `json:"params,omitempty"`
	Repr   string                  `json:"repr,omitempty"`
}

func (t TypeInstance) String() string {
	return Type{Type: t.Type, Repr: t.Repr, Params: instanceParams(t.Params)}.String()
}

func instanceParams(in map[string]TypeInstance) map[string]Type {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]Type, len(in))
	for k, v := range in {
		out[k] = Type{Type: v.Type, Repr: v.Repr, Params: instanceParams(v.Params)}
	}
	return out
}

// MarshalJSON writes whichever variant is set.
func (d Definition) MarshalJSON() ([]byte, error) {
	if d.Function != nil {
		return json.Marshal(d.Function)
	}
	if d.Kind != nil {
		return json.Marshal(d.Kind)
	}
	return []byte("{}"), nil
}

// UnmarshalJSON treats objects carrying "return_" as functions and everything
// else as kinds.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["return_"]; ok {
		var f Function
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*d = Definition{Function: &f}
		return nil
	}
	var k Kind
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	*d = Definition{Kind: &k}
	return nil
}
