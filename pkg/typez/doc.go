// Package typez defines the typez document: a serializable description of a
// DSL expression graph and the sequence of rewrite steps applied to it.
//
// # Overview
//
// A [Document] has three optional sections:
//
//   - Definitions: type and function signatures. Display and documentation only;
//     nothing in exprtrail validates the DSL's type system.
//   - Nodes: a flat, ordered collection of [Node] values with structural
//     sharing. A node is either a call (function, positional args, keyword
//     args) or a primitive leaf (type, repr).
//   - States: the initial root id plus the ordered list of rewrite steps, each
//     naming the new root, the rule that produced it and optional display text.
//
// Node ids are content-addressed by the producer: a node id is stable across
// steps if and only if it denotes the same logical subexpression. A node may be
// referenced as a child any number of times, so the collection models a DAG.
//
// # Ordering
//
// Producers emit children before their parents (see [Builder]), so walking
// the collection backwards visits every ancestor before its descendants.
// Consumers in this module do not depend on the orientation: package reach
// derives the ancestor-first order from the edges themselves.
//
// # Serialization
//
// Documents are JSON. [Decode] and [ReadFile] parse them, preserving the key
// order of keyword arguments because that order determines traversal order.
// [MediaType] is the MIME type under which notebook hosts deliver documents.
//
//	doc, err := typez.ReadFile("trace.json")
//	if err != nil {
//	    return err
//	}
//	for _, step := range doc.Steps() {
//	    fmt.Println(step.Index, step.Rule, step.Node)
//	}
package typez
