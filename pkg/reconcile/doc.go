// Package reconcile assigns rendering identifiers to the nodes of a typez
// expression graph so that identifiers stay continuous across rewrite steps.
//
// # Overview
//
// Logical node ids are content-addressed: they change whenever the
// subexpression changes. Rendering identifiers are short decimal strings a
// diagram library uses to match elements between two frames. [New] builds the
// [State] for one root selection, consulting the state of the previously
// displayed step:
//
//	prev, err := reconcile.New(doc.Nodes, steps[0].Node, nil)
//	next, err := reconcile.New(doc.Nodes, steps[1].Node, prev)
//	set := next.Elements()
//
// # Identifier Assignment
//
// Nodes are visited ancestors first (see package reach). Each node takes the
// first candidate not already claimed in the state under construction:
//
//  1. the identifier the same logical id held in the previous state
//  2. the identifier the previous state placed most often in this node's slot
//     under each of its parents (ties go to the identifier seen first)
//  3. a fresh identifier from a counter that never repeats
//
// The root is given a bookkeeping parent so tier 2 can recover the previous
// root's identifier when the root itself was rewritten. The bookkeeping
// parent never produces an edge.
//
// # Failure
//
// Construction is all or nothing. A malformed graph, two nodes claiming one
// identifier or a missing bookkeeping entry returns an error and no state;
// [errors.IsFatal] reports true for all of them.
//
// # History
//
// A State keeps no reference to its predecessor once built. [Chain] holds the
// latest state only, so memory stays proportional to one graph.
//
// [errors.IsFatal]: github.com/matzehuels/exprtrail/pkg/errors.IsFatal
package reconcile
