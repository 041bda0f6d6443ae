// Package render holds the rendering set: the ordered node and edge lists a
// diagram-drawing collaborator receives for one step.
//
// # Overview
//
// A [Set] is pure aggregation. Nodes carry a rendering identifier and a
// display label; edges connect two rendering identifiers and carry their own
// identifier of the form "<source>.<position>". The identifiers are assigned
// by package reconcile so that a renderer given two successive sets can morph
// elements whose identifiers match instead of removing and re-adding them.
//
// # JSON
//
// Sets encode in the cytoscape elements shape the original front end fed to
// its layout engines:
//
//	{
//	  "nodes": [{"data": {"id": "0", "label": "f"}}],
//	  "edges": [{"data": {"source": "0", "id": "0.0", "target": "1"}}]
//	}
//
// # Transitions
//
// [Set.Diff] classifies the elements of a set against its predecessor as
// kept, added or removed, which is what an animating renderer needs to decide
// between morphing and fading.
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage renders a set as a Graphviz diagram:
//
//	dot := nodelink.ToDOT(set, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/exprtrail/pkg/render/nodelink
package render
