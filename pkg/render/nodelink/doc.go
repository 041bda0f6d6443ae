// Package nodelink renders rendering sets as node-link diagrams.
//
// # Usage
//
// Convert a set to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(state.Elements(), nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
//   - Detailed: node labels include the rendering identifier, edges show the
//     argument slot (index or keyword name) they fill
//   - Highlight: identifiers drawn with an accent fill, typically the
//     AddedNodes of a [render.Diff]
//
// The generated DOT uses top-to-bottom layout (rankdir=TB) with rounded box
// nodes, root at the top.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG and PNG
// rendering; no Graphviz installation is required.
//
// [render.Diff]: github.com/matzehuels/exprtrail/pkg/render.Diff
package nodelink
