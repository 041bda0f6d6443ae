package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/exprtrail/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed appends the rendering identifier to every node label and labels
	// each edge with the argument slot it fills.
	Detailed bool
	// Highlight lists rendering identifiers drawn with an accent fill, usually
	// the nodes added since the previous step.
	Highlight []string
}

// ToDOT converts a rendering set to Graphviz DOT format. Rendering
// identifiers become DOT node names, so two diagrams of consecutive steps
// name their shared nodes identically. The result can be rendered with
// [RenderSVG] or [RenderPNG].
func ToDOT(set render.Set, opts Options) string {
	highlight := make(map[string]bool, len(opts.Highlight))
	for _, id := range opts.Highlight {
		highlight[id] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=14];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range set.Nodes {
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
		if highlight[n.ID] {
			attrs = append(attrs, "fillcolor=lightyellow")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range set.Edges {
		if opts.Detailed {
			fmt.Fprintf(&buf, "  %q -> %q [id=%q, taillabel=%q];\n", e.Source, e.Target, e.ID, slot(e))
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [id=%q];\n", e.Source, e.Target, e.ID)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n render.Node, detailed bool) string {
	if !detailed {
		return n.Label
	}
	return n.Label + "\n#" + n.ID
}

// slot recovers the position suffix of an edge identifier.
func slot(e render.Edge) string {
	return strings.TrimPrefix(e.ID, e.Source+".")
}

// RenderSVG renders a DOT graph to SVG. The root element is rewritten to a
// unitless viewBox with matching width and height, so the diagram scales
// when embedded in a page.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	data, err := renderGraphviz(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(data), nil
}

// RenderPNG renders a DOT graph to PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderGraphviz(ctx, dot, graphviz.PNG)
}

// renderGraphviz runs one Graphviz instance per call; instances are not safe
// for concurrent use and the pipeline renders steps in parallel.
func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var out bytes.Buffer
	if err := gv.Render(ctx, g, format, &out); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return out.Bytes(), nil
}

// svgRootRe captures the viewBox width and height of the root <svg> tag.
var svgRootRe = regexp.MustCompile(`<svg[^>]*?viewBox="[0-9.]+\s+[0-9.]+\s+([0-9.]+)\s+([0-9.]+)"[^>]*>`)

func normalizeViewBox(svg []byte) []byte {
	loc := svgRootRe.FindSubmatchIndex(svg)
	if loc == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(svg[loc[2]:loc[3]]), 64)
	h, _ := strconv.ParseFloat(string(svg[loc[4]:loc[5]]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	out := make([]byte, 0, len(svg))
	out = append(out, svg[:loc[0]]...)
	out = append(out, root...)
	return append(out, svg[loc[1]:]...)
}
