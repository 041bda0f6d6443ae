package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/render/nodelink"
)

// Render generates one artifact of a frame. Diagrams highlight the nodes
// added since the previous frame.
func Render(ctx context.Context, f Frame, format string, detailed bool) ([]byte, error) {
	if format == FormatJSON {
		return render.MarshalSet(f.Set)
	}

	dot := nodelink.ToDOT(f.Set, nodelink.Options{
		Detailed:  detailed,
		Highlight: f.Diff.AddedNodes,
	})

	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case FormatPNG:
		return nodelink.RenderPNG(ctx, dot)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
