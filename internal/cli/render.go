package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/pipeline"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// stdoutPath selects standard output for -o.
const stdoutPath = "-"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file (single artifact) or base path
	formats  []string // output formats: "svg", "png", "dot", "json"
	steps    []int    // steps to render, in order; empty means all
	detailed bool     // show identifiers and argument slots
	noCache  bool     // bypass the artifact cache
}

// renderCommand creates the render command. It writes one artifact per
// selected step and format, named <base>.step-NN.<format>.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr, stepsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render every rewrite step to DOT, SVG, PNG or JSON",
		Long: `Render reconciles each selected step against the one displayed before it
and writes one artifact per step and format. Shared structure keeps its
identifiers, so the diagrams can be animated as one sequence.

With a single step and format, -o names the output file exactly ("-" for
stdout). Otherwise -o is a base path and files are named
<base>.step-NN.<format>.`,
		Example: `  exprtrail render trace.json
  exprtrail render trace.json -f svg,json --steps 0-3
  exprtrail render trace.json -f dot --steps 2 -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.applyRenderFlags(cmd, formatsStr, stepsStr, &opts); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.ValidArgsFunction = completeDocument

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single artifact) or base path; - for stdout")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot, json (comma-separated)")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	cmd.Flags().StringVar(&stepsStr, "steps", "", "steps to render, e.g. 0,2,5 or 1-4 (default all)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with their identifiers and edges with their slots")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the artifact cache")

	return cmd
}

// applyRenderFlags merges the config file defaults under the parsed flags.
func (c *CLI) applyRenderFlags(cmd *cobra.Command, formatsStr, stepsStr string, opts *renderOpts) error {
	opts.formats = c.Config.Render.Formats
	if cmd.Flags().Changed("format") {
		formats, err := pipeline.ParseFormats(formatsStr)
		if err != nil {
			return err
		}
		opts.formats = formats
	}
	if !cmd.Flags().Changed("detailed") {
		opts.detailed = c.Config.Render.Detailed
	}
	steps, err := pipeline.ParseSteps(stepsStr)
	if err != nil {
		return err
	}
	opts.steps = steps
	return nil
}

func (c *CLI) pipelineOptions(opts renderOpts) pipeline.Options {
	return pipeline.Options{
		Formats:     opts.formats,
		Steps:       opts.steps,
		Detailed:    opts.detailed,
		Parallelism: c.Config.Render.Parallelism,
		Logger:      c.Logger,
	}
}

// runRender loads input, executes the pipeline and writes every artifact.
func (c *CLI) runRender(ctx context.Context, stdout io.Writer, input string, opts renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	if opts.output != "" && opts.output != stdoutPath {
		if err := errs.ValidatePath(opts.output); err != nil {
			return err
		}
	}
	doc, err := typez.ReadFile(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, os.Stderr, fmt.Sprintf("Rendering %s...", filepath.Base(input)))
	spinner.Start()
	result, err := runner.Execute(ctx, doc, c.pipelineOptions(opts))
	spinner.Stop()
	if err != nil {
		return err
	}

	written, err := writeArtifacts(stdout, input, opts.output, result.Frames)
	if err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Rendered %d artifacts", len(written)))
	if opts.output != stdoutPath {
		for _, path := range written {
			printFile(path)
		}
		printStats(len(result.Frames), len(written), result.Stats.CacheHits)
	}
	return nil
}

// writeArtifacts writes every artifact of frames and returns the paths written.
func writeArtifacts(stdout io.Writer, input, output string, frames []pipeline.Frame) ([]string, error) {
	single := len(frames) == 1 && len(frames[0].Artifacts) == 1
	if output == stdoutPath {
		if !single {
			return nil, fmt.Errorf("-o - needs exactly one step and one format")
		}
		format := pipeline.SortedFormats(frames[0].Artifacts)[0]
		_, err := stdout.Write(frames[0].Artifacts[format])
		return nil, err
	}

	base := basePath(output, input)
	var written []string
	for _, f := range frames {
		for _, format := range pipeline.SortedFormats(f.Artifacts) {
			path := artifactPath(base, f.Step.Index, format)
			if single && output != "" {
				path = output
			}
			if err := writeFile(path, f.Artifacts[format]); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .dot, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidateFormat(strings.TrimPrefix(ext, ".")) == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// artifactPath names the artifact of one step: trace.step-03.svg.
func artifactPath(base string, step int, format string) string {
	return fmt.Sprintf("%s.step-%02d.%s", base, step, format)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
