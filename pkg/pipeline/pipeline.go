// Package pipeline provides the step pipeline shared by the CLI and the HTTP
// host.
//
// A typez document records a sequence of root selections. The pipeline walks
// a selection of those steps in order, reconciling each against the one shown
// before it, and renders every reconciled step into the requested artifact
// formats. Centralizing this keeps identifiers and cache keys identical across
// entry points.
//
// # Architecture
//
// Execution has two stages:
//
//  1. Reconcile: sequential, since every step depends on the state of the
//     previous one
//  2. Render: concurrent across frames and formats, each artifact cached
//     under the document hash and the trail of steps that led to it
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{
//	    Formats: []string{"json", "svg"},
//	    Steps:   []int{0, 3, 5},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Frames[1].Artifacts["svg"]
//
// Reconcile only, without rendering:
//
//	frames, err := runner.Reconcile(ctx, doc, []int{0, 1, 2})
package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/exprtrail/pkg/cache"
	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/observability"
	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultParallelism bounds concurrent artifact rendering.
const DefaultParallelism = 4

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Formats lists the artifacts rendered per step. Defaults to json.
	Formats []string `json:"formats,omitempty"`
	// Steps selects the steps to reconcile, in display order. Empty means
	// every step of the document.
	Steps []int `json:"steps,omitempty"`
	// Detailed adds rendering identifiers and argument slots to diagrams.
	Detailed bool `json:"detailed,omitempty"`
	// Parallelism bounds concurrent rendering. Defaults to DefaultParallelism.
	Parallelism int `json:"parallelism,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Frame is one reconciled step.
type Frame struct {
	// Step is the document step this frame shows.
	Step typez.Step
	// Trail lists the steps reconciled before this one in the same run,
	// oldest first.
	Trail []int
	// Set is the rendering set handed to the diagram collaborator.
	Set render.Set
	// Diff classifies Set against the previous frame's set.
	Diff render.Diff
	// Stats summarizes identifier assignment for this frame.
	Stats observability.StepStats
	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// DocHash is the content hash of the document's JSON encoding.
	DocHash string
	// Frames holds one frame per selected step, in selection order.
	Frames []Frame
	// Stats contains timing and cache information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Steps         int
	ReconcileTime time.Duration
	RenderTime    time.Duration
	CacheHits     int
	CacheMisses   int
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, dot, svg, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSteps checks every selected index against a document with total
// steps.
func ValidateSteps(steps []int, total int) error {
	for _, s := range steps {
		if s < 0 || s >= total {
			return errs.New(errs.ErrCodeStepOutOfRange, "step %d out of range (document has %d steps)", s, total)
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list, dropping duplicates.
func ParseFormats(s string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		if err := ValidateFormat(f); err != nil {
			return nil, err
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// MaxStepSelection bounds the number of entries a step selection may expand
// to, so a range like "0-2000000000" fails instead of allocating.
const MaxStepSelection = 1 << 16

// ParseSteps parses a step selection such as "0,3,5" or "2-6". An empty
// string selects nothing, which Execute treats as every step. Order is kept;
// a range may run backwards ("5-2"). Indices are checked against a document
// later, by [Options.Selection].
func ParseSteps(s string) ([]int, error) {
	return parseSteps(s, -1)
}

// ParseStepsWithin is ParseSteps for a document with total steps: every
// index and both ends of every range must lie in [0, total), checked before
// any range is expanded.
func ParseStepsWithin(s string, total int) ([]int, error) {
	return parseSteps(s, total)
}

// parseSteps skips the bounds check when total is negative.
func parseSteps(s string, total int) ([]int, error) {
	inRange := func(step int) error {
		if total < 0 {
			return nil
		}
		return ValidateSteps([]int{step}, total)
	}

	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, errs.New(errs.ErrCodeInvalidInput, "invalid step %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, errs.New(errs.ErrCodeInvalidInput, "invalid step range %q", part)
			}
		}
		if from < 0 || to < 0 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "invalid step %q", part)
		}
		if err := inRange(from); err != nil {
			return nil, err
		}
		if err := inRange(to); err != nil {
			return nil, err
		}

		// Both ends are non-negative, so the span cannot overflow.
		dir, span := 1, to-from
		if to < from {
			dir, span = -1, from-to
		}
		if span >= MaxStepSelection || len(out)+span+1 > MaxStepSelection {
			return nil, errs.New(errs.ErrCodeInvalidInput, "step selection %q exceeds %d steps", part, MaxStepSelection)
		}
		for k := 0; k <= span; k++ {
			out = append(out, from+k*dir)
		}
	}
	return out, nil
}

// SortedFormats returns formats in a stable order for display.
func SortedFormats(artifacts map[string][]byte) []string {
	out := make([]string, 0, len(artifacts))
	for f := range artifacts {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	for _, s := range o.Steps {
		if s < 0 {
			return errs.New(errs.ErrCodeStepOutOfRange, "step %d out of range", s)
		}
	}
	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Selection resolves the step indices to reconcile for a document with
// total steps.
func (o *Options) Selection(total int) ([]int, error) {
	if len(o.Steps) == 0 {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	if err := ValidateSteps(o.Steps, total); err != nil {
		return nil, err
	}
	return append([]int(nil), o.Steps...), nil
}

// ArtifactKeyOpts returns cache key options for one artifact of a frame.
func (o *Options) ArtifactKeyOpts(f Frame, format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Step:     f.Step.Index,
		Trail:    f.Trail,
		Format:   format,
		Detailed: o.Detailed && format != FormatJSON,
	}
}

// String renders a frame heading such as "step 3: unwrap".
func (f Frame) String() string {
	return fmt.Sprintf("step %d: %s", f.Step.Index, f.Step.Title())
}
