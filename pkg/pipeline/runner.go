package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/exprtrail/pkg/cache"
	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/observability"
	"github.com/matzehuels/exprtrail/pkg/reconcile"
	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete reconcile → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, doc *typez.Document, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	docHash, err := DocumentHash(doc)
	if err != nil {
		return nil, err
	}
	selection, err := opts.Selection(len(doc.Steps()))
	if err != nil {
		return nil, err
	}

	result := &Result{DocHash: docHash}

	// Stage 1: Reconcile
	reconcileStart := time.Now()
	frames, err := r.Reconcile(ctx, doc, selection)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	result.Frames = frames
	result.Stats.Steps = len(frames)
	result.Stats.ReconcileTime = time.Since(reconcileStart)

	opts.Logger.Info("reconciled steps",
		"steps", len(frames),
		"duration", result.Stats.ReconcileTime)

	// Stage 2: Render
	renderStart := time.Now()
	hits, misses, err := r.RenderFrames(ctx, docHash, frames, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Stats.RenderTime = time.Since(renderStart)
	result.Stats.CacheHits = hits
	result.Stats.CacheMisses = misses

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hits,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Reconcile walks the selected steps in order, reconciling each against the
// frame before it. It stops at the first failure, or when ctx is done.
func (r *Runner) Reconcile(ctx context.Context, doc *typez.Document, selection []int) ([]Frame, error) {
	steps := doc.Steps()
	if len(steps) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidDocument, "document has no states")
	}
	if err := ValidateSteps(selection, len(steps)); err != nil {
		return nil, err
	}

	hooks := observability.Reconcile()
	var (
		chain reconcile.Chain
		prev  render.Set
	)
	frames := make([]Frame, 0, len(selection))
	for i, idx := range selection {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := steps[idx]

		hooks.OnReconcileStart(ctx, idx, len(doc.Nodes))
		start := time.Now()
		state, err := chain.Advance(doc.Nodes, step.Node)
		if err != nil {
			hooks.OnReconcileComplete(ctx, idx, observability.StepStats{}, time.Since(start), err)
			return nil, fmt.Errorf("step %d: %w", idx, err)
		}

		set := state.Elements()
		frame := Frame{
			Step:      step,
			Trail:     append([]int{}, selection[:i]...),
			Set:       set,
			Diff:      set.Diff(prev),
			Artifacts: make(map[string][]byte),
		}
		frame.Stats = stepStats(state, frame.Diff)
		hooks.OnReconcileComplete(ctx, idx, frame.Stats, time.Since(start), nil)

		r.Logger.Debug("reconciled step",
			"step", idx,
			"root", step.Node,
			"nodes", frame.Stats.Nodes,
			"minted", frame.Stats.Minted)

		frames = append(frames, frame)
		prev = set
	}
	return frames, nil
}

// RenderFrames fills the Artifacts of every frame concurrently and reports
// cache hits and misses.
func (r *Runner) RenderFrames(ctx context.Context, docHash string, frames []Frame, opts Options) (hits, misses int, err error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return 0, 0, err
	}

	type job struct {
		frame  int
		format string
	}
	jobs := make([]job, 0, len(frames)*len(opts.Formats))
	for i := range frames {
		for _, format := range opts.Formats {
			jobs = append(jobs, job{frame: i, format: format})
		}
	}

	var nHits, nMisses atomic.Int64
	out := make([][]byte, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, j := range jobs {
		g.Go(func() error {
			data, hit, err := r.renderCached(gctx, docHash, frames[j.frame], j.format, opts)
			if err != nil {
				return fmt.Errorf("step %d %s: %w", frames[j.frame].Step.Index, j.format, err)
			}
			if hit {
				nHits.Add(1)
			} else {
				nMisses.Add(1)
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	for i, j := range jobs {
		frames[j.frame].Artifacts[j.format] = out[i]
	}
	return int(nHits.Load()), int(nMisses.Load()), nil
}

// renderCached returns a cached artifact or renders and caches it.
func (r *Runner) renderCached(ctx context.Context, docHash string, f Frame, format string, opts Options) ([]byte, bool, error) {
	cacheHooks := observability.Cache()
	key := r.Keyer.ArtifactKey(docHash, opts.ArtifactKeyOpts(f, format))

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		cacheHooks.OnCacheHit(ctx, "artifact")
		return data, true, nil
	}
	cacheHooks.OnCacheMiss(ctx, "artifact")

	start := time.Now()
	data, err := Render(ctx, f, format, opts.Detailed)
	observability.Reconcile().OnRenderComplete(ctx, format, len(data), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		r.Logger.Debug("cache write failed", "format", format, "error", err)
	} else {
		cacheHooks.OnCacheSet(ctx, "artifact", len(data))
	}
	return data, false, nil
}

// DocumentHash returns the content hash used to key a document's artifacts.
func DocumentHash(doc *typez.Document) (string, error) {
	data, err := typez.Marshal(doc)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}

// stepStats summarizes a reconciled state for hooks and display.
func stepStats(s *reconcile.State, d render.Diff) observability.StepStats {
	t := s.Tally()
	return observability.StepStats{
		Nodes:   s.Len(),
		Edges:   len(s.Elements().Edges),
		Kept:    t.Previous,
		Minted:  t.Fresh,
		Removed: len(d.RemovedNodes),
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
