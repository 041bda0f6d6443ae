// Package player drives interactive step selection over a typez document.
//
// A [Player] reconciles each selected step against the step displayed before
// it, which is not necessarily its predecessor in the document: a slider may
// jump from step 2 to step 9 and back. Results are handed to a [Sink].
//
// With [Debounced], a burst of selections collapses into one reconciliation
// of the last step in the burst. Skipped selections are never reconciled, so
// the identifiers delivered are the same as if only the last step had been
// selected.
package player

import (
	"io"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/reconcile"
	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// Update is one delivered selection.
type Update struct {
	Step typez.Step
	Set  render.Set
	Diff render.Diff
	Err  error
}

// Sink receives updates. It is called with the player locked and must not
// call back into the player.
type Sink func(Update)

// Option configures a [Player].
type Option func(*Player)

// Debounced delays reconciliation until no selection arrived for d.
func Debounced(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.debounce = debounce.New(d)
		}
	}
}

// WithLogger sets the logger for selection events.
func WithLogger(l *log.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

// Player holds the display window of one document. It is safe for concurrent
// use; reconciliation runs one selection at a time.
type Player struct {
	mu       sync.Mutex
	doc      *typez.Document
	steps    []typez.Step
	chain    reconcile.Chain
	shown    render.Set
	current  int
	pending  int
	sink     Sink
	debounce func(func())
	logger   *log.Logger
}

// New returns a player over doc. Nothing is displayed until the first
// [Player.Select].
func New(doc *typez.Document, sink Sink, opts ...Option) (*Player, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	steps := doc.Steps()
	if len(steps) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidDocument, "document has no states")
	}
	if sink == nil {
		sink = func(Update) {}
	}

	p := &Player{
		doc:     doc,
		steps:   steps,
		current: -1,
		sink:    sink,
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Steps returns the document's steps.
func (p *Player) Steps() []typez.Step { return p.steps }

// Select displays step i. Out of range indices fail immediately. Without
// debounce the update is delivered before Select returns, and a
// reconciliation error is also returned.
func (p *Player) Select(i int) error {
	if i < 0 || i >= len(p.steps) {
		return errs.New(errs.ErrCodeStepOutOfRange, "step %d out of range (document has %d steps)", i, len(p.steps))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounce == nil {
		return p.apply(i)
	}
	p.pending = i
	p.debounce(p.flush)
	return nil
}

// Current returns the displayed step index, -1 before the first delivery,
// and its rendering set.
func (p *Player) Current() (int, render.Set) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.shown
}

// Reset clears the display. The next selection is reconciled without a
// previous state, but never reuses identifiers minted before the reset.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chain.Reset()
	p.shown = render.Set{}
	p.current = -1
}

func (p *Player) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.apply(p.pending)
}

// apply reconciles step i against the displayed state. p.mu must be held.
func (p *Player) apply(i int) error {
	step := p.steps[i]
	state, err := p.chain.Advance(p.doc.Nodes, step.Node)
	if err != nil {
		p.logger.Error("selection failed", "step", i, "error", err)
		p.sink(Update{Step: step, Err: err})
		return err
	}

	set := state.Elements()
	u := Update{Step: step, Set: set, Diff: set.Diff(p.shown)}
	p.logger.Debug("selected step", "step", i, "from", p.current, "nodes", state.Len())
	p.shown = set
	p.current = i
	p.sink(u)
	return nil
}
