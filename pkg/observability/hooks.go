// Package observability carries reconciliation, cache and HTTP events to a
// metrics backend.
//
// The reconciliation engine itself is pure; the step pipeline, the cache
// layer and the HTTP host report what happens around it through three small
// interfaces. Each has a no-op default, so library code can always emit
// events and only a binary that cares registers a real implementation.
//
// [PrometheusHooks] implements every interface on top of
// prometheus/client_golang and is what "exprtrail serve" registers:
//
//	hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
//	observability.SetReconcileHooks(hooks)
//	observability.SetCacheHooks(hooks)
//	observability.SetHTTPHooks(hooks)
//	defer observability.Reset()
//
// Emitters fetch the current hooks at the point of use:
//
//	observability.Reconcile().OnReconcileComplete(ctx, step, stats, took, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// StepStats summarizes one reconciled step.
type StepStats struct {
	Nodes   int `json:"nodes"`   // rendered nodes
	Edges   int `json:"edges"`   // rendered edges
	Kept    int `json:"kept"`    // nodes whose identifier carried over from the previous step
	Minted  int `json:"minted"`  // fresh identifiers drawn from the counter
	Removed int `json:"removed"` // nodes of the previous step no longer shown
}

// ReconcileHooks receives step and artifact events from the pipeline.
type ReconcileHooks interface {
	OnReconcileStart(ctx context.Context, step, nodeCount int)
	OnReconcileComplete(ctx context.Context, step int, stats StepStats, duration time.Duration, err error)
	OnRenderComplete(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// CacheHooks receives artifact cache lookups and writes. keyType is the
// kind of entry ("artifact", "document").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP host. Route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// NoopReconcileHooks discards every event.
type NoopReconcileHooks struct{}

func (NoopReconcileHooks) OnReconcileStart(context.Context, int, int) {}
func (NoopReconcileHooks) OnReconcileComplete(context.Context, int, StepStats, time.Duration, error) {
}
func (NoopReconcileHooks) OnRenderComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks discards every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks discards every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// slot holds the registered implementation of one hook interface.
type slot[T any] struct {
	mu   sync.RWMutex
	cur  T
	noop T
}

func newSlot[T any](noop T) *slot[T] {
	return &slot[T]{cur: noop, noop: noop}
}

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// set replaces the implementation; a nil interface value is ignored.
func (s *slot[T]) set(h T) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.cur = h
	s.mu.Unlock()
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.cur = s.noop
	s.mu.Unlock()
}

var (
	reconcileSlot = newSlot[ReconcileHooks](NoopReconcileHooks{})
	cacheSlot     = newSlot[CacheHooks](NoopCacheHooks{})
	httpSlot      = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetReconcileHooks registers h for pipeline events. Call it at startup,
// before any pipeline runs.
func SetReconcileHooks(h ReconcileHooks) { reconcileSlot.set(h) }

// SetCacheHooks registers h for cache events.
func SetCacheHooks(h CacheHooks) { cacheSlot.set(h) }

// SetHTTPHooks registers h for HTTP events.
func SetHTTPHooks(h HTTPHooks) { httpSlot.set(h) }

// Reconcile returns the registered pipeline hooks.
func Reconcile() ReconcileHooks { return reconcileSlot.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheSlot.get() }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpSlot.get() }

// Reset restores the no-op hooks.
func Reset() {
	reconcileSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
}
