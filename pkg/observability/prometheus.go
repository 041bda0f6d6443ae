package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHooks records every hook event as Prometheus metrics.
type PrometheusHooks struct {
	gatherer prometheus.Gatherer

	reconcileTotal    *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	renderedNodes     prometheus.Histogram
	identifiers       *prometheus.CounterVec
	renderTotal       *prometheus.CounterVec
	renderBytes       *prometheus.HistogramVec
	cacheEvents       *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewPrometheusHooks creates the collectors and registers them with reg.
func NewPrometheusHooks(reg *prometheus.Registry) *PrometheusHooks {
	h := &PrometheusHooks{
		gatherer: reg,
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exprtrail_reconcile_total",
			Help: "Reconciled steps by outcome.",
		}, []string{"outcome"}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exprtrail_reconcile_duration_seconds",
			Help:    "Time to reconcile one step.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		renderedNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exprtrail_rendered_nodes",
			Help:    "Rendered nodes per step.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		identifiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exprtrail_identifiers_total",
			Help: "Rendering identifiers by how they were obtained.",
		}, []string{"source"}),
		renderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exprtrail_render_total",
			Help: "Rendered artifacts by format and outcome.",
		}, []string{"format", "outcome"}),
		renderBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exprtrail_render_bytes",
			Help:    "Artifact size in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"format"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exprtrail_cache_events_total",
			Help: "Cache hits, misses and writes by key type.",
		}, []string{"key_type", "event"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exprtrail_http_requests_total",
			Help: "HTTP responses by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exprtrail_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		h.reconcileTotal, h.reconcileDuration, h.renderedNodes, h.identifiers,
		h.renderTotal, h.renderBytes, h.cacheEvents, h.httpRequests, h.httpDuration,
	)
	return h
}

// Handler serves the registered metrics in the Prometheus text format.
func (h *PrometheusHooks) Handler() http.Handler {
	return promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *PrometheusHooks) OnReconcileStart(context.Context, int, int) {}

func (h *PrometheusHooks) OnReconcileComplete(_ context.Context, _ int, stats StepStats, d time.Duration, err error) {
	h.reconcileTotal.WithLabelValues(outcome(err)).Inc()
	h.reconcileDuration.Observe(d.Seconds())
	if err != nil {
		return
	}
	h.renderedNodes.Observe(float64(stats.Nodes))
	h.identifiers.WithLabelValues("kept").Add(float64(stats.Kept))
	h.identifiers.WithLabelValues("minted").Add(float64(stats.Minted))
	h.identifiers.WithLabelValues("positional").Add(float64(stats.Nodes - stats.Kept - stats.Minted))
}

func (h *PrometheusHooks) OnRenderComplete(_ context.Context, format string, size int, _ time.Duration, err error) {
	h.renderTotal.WithLabelValues(format, outcome(err)).Inc()
	if err == nil {
		h.renderBytes.WithLabelValues(format).Observe(float64(size))
	}
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ ReconcileHooks = (*PrometheusHooks)(nil)
	_ CacheHooks     = (*PrometheusHooks)(nil)
	_ HTTPHooks      = (*PrometheusHooks)(nil)
)
