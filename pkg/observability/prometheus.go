package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// MetricsConfig configures PrometheusHooks.
type MetricsConfig struct {
	// Namespace prefixes every metric; "bindgraph" when empty.
	Namespace string
	// PushgatewayURL enables Push. Empty disables pushing.
	PushgatewayURL string
	JobName        string
	Timeout        time.Duration
}

// PrometheusHooks records resolution, cache and HTTP events in a private
// registry. It implements ResolveHooks, CacheHooks and HTTPHooks.
type PrometheusHooks struct {
	cfg      MetricsConfig
	registry *prometheus.Registry

	graphDuration *prometheus.HistogramVec
	graphBindings *prometheus.GaugeVec
	diagnostics   *prometheus.CounterVec
	containers    *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewPrometheusHooks registers the bindgraph metrics in a fresh registry.
func NewPrometheusHooks(cfg MetricsConfig) (*PrometheusHooks, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "bindgraph"
	}
	if cfg.JobName == "" {
		cfg.JobName = "bindgraph"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	ns := cfg.Namespace
	h := &PrometheusHooks{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		graphDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "graph_seal_duration_seconds",
			Help:      "Time to build and seal one binding graph",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"status"}),
		graphBindings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "graph_bindings",
			Help:      "Number of bindings in the last sealed graph",
		}, []string{"graph"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "diagnostics_total",
			Help:      "Reported diagnostics by kind",
		}, []string{"kind"}),
		containers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "containers_resolved_total",
			Help:      "Resolved binding containers by origin",
		}, []string{"origin"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and writes",
		}, []string{"type", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "HTTP API requests",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		h.graphDuration, h.graphBindings, h.diagnostics, h.containers,
		h.cacheEvents, h.cacheBytes, h.httpRequests, h.httpDuration,
	} {
		if err := h.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return h, nil
}

// maxLabelLength bounds label values taken from declaration names.
const maxLabelLength = 128

func sanitizeLabel(value string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, value)
	if runes := []rune(clean); len(runes) > maxLabelLength {
		return string(runes[:maxLabelLength])
	}
	return clean
}

func (h *PrometheusHooks) OnGraphStart(context.Context, string) {}

func (h *PrometheusHooks) OnGraphSealed(_ context.Context, graph string, bindings, diagnostics int, d time.Duration) {
	status := "ok"
	if diagnostics > 0 {
		status = "error"
	}
	h.graphDuration.WithLabelValues(status).Observe(d.Seconds())
	h.graphBindings.WithLabelValues(sanitizeLabel(graph)).Set(float64(bindings))
}

func (h *PrometheusHooks) OnContainerResolved(_ context.Context, _ string, _ int, fromMetadata bool) {
	origin := "source"
	if fromMetadata {
		origin = "metadata"
	}
	h.containers.WithLabelValues(origin).Inc()
}

func (h *PrometheusHooks) OnDiagnostic(_ context.Context, _ string, kind string) {
	h.diagnostics.WithLabelValues(sanitizeLabel(kind)).Inc()
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	h.httpRequests.WithLabelValues(method, route, fmt.Sprint(code)).Inc()
	h.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (h *PrometheusHooks) Registry() *prometheus.Registry { return h.registry }

// Handler serves the registry in the Prometheus text format.
func (h *PrometheusHooks) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}

// Push sends the registry to the configured Pushgateway. It does nothing
// without a URL.
func (h *PrometheusHooks) Push(ctx context.Context) error {
	if h.cfg.PushgatewayURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()
	return push.New(h.cfg.PushgatewayURL, h.cfg.JobName).
		Gatherer(h.registry).
		PushContext(ctx)
}

var (
	_ ResolveHooks = (*PrometheusHooks)(nil)
	_ CacheHooks   = (*PrometheusHooks)(nil)
	_ HTTPHooks    = (*PrometheusHooks)(nil)
)
