// Package observability lets the resolver emit events without depending on
// a metrics or tracing backend.
//
// Each event category has an interface, a no-op implementation that is in
// effect until something registers, and a global setter. Sessions report
// graph and container events, the metadata store reports cache hits and
// misses, and the HTTP API reports requests. [PrometheusHooks] and
// [OTelTraceHooks] are the bundled backends.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    prom, _ := observability.NewPrometheusHooks(observability.MetricsConfig{})
//	    observability.SetResolveHooks(prom)
//	    observability.SetCacheHooks(prom)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Resolve().OnGraphStart(ctx, graph)
//	// ... build and seal ...
//	observability.Resolve().OnGraphSealed(ctx, graph, bindings, diagnostics, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveHooks receives events from graph resolution.
type ResolveHooks interface {
	// Graph events
	OnGraphStart(ctx context.Context, graph string)
	OnGraphSealed(ctx context.Context, graph string, bindings, diagnostics int, duration time.Duration)

	// OnContainerResolved records a resolved binding container. fromMetadata
	// is set when it was loaded from another module's metadata.
	OnContainerResolved(ctx context.Context, container string, providers int, fromMetadata bool)

	// OnDiagnostic records one reported diagnostic.
	OnDiagnostic(ctx context.Context, graph, kind string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a finished request.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// Trace Hooks
// =============================================================================

// Attr is a span attribute.
type Attr struct {
	Key   string
	Value any
}

// TraceHooks starts spans.
type TraceHooks interface {
	// StartSpan starts a span and returns the function that ends it.
	StartSpan(ctx context.Context, name string, attrs ...Attr) (context.Context, func(err error))
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnGraphStart(context.Context, string)                           {}
func (NoopResolveHooks) OnGraphSealed(context.Context, string, int, int, time.Duration) {}
func (NoopResolveHooks) OnContainerResolved(context.Context, string, int, bool)         {}
func (NoopResolveHooks) OnDiagnostic(context.Context, string, string)                   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// NoopTraceHooks is a no-op implementation of TraceHooks.
type NoopTraceHooks struct{}

func (NoopTraceHooks) StartSpan(ctx context.Context, _ string, _ ...Attr) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// =============================================================================
// Global Hook Registry
// =============================================================================

// slot holds one registered hook set. Registering nil keeps the current one.
type slot[T any] struct {
	mu   sync.RWMutex
	cur  T
	noop T
}

func newSlot[T any](noop T) *slot[T] { return &slot[T]{cur: noop, noop: noop} }

func (s *slot[T]) set(h T) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.cur = h
	s.mu.Unlock()
}

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.cur = s.noop
	s.mu.Unlock()
}

var (
	resolveHooks = newSlot[ResolveHooks](NoopResolveHooks{})
	cacheHooks   = newSlot[CacheHooks](NoopCacheHooks{})
	httpHooks    = newSlot[HTTPHooks](NoopHTTPHooks{})
	traceHooks   = newSlot[TraceHooks](NoopTraceHooks{})
)

// SetResolveHooks registers resolve hooks. Call it at startup, before the
// first session runs.
func SetResolveHooks(h ResolveHooks) { resolveHooks.set(h) }

// SetCacheHooks registers metadata and report cache hooks.
func SetCacheHooks(h CacheHooks) { cacheHooks.set(h) }

// SetHTTPHooks registers HTTP hooks.
func SetHTTPHooks(h HTTPHooks) { httpHooks.set(h) }

// SetTraceHooks registers the span factory.
func SetTraceHooks(h TraceHooks) { traceHooks.set(h) }

// Resolve returns the registered resolve hooks.
func Resolve() ResolveHooks { return resolveHooks.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheHooks.get() }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpHooks.get() }

// Trace returns the registered trace hooks.
func Trace() TraceHooks { return traceHooks.get() }

// Reset restores every no-op default. Tests call it in cleanup.
func Reset() {
	resolveHooks.reset()
	cacheHooks.reset()
	httpHooks.reset()
	traceHooks.reset()
}
