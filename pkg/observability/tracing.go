package observability

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	Enabled      bool
	Endpoint     string
	Insecure     bool
	ServiceName  string
	Version      string
	SamplingRate float64
	Timeout      time.Duration
}

// NewTracerProvider installs an OTLP/HTTP tracer provider globally and
// returns its shutdown function. When tracing is disabled the shutdown
// function does nothing.
func NewTracerProvider(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracing enabled without endpoint")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bindgraph"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	// otlptracehttp wants host:port without scheme or path.
	endpoint := cfg.Endpoint
	if u, perr := url.Parse(cfg.Endpoint); perr == nil && u.Host != "" {
		endpoint = u.Host
	}
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithTimeout(cfg.Timeout),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// OTelTraceHooks implements TraceHooks on an OpenTelemetry tracer.
type OTelTraceHooks struct {
	tracer trace.Tracer
}

// NewOTelTraceHooks uses the tracer named "bindgraph" from tp, or from the
// global provider when tp is nil.
func NewOTelTraceHooks(tp trace.TracerProvider) *OTelTraceHooks {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelTraceHooks{tracer: tp.Tracer("github.com/matzehuels/bindgraph")}
}

// StartSpan starts a span; the returned function records err and ends it.
func (h *OTelTraceHooks) StartSpan(ctx context.Context, name string, attrs ...Attr) (context.Context, func(error)) {
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kv = append(kv, toAttribute(a))
	}
	ctx, span := h.tracer.Start(ctx, name, trace.WithAttributes(kv...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func toAttribute(a Attr) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	}
	return attribute.String(a.Key, fmt.Sprint(a.Value))
}

var _ TraceHooks = (*OTelTraceHooks)(nil)
