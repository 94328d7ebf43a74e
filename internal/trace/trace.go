package trace

import (
	"context"
	"os"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "sentiment-trader"

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
)

// Option adds run identity to the exported resource.
type Option func(*identity)

type identity struct {
	version string
	attrs   []attribute.KeyValue
}

// WithConfig tags spans with the config fingerprint and run mode, so traces
// from runs under different settings can be told apart.
func WithConfig(fingerprint, mode string) Option {
	return func(id *identity) {
		id.attrs = append(id.attrs,
			attribute.String("trader.config", fingerprint),
			attribute.String("trader.mode", mode),
		)
	}
}

// WithExchange tags spans with the calendar the run trades on.
func WithExchange(name, timezone string) Option {
	return func(id *identity) {
		id.attrs = append(id.attrs,
			attribute.String("trader.exchange", name),
			attribute.String("trader.timezone", timezone),
		)
	}
}

func WithAttributes(kv ...attribute.KeyValue) Option {
	return func(id *identity) {
		id.attrs = append(id.attrs, kv...)
	}
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func resourceAttributes(opts ...Option) []attribute.KeyValue {
	id := identity{version: buildVersion()}
	for _, opt := range opts {
		opt(&id)
	}
	return append([]attribute.KeyValue{
		attribute.String("service.name", serviceName),
		attribute.String("service.version", id.version),
	}, id.attrs...)
}

// Init reads LOG_TRACING_ENABLED (default false) and installs a stdout
// exporter when tracing is on. Spans are no-ops otherwise.
func Init(opts ...Option) error {
	if getEnv("LOG_TRACING_ENABLED", "false") != "true" {
		enabled = false
		return nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(resourceAttributes(opts...)...),
	)
	if err != nil {
		return err
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(serviceName)
	enabled = true
	return nil
}

func Shutdown(ctx context.Context) error {
	if tracerProvider != nil {
		return tracerProvider.Shutdown(ctx)
	}
	return nil
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return enabled
}

func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", "", false
	}
	return span.SpanContext().TraceID().String(),
		span.SpanContext().SpanID().String(),
		true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
