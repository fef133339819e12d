package tracing

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"mediacatalog/internal/config"
)

const (
	instrumentationName = "mediacatalog"
	ServiceVersion      = "1.0.0"
)

// Exporter names accepted in config
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Tracer owns the process-wide tracer provider
type Tracer struct {
	tp *sdktrace.TracerProvider
}

// NewTracer installs a global tracer provider for the configured exporter.
// With the "none" exporter the global no-op provider stays in place.
func NewTracer(ctx context.Context, cfg config.TracingConfig, serviceName string) (*Tracer, error) {
	var exp sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "", ExporterNone:
		return &Tracer{}, nil
	case ExporterStdout:
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err = otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}

	return NewTracerWithProcessor(sdktrace.NewBatchSpanProcessor(exp), serviceName), nil
}

// NewTracerWithProcessor installs a provider feeding the given span processor
func NewTracerWithProcessor(sp sdktrace.SpanProcessor, serviceName string) *Tracer {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Tracer{tp: tp}
}

// Shutdown flushes pending spans
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.tp == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}

// StartSpan starts a span on the global provider
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) on span and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// JobAttrs returns common attributes for job runs
func JobAttrs(taskType, queue string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("component", "job"),
		attribute.String("job.type", taskType),
	}
	if queue != "" {
		attrs = append(attrs, attribute.String("job.queue", queue))
	}
	return attrs
}

// FiberMiddleware opens a server span per request, continuing any incoming
// W3C trace context.
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		carrier := propagation.HeaderCarrier(c.GetReqHeaders())
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		ctx, span := otel.Tracer(instrumentationName).Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(semconv.HTTPRequestMethodKey.String(c.Method())),
		)
		defer span.End()

		c.SetUserContext(ctx)
		err := c.Next()

		// Rename to the route pattern once routing has happened
		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		status := c.Response().StatusCode()
		span.SetAttributes(
			semconv.HTTPRoute(route),
			semconv.HTTPResponseStatusCode(status),
		)
		if err != nil {
			span.RecordError(err)
		}
		if status >= 500 {
			span.SetStatus(codes.Error, fiber.ErrInternalServerError.Message)
		}
		return err
	}
}
