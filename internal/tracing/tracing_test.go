package tracing

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mediacatalog/internal/config"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tracer := NewTracerWithProcessor(recorder, "catalog-test")
	t.Cleanup(func() { tracer.Shutdown(context.Background()) })
	return recorder
}

func TestNewTracer_None(t *testing.T) {
	tracer, err := NewTracer(context.Background(), config.TracingConfig{Exporter: ExporterNone}, "catalog")
	require.NoError(t, err)
	assert.NoError(t, tracer.Shutdown(context.Background()))

	_, err = NewTracer(context.Background(), config.TracingConfig{Exporter: "zipkin"}, "catalog")
	assert.Error(t, err)
}

func TestStartSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "job catalog:import_shows", JobAttrs("catalog:import_shows", "default")...)
	EndSpan(span, errors.New("feed down"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "job catalog:import_shows", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)
}

func TestFiberMiddleware(t *testing.T) {
	recorder := recordSpans(t)

	app := fiber.New()
	app.Use(FiberMiddleware())
	app.Get("/movies/:id", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/movies/7", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	_, err := app.Test(req)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /movies/:id", spans[0].Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}
