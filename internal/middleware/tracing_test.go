package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bulletin/internal/models"
	"bulletin/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = previous
		_ = tp.Shutdown(t.Context())
	})
	return recorder
}

func spanStatusCode(span sdktrace.ReadOnlySpan) int64 {
	for _, kv := range span.Attributes() {
		if kv.Key == attribute.Key("http.status_code") {
			return kv.Value.AsInt64()
		}
	}
	return 0
}

func TestTracingMiddleware(t *testing.T) {
	recorder := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/invalid", func(*fiber.Ctx) error {
		return models.NewValidationError(nil, errors.New("bad id"))
	})
	app.Get("/broken", func(*fiber.Ctx) error { return errors.New("connection refused") })

	for _, path := range []string{"/ok", "/invalid", "/broken"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		if path == "/ok" {
			assert.Len(t, resp.Header.Get("X-Trace-ID"), 32)
		}
	}

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "GET /ok", spans[0].Name())
	assert.Equal(t, int64(http.StatusOK), spanStatusCode(spans[0]))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, int64(http.StatusBadRequest), spanStatusCode(spans[1]))
	assert.Equal(t, codes.Unset, spans[1].Status().Code, "client errors do not fail the span")

	assert.Equal(t, int64(http.StatusInternalServerError), spanStatusCode(spans[2]))
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, "connection refused", spans[2].Status().Description)
}
