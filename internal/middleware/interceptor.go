package middleware

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"bulletin/internal/models"
	"bulletin/internal/observability"
	"bulletin/internal/timeutil"

	"github.com/gofiber/fiber/v2"
)

// Interceptor observes a request before and after route dispatch.
type Interceptor interface {
	OnRequest(c *fiber.Ctx)
	OnResponse(c *fiber.Ctx, latency time.Duration, err error)
}

// Intercept runs every interceptor around the rest of the handler chain.
// OnResponse hooks run in reverse registration order.
func Intercept(interceptors ...Interceptor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		for _, i := range interceptors {
			i.OnRequest(c)
		}

		err := c.Next()

		latency := time.Since(start)
		for idx := len(interceptors) - 1; idx >= 0; idx-- {
			interceptors[idx].OnResponse(c, latency, err)
		}
		return err
	}
}

// ResponseStatus returns the status the client will receive for a handler
// result. Returned errors are rendered by the app's ErrorHandler after the
// middleware chain unwinds, so their status is read from the error itself.
func ResponseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// RequestLogger logs every request and its response with the context-aware
// logger. Health probes are never logged.
type RequestLogger struct {
	Enabled bool
	Logger  *slog.Logger
}

// NewRequestLogger returns a RequestLogger writing to the global logger.
func NewRequestLogger(enabled bool) *RequestLogger {
	return &RequestLogger{Enabled: enabled}
}

func (l *RequestLogger) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return observability.GlobalLogger.Logger
}

func (l *RequestLogger) skip(c *fiber.Ctx) bool {
	return !l.Enabled || strings.HasPrefix(c.Path(), "/health")
}

func (l *RequestLogger) OnRequest(c *fiber.Ctx) {
	if l.skip(c) {
		return
	}
	l.logger().InfoContext(c.UserContext(), "incoming request",
		slog.String("method", c.Method()),
		slog.String("url", c.OriginalURL()),
		slog.String("ip", c.IP()),
		slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
	)
}

func (l *RequestLogger) OnResponse(c *fiber.Ctx, latency time.Duration, err error) {
	if l.skip(c) {
		return
	}

	status := ResponseStatus(c, err)
	fields := []any{
		slog.String("method", c.Method()),
		slog.String("url", c.OriginalURL()),
		slog.Int("status", status),
		slog.String("response_time", timeutil.FormatDuration(latency)),
	}
	if err != nil {
		fields = append(fields, slog.String("error", err.Error()))
	}

	switch {
	case status >= fiber.StatusInternalServerError:
		l.logger().ErrorContext(c.UserContext(), "request failed", fields...)
	case status >= fiber.StatusBadRequest:
		l.logger().WarnContext(c.UserContext(), "request completed", fields...)
	default:
		l.logger().InfoContext(c.UserContext(), "request completed", fields...)
	}
}
