package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bulletin/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// ErrNoRedis is returned by CheckRateLimit when no Redis client is configured.
var ErrNoRedis = errors.New("redis client is nil")

// Limiter counts requests per resource and client in Redis.
type Limiter struct {
	Redis  *redis.Client
	Env    string
	Limit  int
	Window time.Duration
	Policy FailPolicy
}

// Bypassed reports whether limiting is disabled for env so local and test
// workflows are not throttled.
func Bypassed(env string) bool {
	switch env {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit checks if a resource has exceeded its rate limit.
// Returns true if allowed, false if limit exceeded.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, env, resource, id string, limit int, window time.Duration) (bool, error) {
	if Bypassed(env) {
		return true, nil
	}
	if rdb == nil {
		return false, ErrNoRedis
	}

	ctx, span := observability.StartRedisSpan(ctx, "incr")
	defer span.End()

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	// INCR and set EXPIRE if new
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			span.RecordError(err)
		}
	}
	return cnt <= int64(limit), nil
}

// RateLimit returns a Fiber middleware enforcing limit requests per window
// per client IP. policy decides what happens when Redis cannot be reached.
func RateLimit(rdb *redis.Client, env string, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return Limiter{Redis: rdb, Env: env, Limit: limit, Window: window, Policy: policy}.Handler(name...)
}

// PolicyFor maps the fail-closed switch from configuration to a FailPolicy.
func PolicyFor(failClosed bool) FailPolicy {
	if failClosed {
		return FailClosed
	}
	return FailOpen
}

// Handler builds the middleware. The resource defaults to the request path.
func (l Limiter) Handler(name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}
		id := "ip:" + c.IP()

		allowed, err := CheckRateLimit(c.UserContext(), l.Redis, l.Env, resource, id, l.Limit, l.Window)
		if err != nil {
			if l.Policy == FailClosed {
				observability.GlobalLogger.WarnContext(c.UserContext(), "rate limit fail-closed",
					slog.String("path", c.Path()),
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"statusCode": fiber.StatusServiceUnavailable,
					"error":      "Service Unavailable",
					"message":    "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			observability.RateLimitRejections.WithLabelValues(resource).Inc()
			observability.LogSecurity(c.UserContext(), "rate_limit_exceeded",
				slog.String("resource", resource),
				slog.String("ip", c.IP()),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"statusCode": fiber.StatusTooManyRequests,
				"error":      "Too Many Requests",
				"message":    "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
