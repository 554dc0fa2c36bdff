package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("bypassed environments", func(t *testing.T) {
		for _, env := range []string{"", "test", "development", "stress"} {
			allowed, err := CheckRateLimit(ctx, nil, env, "res", "ip:1", 1, time.Minute)
			assert.NoError(t, err, env)
			assert.True(t, allowed, env)
		}
	})

	t.Run("nil redis in production", func(t *testing.T) {
		allowed, err := CheckRateLimit(ctx, nil, "production", "res", "ip:1", 1, time.Minute)
		assert.ErrorIs(t, err, ErrNoRedis)
		assert.False(t, allowed)
	})

	t.Run("counts within the window", func(t *testing.T) {
		mr, rdb := setupMiniredis(t)

		for i := 0; i < 3; i++ {
			allowed, err := CheckRateLimit(ctx, rdb, "production", "password", "ip:1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d", i+1)
		}
		allowed, err := CheckRateLimit(ctx, rdb, "production", "password", "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		assert.Equal(t, time.Minute, mr.TTL("rl:password:ip:1"))

		other, err := CheckRateLimit(ctx, rdb, "production", "password", "ip:2", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, other)

		mr.FastForward(time.Minute + time.Second)
		allowed, err = CheckRateLimit(ctx, rdb, "production", "password", "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	t.Run("bypass in test mode", func(t *testing.T) {
		app := fiber.New()
		app.Post("/check", RateLimit(nil, "test", 1, time.Minute, FailClosed), ok)

		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/check", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			_ = resp.Body.Close()
		}
	})

	t.Run("fail open with nil redis in production", func(t *testing.T) {
		app := fiber.New()
		app.Post("/check", RateLimit(nil, "production", 1, time.Minute, FailOpen), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/check", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("fail closed with nil redis in production", func(t *testing.T) {
		app := fiber.New()
		app.Post("/check", RateLimit(nil, "production", 1, time.Minute, FailClosed), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/check", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("rejects over the limit", func(t *testing.T) {
		_, rdb := setupMiniredis(t)
		app := fiber.New()
		app.Post("/check", RateLimit(rdb, "production", 2, time.Minute, FailOpen, "board-password"), ok)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/check", nil))
			require.NoError(t, err)
			codes = append(codes, resp.StatusCode)
			_ = resp.Body.Close()
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("redis outage", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{
			Addr:        mr.Addr(),
			MaxRetries:  -1,
			DialTimeout: 100 * time.Millisecond,
		})
		t.Cleanup(func() { _ = rdb.Close() })
		mr.Close()

		for policy, want := range map[FailPolicy]int{
			FailOpen:   http.StatusOK,
			FailClosed: http.StatusServiceUnavailable,
		} {
			app := fiber.New()
			app.Post("/check", RateLimit(rdb, "production", 1, time.Minute, policy), ok)

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/check", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, want, resp.StatusCode)
			_ = resp.Body.Close()
		}
	})
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, FailOpen, PolicyFor(false))
	assert.Equal(t, FailClosed, PolicyFor(true))
}
