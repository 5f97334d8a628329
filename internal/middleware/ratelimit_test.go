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

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimit_NotEnforced(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	app := fiber.New()
	app.Post("/posts", RateLimit(nil, 1, time.Minute, false, "posts"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/posts", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}
}

func TestRateLimit_EnforcedRegardlessOfProcessEnv(t *testing.T) {
	// Production mode can come from config.yml alone; APP_ENV may be unset.
	t.Setenv("APP_ENV", "")
	_, rdb := newTestRedis(t)

	app := fiber.New()
	app.Post("/posts", RateLimit(rdb, 1, time.Minute, true, "posts"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCheckRateLimit_NilRedis(t *testing.T) {
	allowed, err := CheckRateLimit(context.Background(), nil, "posts", "user:1", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestCheckRateLimit_CountsWithinWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "posts", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := CheckRateLimit(ctx, rdb, "posts", "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, mr.TTL("rl:posts:user:1"))

	mr.FastForward(time.Minute + time.Second)
	allowed, err = CheckRateLimit(ctx, rdb, "posts", "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimit_Middleware(t *testing.T) {
	_, rdb := newTestRedis(t)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", "u1")
		return c.Next()
	})
	app.Post("/posts", RateLimit(rdb, 1, time.Minute, true, "posts"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitWithPolicy_FailClosed(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	app := fiber.New()
	app.Post("/closed", RateLimitWithPolicy(rdb, 5, time.Minute, true, FailClosed), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/open", RateLimit(rdb, 5, time.Minute, true), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/closed", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/open", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
