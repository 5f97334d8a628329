package middleware

import (
	"context"
	"fmt"
	"time"

	"socially/internal/models"
	"socially/internal/observability"

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

// CodeRateLimited is returned in the error envelope when a client is throttled.
const CodeRateLimited = "RATE_LIMITED"

// CheckRateLimit reports whether id may perform another request against
// resource within window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("rate_limit").Inc()
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// RateLimit returns a Fiber middleware enforcing limit requests per window,
// keyed by the resolved user id or else the remote IP. Redis failures fail
// open. When enforce is false every request passes, as outside production.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, enforce bool, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, enforce, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, enforce bool, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !enforce {
			return c.Next()
		}
		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			id = "user:" + uid
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
					"resource", resource, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Error: "Rate limit unavailable",
					Code:  models.CodeOperationFailed,
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Rate limit exceeded",
				Code:  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
