package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter is a Redis-backed fixed-window limiter keyed by client IP
// and route. It protects the credential endpoints from brute force; it is
// not a general quota system.
type RateLimiter struct {
	redis  *redis.Client
	logger *zap.Logger
	window time.Duration
	prefix string
}

// NewRateLimiter creates a rate limiter with the given window.
func NewRateLimiter(client *redis.Client, logger *zap.Logger, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		redis:  client,
		logger: logger,
		window: window,
		prefix: "ratelimit",
	}
}

// Limit returns a middleware allowing at most limit requests per window
// per client IP on the route it guards. If Redis is unreachable the
// request is allowed through; availability wins over strictness here.
func (rl *RateLimiter) Limit(limit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("%s:%s:%s", rl.prefix, c.Path(), c.IP())
		ctx := c.UserContext()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			rl.redis.Expire(ctx, key, rl.window)
		}

		if count > int64(limit) {
			rl.logger.Info("rate limit exceeded",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
			})
		}
		return c.Next()
	}
}
