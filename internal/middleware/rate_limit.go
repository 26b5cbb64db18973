package middleware

import (
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/adgenix/adgenix-backend/pkg/ratelimit"
)

// RateLimit guards a route group with a per-IP limiter. Denied requests get
// 429 with a Retry-After hint and no side effects.
func RateLimit(limiter ratelimit.Limiter, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, retryAfter := limiter.Check(c.IP())
		if !ok {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			log.Warn("rate limit exceeded",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
			)
			c.Set("Retry-After", fmt.Sprintf("%d", seconds))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":    false,
				"error":      "Too many requests",
				"retryAfter": seconds,
			})
		}
		return c.Next()
	}
}
