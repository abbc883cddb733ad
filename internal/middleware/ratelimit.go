package middleware

import (
	"strconv"

	"estate-cms/internal/common/models"
	"estate-cms/internal/config"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitMiddleware throttles per principal, falling back to the client IP
// for unauthenticated requests. Not part of the authorization decision, but
// composed in the same chain ahead of the business handler.
func RateLimitMiddleware(cfg *config.Config) fiber.Handler {
	retryAfter := strconv.Itoa(int(cfg.RateLimitWindow.Seconds()))

	return limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			if user, ok := c.Locals(models.PrincipalKey).(*models.User); ok && user != nil {
				return "user:" + user.ID.Hex()
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return utils.Fail(c, fiber.StatusTooManyRequests, "Rate limit exceeded", "Too many requests, retry later")
		},
	})
}
