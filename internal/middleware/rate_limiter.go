package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"mediacatalog/internal/utils"
)

// NewRateLimiter limits each client IP to perMinute requests per minute
func NewRateLimiter(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendErrorResponse(c, fiber.StatusTooManyRequests,
				"Rate limit exceeded", "Too many requests. Please try again later.")
		},
	})
}
