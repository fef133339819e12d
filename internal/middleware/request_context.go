package middleware

import (
	"github.com/gofiber/fiber/v2"

	"mediacatalog/internal/logging"
)

// RequestContext copies the request id set by the requestid middleware into
// the user context, so repository and handler logs carry req_id.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if reqID, ok := c.Locals("requestid").(string); ok && reqID != "" {
			c.SetUserContext(logging.ContextWithRequestID(c.UserContext(), reqID))
		}
		return c.Next()
	}
}
