package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/paddymap/paddymap/internal/pkg/logging"
)

// RequestIDLogMiddleware stores a logger carrying the request ID in the
// request's user context, where services pick it up via logging.FromContext.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			return c.Next()
		}

		reqLogger := slog.Default().With("request_id", rid)
		c.SetUserContext(logging.WithLogger(c.UserContext(), reqLogger))

		return c.Next()
	}
}
