// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const userIDLocal = "user_id"

// UserContextMiddleware extracts the user identity set by the Gateway.
// Requests without X-User-ID never reach the progress handlers.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			authRejections.WithLabelValues("missing_user_id").Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthenticated",
				"cause": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}

		// Attach to ctx for handlers
		c.Locals(userIDLocal, userID)
		c.Locals("user_roles", roles)
		return c.Next()
	}
}

// UserID returns the identity attached by UserContextMiddleware, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
