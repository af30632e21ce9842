// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"progress-engine/utils"
)

// GatewayAuthMiddleware validates the Bearer token from the Gateway.
// Paths in skip (e.g. /healthz) pass through unauthenticated.
func GatewayAuthMiddleware(expectedToken string, log *utils.Logger, skip ...string) fiber.Handler {
	log = log.With("middleware", "GatewayAuth")
	return func(c *fiber.Ctx) error {
		for _, p := range skip {
			if c.Path() == p {
				return c.Next()
			}
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Warn("missing Authorization header", "path", c.Path())
			authRejections.WithLabelValues("missing_gateway_token").Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// Accept "Bearer <token>" or the raw token.
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Warn("invalid gateway token", "path", c.Path())
			authRejections.WithLabelValues("invalid_gateway_token").Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
