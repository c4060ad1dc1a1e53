package adminapi

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// localsAdminUser is the fiber.Ctx Locals key holding the authenticated admin
const localsAdminUser = "admin_user"

// Authenticator checks admin credentials
type Authenticator interface {
	Authenticate(username, password string) bool
}

// authMiddleware requires HTTP Basic authentication for all admin API routes
// and stores the authenticated username in the request locals.
func authMiddleware(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, password, ok := parseBasicAuth(c)
		if !ok {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm=admin")
			return c.Status(fiber.StatusUnauthorized).JSON(
				ErrorResponse{
					Error:            ErrorCodeInvalidClient,
					ErrorDescription: "missing credentials",
				},
			)
		}
		if !auth.Authenticate(username, password) {
			log.WithField("username", username).Warn("admin api authentication failed")
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm=admin")
			return c.Status(fiber.StatusUnauthorized).JSON(
				ErrorResponse{
					Error:            ErrorCodeInvalidClient,
					ErrorDescription: "invalid credentials",
				},
			)
		}
		c.Locals(localsAdminUser, username)
		return c.Next()
	}
}

// adminUser returns the authenticated admin of the request
func adminUser(c *fiber.Ctx) string {
	if u, ok := c.Locals(localsAdminUser).(string); ok {
		return u
	}
	return "admin"
}

// parseBasicAuth extracts Basic auth credentials from request headers
func parseBasicAuth(c *fiber.Ctx) (username, password string, ok bool) {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth == "" {
		return "", "", false
	}
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return "", "", false
	}
	b, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(b), ":")
}
