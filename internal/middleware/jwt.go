package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/casedesk-api/internal/auth"
	"github.com/noah-isme/casedesk-api/internal/utils"
)

const identityLocalKey = "identity"

// Authenticate verifies the bearer token on the request and binds the caller's identity.
func Authenticate(verifier auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.BearerToken("", c.Get(fiber.HeaderAuthorization))
		if token == "" || verifier == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		identity, err := verifier.Verify(token)
		if err != nil || identity.ID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		if identity.FullName == "" {
			identity.FullName = auth.DefaultFullName
		}

		c.Locals(identityLocalKey, identity)
		c.Locals("user_id", identity.ID)
		if identity.Role != "" {
			c.Locals("user_role", identity.Role)
		}
		c.Locals("user_name", identity.FullName)

		return c.Next()
	}
}

// IdentityFromContext returns the identity bound by Authenticate.
func IdentityFromContext(c *fiber.Ctx) (auth.Identity, bool) {
	identity, ok := c.Locals(identityLocalKey).(auth.Identity)
	return identity, ok && identity.ID != ""
}
