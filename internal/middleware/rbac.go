package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/casedesk-api/internal/utils"
)

// RequireRole admits callers whose authenticated role is one of roles.
// It must run after Authenticate; a request without an identity is 401.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := normalizeRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role, ok := callerRole(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		if _, permitted := allowed[role]; !permitted {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func callerRole(c *fiber.Ctx) (string, bool) {
	if identity, ok := IdentityFromContext(c); ok {
		return normalizeRole(identity.Role), true
	}
	if role, ok := c.Locals("user_role").(string); ok {
		return normalizeRole(role), true
	}
	return "", false
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
