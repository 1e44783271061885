package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/astacala/rescue-api/internal/models"
	"github.com/astacala/rescue-api/internal/utils"
)

// Auth role constants used by WithAuth helper.
const (
	AuthRoleAny       = "ANY"
	AuthRoleStaff     = "STAFF"
	AuthRoleAdmin     = models.RoleAdmin
	AuthRoleVolunteer = models.RoleVolunteer
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with basic authentication/authorization guards.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToUpper(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser
	if !requireUser && role != AuthRoleAny {
		requireUser = true
	}

	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id")
		if requireUser && userID == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, utils.CodeAuthRequired, "authentication required")
		}

		if role == AuthRoleAny {
			return handler(c)
		}

		currentRole := normalizeRoleValue(c.Locals("user_role"))
		switch role {
		case AuthRoleStaff:
			if !models.IsStaffRole(currentRole) {
				return utils.SendError(c, fiber.StatusForbidden, utils.CodeForbidden, "insufficient permissions")
			}
		default:
			if currentRole != role {
				return utils.SendError(c, fiber.StatusForbidden, utils.CodeForbidden, "insufficient permissions")
			}
		}

		return handler(c)
	}
}
