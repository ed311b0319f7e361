package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/QuizFox/internal/pkg/usercontext"
)

// RequireAdmin only lets authenticated admins through. It must run after
// APIKeyAuthMiddleware.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Authentication required"})
	}
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
	}
	return c.Next()
}
