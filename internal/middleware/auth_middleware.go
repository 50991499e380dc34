package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates the JWT and stores user id and role in the request
// context for downstream handlers.
func AuthMiddleware(c *fiber.Ctx) error {
	claims, err := parseClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	userID, userExists := claims["user_id"].(string)
	role, roleExists := claims["role"].(string)
	if !userExists || !roleExists {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token payload"})
	}

	c.Locals("user_id", userID)
	c.Locals("role", role)

	return c.Next()
}
