package utils

import "github.com/gofiber/fiber/v2"

// Fail writes the structured error body every denial and failure path uses:
// a stable success:false discriminant, a code-like error string, and an
// optional human-readable message.
func Fail(c *fiber.Ctx, status int, errCode string, message ...string) error {
	body := fiber.Map{
		"success": false,
		"error":   errCode,
	}
	if len(message) > 0 && message[0] != "" {
		body["message"] = message[0]
	}
	return c.Status(status).JSON(body)
}
