package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"simplekanban/pkg/auth"
)

// AuthMiddleware verifies JWT tokens on REST endpoints.
// Supports both Authorization header and query parameter (for WebSocket connections)
func AuthMiddleware(jwtAuth *auth.LocalJWTAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to extract token from multiple sources
		var token string

		// 1. Try Authorization header first
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			extractedToken, err := auth.ExtractToken(authHeader)
			if err == nil {
				token = extractedToken
			}
		}

		// 2. Try query parameter (for WebSocket connections)
		if token == "" {
			token = c.Query("auth_token")
		}

		// No token found
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization token",
			})
		}

		// Verify JWT token
		user, err := jwtAuth.VerifyAccessToken(token)
		if err != nil {
			log.Printf("❌ Auth failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		// Store user info in context
		c.Locals("user_slug", user.UserSlug)
		c.Locals("user_email", user.Email)

		return c.Next()
	}
}

// BoardSocketMiddleware prepares a board WebSocket upgrade. The
// client_ip query parameter is required; without it the command
// throttle would key on an empty client. It also stashes the optional
// invite_token for redemption after the upgrade completes.
func BoardSocketMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientIP := c.Query("client_ip")
		if clientIP == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing client_ip",
			})
		}

		c.Locals("client_ip", clientIP)
		c.Locals("invite_token", c.Query("invite_token"))
		return c.Next()
	}
}
