package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"simplekanban/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	broadcaster services.Broadcaster
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(broadcaster services.Broadcaster) *HealthHandler {
	return &HealthHandler{broadcaster: broadcaster}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"connections": h.broadcaster.Count(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
