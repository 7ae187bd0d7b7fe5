package handlers

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"simplekanban/internal/store"
)

// BoardHandler serves the REST board listing surface; all realtime
// mutation happens over the board WebSocket.
type BoardHandler struct {
	store *store.Store
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(s *store.Store) *BoardHandler {
	return &BoardHandler{store: s}
}

// CreateBoardRequest is the request body for board creation
type CreateBoardRequest struct {
	BoardTitle        string `json:"board_title"`
	MessagesAllowed   *bool  `json:"messages_allowed"`
	NewMembersAllowed *bool  `json:"new_members_allowed"`
}

// List returns the boards the authenticated user belongs to
// GET /api/boards
func (h *BoardHandler) List(c *fiber.Ctx) error {
	userSlug := c.Locals("user_slug").(string)

	boards, err := h.store.ListBoards(context.Background(), userSlug)
	if err != nil {
		log.Printf("❌ Failed to list boards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list boards",
		})
	}
	return c.JSON(fiber.Map{"boards": boards})
}

// Create creates a board with the authenticated user as ADMIN
// POST /api/boards
func (h *BoardHandler) Create(c *fiber.Ctx) error {
	userSlug := c.Locals("user_slug").(string)

	var req CreateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.BoardTitle = strings.TrimSpace(req.BoardTitle)
	if req.BoardTitle == "" || len(req.BoardTitle) > 255 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "board_title is required and must be at most 255 chars",
		})
	}

	messagesAllowed := true
	if req.MessagesAllowed != nil {
		messagesAllowed = *req.MessagesAllowed
	}
	newMembersAllowed := true
	if req.NewMembersAllowed != nil {
		newMembersAllowed = *req.NewMembersAllowed
	}

	board, err := h.store.CreateBoard(context.Background(), req.BoardTitle, userSlug, messagesAllowed, newMembersAllowed)
	if err != nil {
		log.Printf("❌ Failed to create board: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create board",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(board)
}
