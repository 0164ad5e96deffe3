package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type unreadService interface {
	Count(ctx context.Context, userID string) (int, error)
	Badge(count int) string
}

type MailboxHandler struct {
	unread unreadService
}

func NewMailboxHandler(unread unreadService) *MailboxHandler {
	return &MailboxHandler{unread: unread}
}

func (h *MailboxHandler) GetUnread(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	count, err := h.unread.Count(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to count unread messages"})
	}

	return c.JSON(fiber.Map{
		"count": count,
		"badge": h.unread.Badge(count),
	})
}
