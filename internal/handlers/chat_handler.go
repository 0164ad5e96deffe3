package handlers

import (
	"context"
	"errors"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/fahad-m/CarRentBack/internal/changefeed"
	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/fahad-m/CarRentBack/internal/services"
	chatws "github.com/fahad-m/CarRentBack/internal/websocket"
	"github.com/fahad-m/CarRentBack/pkg/utils"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	StartConversation(ctx context.Context, renterID, ownerID string, carID int64) (*models.Conversation, error)
	FetchHistory(ctx context.Context, userID, conversationID string) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, userID, conversationID, content string) (*models.ChatMessage, error)
	MarkRead(ctx context.Context, userID string, messageIDs []string) error
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	feed      *changefeed.Broker
	jwtSecret string
	log       logrus.FieldLogger
}

type startConversationRequest struct {
	OwnerID string `json:"owner_id"`
	CarID   int64  `json:"car_id"`
}

func NewChatHandler(
	service chatApplicationService,
	hub *chatws.Hub,
	feed *changefeed.Broker,
	jwtSecret string,
	log logrus.FieldLogger,
) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		feed:      feed,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversations(c.Context(), userID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) StartConversation(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req startConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.StartConversation(c.Context(), userID, req.OwnerID, req.CarID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

// GetMessages returns the full ascending history. Messages addressed to the
// viewer are marked read as a side effect; a failure there only logs, the
// history is still served.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID := strings.TrimSpace(c.Params("id"))
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	messages, err := h.service.FetchHistory(c.Context(), userID, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	var unreadIDs []string
	for i := range messages {
		if messages[i].SenderID != userID && !messages[i].IsRead {
			unreadIDs = append(unreadIDs, messages[i].ID)
		}
	}
	if len(unreadIDs) > 0 {
		if err := h.service.MarkRead(c.Context(), userID, unreadIDs); err != nil {
			h.log.WithError(err).WithField("conversation_id", conversationID).
				Warn("failed to mark messages read")
		}
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	client := chatws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service, h.feed, h.log)
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, services.ErrCarNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Car not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
