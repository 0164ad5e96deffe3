package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type stubUnreadService struct {
	count int
	badge string
}

func (s *stubUnreadService) Count(_ context.Context, _ string) (int, error) {
	return s.count, nil
}

func (s *stubUnreadService) Badge(_ int) string {
	return s.badge
}

func TestGetUnreadReturnsCountAndBadge(t *testing.T) {
	handler := NewMailboxHandler(&stubUnreadService{count: 12, badge: "9+"})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "viewer")
		return c.Next()
	})
	app.Get("/api/v1/mailbox/unread", handler.GetUnread)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/mailbox/unread", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Count int    `json:"count"`
		Badge string `json:"badge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Count != 12 || body.Badge != "9+" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
