package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/fahad-m/CarRentBack/internal/services"
)

type stubBookingService struct {
	createResult *models.Booking
	createErr    error
	updateResult *models.Booking
	updateErr    error
	pending      []models.BookingDetail

	notificationsResult []models.BookingNotificationDetail
	notificationsTotal  int
	markReadErr         error

	lastRenterID  string
	lastInput     services.CreateBookingInput
	lastBookingID string
	lastStatus    string
	lastPage      int
	lastLimit     int
}

func (s *stubBookingService) CreateBooking(_ context.Context, renterID string, input services.CreateBookingInput) (*models.Booking, error) {
	s.lastRenterID = renterID
	s.lastInput = input
	return s.createResult, s.createErr
}

func (s *stubBookingService) ListPendingForOwner(_ context.Context, _ string) ([]models.BookingDetail, error) {
	return s.pending, nil
}

func (s *stubBookingService) UpdateBookingStatus(_ context.Context, _, bookingID, requestedStatus string) (*models.Booking, error) {
	s.lastBookingID = bookingID
	s.lastStatus = requestedStatus
	return s.updateResult, s.updateErr
}

func (s *stubBookingService) ListNotifications(_ context.Context, _ string, page, limit int) ([]models.BookingNotificationDetail, int, error) {
	s.lastPage = page
	s.lastLimit = limit
	return s.notificationsResult, s.notificationsTotal, nil
}

func (s *stubBookingService) MarkNotificationRead(_ context.Context, _, _ string) error {
	return s.markReadErr
}

func newBookingTestApp(service *stubBookingService) *fiber.App {
	handler := NewBookingHandler(service)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "viewer")
		return c.Next()
	})
	app.Post("/api/v1/bookings", handler.CreateBooking)
	app.Get("/api/v1/bookings/pending", handler.ListPending)
	app.Put("/api/v1/bookings/:id/status", handler.UpdateStatus)
	app.Get("/api/v1/notifications", handler.ListNotifications)
	app.Post("/api/v1/notifications/:id/read", handler.MarkNotificationRead)
	return app
}

func TestCreateBookingParsesDates(t *testing.T) {
	service := &stubBookingService{
		createResult: &models.Booking{ID: "b1", Status: "pending"},
	}
	app := newBookingTestApp(service)

	payload := `{
		"car_id": 5,
		"renter_name": "Sam",
		"renter_mobile": "0400000000",
		"renter_email": "sam@example.com",
		"pickup_date": "2026-05-01",
		"return_date": "2026-05-03",
		"total_amount": 180
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastRenterID != "viewer" || service.lastInput.CarID != 5 {
		t.Fatalf("unexpected forwarded input: %q %+v", service.lastRenterID, service.lastInput)
	}
	if service.lastInput.PickupDate.Format("2006-01-02") != "2026-05-01" {
		t.Fatalf("unexpected pickup date: %v", service.lastInput.PickupDate)
	}
}

func TestCreateBookingRejectsBadDate(t *testing.T) {
	app := newBookingTestApp(&stubBookingService{})

	payload := `{"car_id":5,"pickup_date":"01/05/2026","return_date":"2026-05-03"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateStatusMapsDecidedBookingTo422(t *testing.T) {
	service := &stubBookingService{updateErr: services.ErrInvalidStateTransition}
	app := newBookingTestApp(service)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/bookings/b1/status", strings.NewReader(`{"status":"confirm"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if service.lastBookingID != "b1" || service.lastStatus != "confirm" {
		t.Fatalf("unexpected forwarded args: %q %q", service.lastBookingID, service.lastStatus)
	}
}

func TestListNotificationsReturnsPagination(t *testing.T) {
	service := &stubBookingService{
		notificationsResult: []models.BookingNotificationDetail{
			{BookingNotification: models.BookingNotification{ID: "n1", UserID: "viewer", Message: "New booking request"}},
		},
		notificationsTotal: 12,
	}
	app := newBookingTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?page=2&limit=5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPage != 2 || service.lastLimit != 5 {
		t.Fatalf("unexpected forwarded paging: page=%d limit=%d", service.lastPage, service.lastLimit)
	}

	var body struct {
		Notifications []models.BookingNotificationDetail `json:"notifications"`
		Pagination    models.PaginationMeta              `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Notifications) != 1 || body.Pagination.Total != 12 || body.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected response body: %+v %+v", body.Notifications, body.Pagination)
	}
}

func TestMarkNotificationReadReturnsOK(t *testing.T) {
	app := newBookingTestApp(&stubBookingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/n1/read", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
