package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/fahad-m/CarRentBack/internal/services"
)

type bookingApplicationService interface {
	CreateBooking(ctx context.Context, renterID string, input services.CreateBookingInput) (*models.Booking, error)
	ListPendingForOwner(ctx context.Context, ownerID string) ([]models.BookingDetail, error)
	UpdateBookingStatus(ctx context.Context, ownerID, bookingID, requestedStatus string) (*models.Booking, error)
	ListNotifications(ctx context.Context, userID string, page, limit int) ([]models.BookingNotificationDetail, int, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

type BookingHandler struct {
	service bookingApplicationService
}

func NewBookingHandler(service bookingApplicationService) *BookingHandler {
	return &BookingHandler{service: service}
}

type createBookingRequest struct {
	CarID          int64   `json:"car_id"`
	RenterName     string  `json:"renter_name"`
	RenterMobile   string  `json:"renter_mobile"`
	RenterEmail    string  `json:"renter_email"`
	PickupDate     string  `json:"pickup_date"`
	ReturnDate     string  `json:"return_date"`
	TotalAmount    float64 `json:"total_amount"`
	MessageToOwner *string `json:"message_to_owner"`
}

type updateBookingStatusRequest struct {
	Status string `json:"status"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	pickupDate, err := time.Parse("2006-01-02", req.PickupDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid pickup date"})
	}
	returnDate, err := time.Parse("2006-01-02", req.ReturnDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid return date"})
	}

	booking, err := h.service.CreateBooking(c.Context(), userID, services.CreateBookingInput{
		CarID:          req.CarID,
		RenterName:     req.RenterName,
		RenterMobile:   req.RenterMobile,
		RenterEmail:    req.RenterEmail,
		PickupDate:     pickupDate,
		ReturnDate:     returnDate,
		TotalAmount:    req.TotalAmount,
		MessageToOwner: req.MessageToOwner,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) ListPending(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookings, err := h.service.ListPendingForOwner(c.Context(), userID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"bookings": bookings})
}

func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	bookingID := strings.TrimSpace(c.Params("id"))
	if bookingID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req updateBookingStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.UpdateBookingStatus(c.Context(), userID, bookingID, req.Status)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) ListNotifications(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	notifications, total, err := h.service.ListNotifications(c.Context(), userID, page, limit)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"pagination":    buildPaginationMeta(page, limit, total),
	})
}

func (h *BookingHandler) MarkNotificationRead(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	notificationID := strings.TrimSpace(c.Params("id"))
	if notificationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification id"})
	}

	if err := h.service.MarkNotificationRead(c.Context(), userID, notificationID); err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Booking is no longer pending"})
	case errors.Is(err, services.ErrCarNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Car not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
