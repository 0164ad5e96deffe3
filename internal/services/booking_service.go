package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/fahad-m/CarRentBack/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type bookingStore interface {
	Create(ctx context.Context, input repository.CreateBookingInput) (*models.Booking, error)
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	ListPendingForOwner(ctx context.Context, ownerID string) ([]models.BookingDetail, error)
	UpdateStatusIfCurrent(ctx context.Context, bookingID, currentStatus, nextStatus string) (*models.Booking, error)
}

type notificationStore interface {
	Create(ctx context.Context, userID, bookingID, message string) (*models.BookingNotification, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.BookingNotificationDetail, int, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
}

// BookingService handles the booking-request flow and its notification
// stream. The stream is deliberately not wired to the change feed: screens
// showing it refresh by explicit re-fetch after mutations.
type BookingService struct {
	bookings      bookingStore
	notifications notificationStore
	cars          carReader
	log           logrus.FieldLogger
}

func NewBookingService(
	bookings bookingStore,
	notifications notificationStore,
	cars carReader,
	log logrus.FieldLogger,
) *BookingService {
	return &BookingService{
		bookings:      bookings,
		notifications: notifications,
		cars:          cars,
		log:           log,
	}
}

type CreateBookingInput struct {
	CarID          int64
	RenterName     string
	RenterMobile   string
	RenterEmail    string
	PickupDate     time.Time
	ReturnDate     time.Time
	TotalAmount    float64
	MessageToOwner *string
}

// CreateBooking records a pending booking request and notifies the car's
// owner. The notification is a second, best-effort write; a failure there
// is logged and the booking stands.
func (s *BookingService) CreateBooking(
	ctx context.Context,
	renterID string,
	input CreateBookingInput,
) (*models.Booking, error) {
	if input.CarID <= 0 || input.TotalAmount < 0 {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.RenterName) == "" ||
		strings.TrimSpace(input.RenterMobile) == "" ||
		strings.TrimSpace(input.RenterEmail) == "" {
		return nil, ErrInvalidInput
	}
	if !input.ReturnDate.After(input.PickupDate) {
		return nil, ErrInvalidInput
	}

	car, err := s.cars.GetByID(ctx, input.CarID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	if car.OwnerID == renterID {
		return nil, ErrInvalidInput
	}

	booking, err := s.bookings.Create(ctx, repository.CreateBookingInput{
		CarID:          input.CarID,
		OwnerID:        car.OwnerID,
		RenterID:       renterID,
		RenterName:     strings.TrimSpace(input.RenterName),
		RenterMobile:   strings.TrimSpace(input.RenterMobile),
		RenterEmail:    strings.TrimSpace(input.RenterEmail),
		PickupDate:     input.PickupDate,
		ReturnDate:     input.ReturnDate,
		TotalAmount:    input.TotalAmount,
		MessageToOwner: input.MessageToOwner,
	})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("New booking request for %s from %s", car.Title, booking.RenterName)
	if _, err := s.notifications.Create(ctx, car.OwnerID, booking.ID, message); err != nil {
		s.log.WithError(err).WithField("booking_id", booking.ID).
			Warn("failed to create booking notification")
	}

	return booking, nil
}

func (s *BookingService) ListNotifications(
	ctx context.Context,
	userID string,
	page int,
	limit int,
) ([]models.BookingNotificationDetail, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}
	return s.notifications.ListForUser(ctx, userID, limit, (page-1)*limit)
}

func (s *BookingService) MarkNotificationRead(
	ctx context.Context,
	userID string,
	notificationID string,
) error {
	if notificationID == "" {
		return ErrInvalidInput
	}
	return s.notifications.MarkRead(ctx, notificationID, userID)
}

func (s *BookingService) ListPendingForOwner(
	ctx context.Context,
	ownerID string,
) ([]models.BookingDetail, error) {
	return s.bookings.ListPendingForOwner(ctx, ownerID)
}

// UpdateBookingStatus confirms or declines a pending request. Both are
// terminal: the update is guarded on status = pending, so a second
// transition fails with ErrInvalidStateTransition. The renter is notified
// of the outcome best-effort.
func (s *BookingService) UpdateBookingStatus(
	ctx context.Context,
	ownerID string,
	bookingID string,
	requestedStatus string,
) (*models.Booking, error) {
	nextStatus, err := normalizeBookingStatus(requestedStatus)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	updated, err := s.bookings.UpdateStatusIfCurrent(ctx, bookingID, "pending", nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	carTitle := fmt.Sprintf("Car ID: %d", updated.CarID)
	if car, err := s.cars.GetByID(ctx, updated.CarID); err == nil {
		carTitle = car.Title
	}
	message := fmt.Sprintf("Your booking for %s has been %s", carTitle, nextStatus)
	if _, err := s.notifications.Create(ctx, updated.RenterID, updated.ID, message); err != nil {
		s.log.WithError(err).WithField("booking_id", updated.ID).
			Warn("failed to create booking status notification")
	}

	return updated, nil
}

func normalizeBookingStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "confirm", "confirmed":
		return "confirmed", nil
	case "decline", "declined":
		return "declined", nil
	default:
		return "", ErrInvalidStatus
	}
}
