package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/fahad-m/CarRentBack/internal/repository"
)

type stubBookings struct {
	created *models.Booking
	byID    *models.Booking
	pending []models.BookingDetail

	updateResult *models.Booking
	updateErr    error

	lastCurrentStatus string
	lastNextStatus    string
}

func (s *stubBookings) Create(_ context.Context, input repository.CreateBookingInput) (*models.Booking, error) {
	s.created = &models.Booking{
		ID:             "b1",
		CarID:          input.CarID,
		OwnerID:        input.OwnerID,
		RenterID:       input.RenterID,
		RenterName:     input.RenterName,
		RenterMobile:   input.RenterMobile,
		RenterEmail:    input.RenterEmail,
		PickupDate:     input.PickupDate,
		ReturnDate:     input.ReturnDate,
		TotalAmount:    input.TotalAmount,
		Status:         "pending",
		MessageToOwner: input.MessageToOwner,
	}
	return s.created, nil
}

func (s *stubBookings) GetByID(_ context.Context, _ string) (*models.Booking, error) {
	if s.byID == nil {
		return nil, pgx.ErrNoRows
	}
	return s.byID, nil
}

func (s *stubBookings) ListPendingForOwner(_ context.Context, _ string) ([]models.BookingDetail, error) {
	return s.pending, nil
}

func (s *stubBookings) UpdateStatusIfCurrent(_ context.Context, _, currentStatus, nextStatus string) (*models.Booking, error) {
	s.lastCurrentStatus = currentStatus
	s.lastNextStatus = nextStatus
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.updateResult, nil
}

type stubNotifications struct {
	created   []models.BookingNotification
	createErr error

	lastLimit  int
	lastOffset int
}

func (s *stubNotifications) Create(_ context.Context, userID, bookingID, message string) (*models.BookingNotification, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	notification := models.BookingNotification{
		ID:        "n1",
		BookingID: bookingID,
		UserID:    userID,
		Message:   message,
	}
	s.created = append(s.created, notification)
	return &notification, nil
}

func (s *stubNotifications) ListForUser(_ context.Context, _ string, limit, offset int) ([]models.BookingNotificationDetail, int, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	return nil, 0, nil
}

func (s *stubNotifications) MarkRead(_ context.Context, _, _ string) error {
	return nil
}

func validBookingInput() CreateBookingInput {
	return CreateBookingInput{
		CarID:        5,
		RenterName:   "Sam",
		RenterMobile: "0400000000",
		RenterEmail:  "sam@example.com",
		PickupDate:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		ReturnDate:   time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		TotalAmount:  180,
	}
}

func newBookingServiceForTest(bookings *stubBookings, notifications *stubNotifications) *BookingService {
	cars := &stubCars{byID: map[int64]*models.Car{
		5: {ID: 5, OwnerID: "owner", Title: "Blue Hatchback"},
	}}
	return NewBookingService(bookings, notifications, cars, testLogger())
}

func TestCreateBookingNotifiesOwner(t *testing.T) {
	bookings := &stubBookings{}
	notifications := &stubNotifications{}
	service := newBookingServiceForTest(bookings, notifications)

	booking, err := service.CreateBooking(context.Background(), "renter", validBookingInput())
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if booking.Status != "pending" || booking.OwnerID != "owner" {
		t.Fatalf("unexpected booking: %+v", booking)
	}

	if len(notifications.created) != 1 {
		t.Fatalf("expected owner notification, got %d", len(notifications.created))
	}
	if notifications.created[0].UserID != "owner" {
		t.Fatalf("notification addressed to %q", notifications.created[0].UserID)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	service := newBookingServiceForTest(&stubBookings{}, &stubNotifications{})

	input := validBookingInput()
	input.RenterName = "  "
	if _, err := service.CreateBooking(context.Background(), "renter", input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: expected ErrInvalidInput, got %v", err)
	}

	input = validBookingInput()
	input.ReturnDate = input.PickupDate
	if _, err := service.CreateBooking(context.Background(), "renter", input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("same-day return: expected ErrInvalidInput, got %v", err)
	}

	input = validBookingInput()
	input.CarID = 99
	if _, err := service.CreateBooking(context.Background(), "renter", input); !errors.Is(err, ErrCarNotFound) {
		t.Fatalf("missing car: expected ErrCarNotFound, got %v", err)
	}

	if _, err := service.CreateBooking(context.Background(), "owner", validBookingInput()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("own car: expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateBookingSurvivesNotificationFailure(t *testing.T) {
	bookings := &stubBookings{}
	notifications := &stubNotifications{createErr: errors.New("insert failed")}
	service := newBookingServiceForTest(bookings, notifications)

	booking, err := service.CreateBooking(context.Background(), "renter", validBookingInput())
	if err != nil {
		t.Fatalf("expected booking despite notification failure, got %v", err)
	}
	if booking == nil || booking.ID != "b1" {
		t.Fatalf("unexpected booking: %+v", booking)
	}
}

func TestUpdateBookingStatusConfirmsAndNotifiesRenter(t *testing.T) {
	pending := &models.Booking{ID: "b1", CarID: 5, OwnerID: "owner", RenterID: "renter", Status: "pending"}
	confirmed := *pending
	confirmed.Status = "confirmed"
	bookings := &stubBookings{byID: pending, updateResult: &confirmed}
	notifications := &stubNotifications{}
	service := newBookingServiceForTest(bookings, notifications)

	updated, err := service.UpdateBookingStatus(context.Background(), "owner", "b1", "confirm")
	if err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if updated.Status != "confirmed" {
		t.Fatalf("expected confirmed, got %q", updated.Status)
	}
	if bookings.lastCurrentStatus != "pending" || bookings.lastNextStatus != "confirmed" {
		t.Fatalf("unexpected guard: %q -> %q", bookings.lastCurrentStatus, bookings.lastNextStatus)
	}

	if len(notifications.created) != 1 || notifications.created[0].UserID != "renter" {
		t.Fatalf("expected renter notification, got %+v", notifications.created)
	}
}

func TestUpdateBookingStatusRejections(t *testing.T) {
	pending := &models.Booking{ID: "b1", CarID: 5, OwnerID: "owner", RenterID: "renter", Status: "pending"}

	service := newBookingServiceForTest(&stubBookings{byID: pending}, &stubNotifications{})
	if _, err := service.UpdateBookingStatus(context.Background(), "owner", "b1", "cancelled"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unknown status: expected ErrInvalidStatus, got %v", err)
	}
	if _, err := service.UpdateBookingStatus(context.Background(), "stranger", "b1", "confirm"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner: expected ErrForbidden, got %v", err)
	}

	decided := &stubBookings{byID: pending, updateErr: pgx.ErrNoRows}
	service = newBookingServiceForTest(decided, &stubNotifications{})
	if _, err := service.UpdateBookingStatus(context.Background(), "owner", "b1", "decline"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("already decided: expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestNormalizeBookingStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"confirm", "confirmed", false},
		{"Confirmed", "confirmed", false},
		{" decline ", "declined", false},
		{"DECLINED", "declined", false},
		{"pending", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := normalizeBookingStatus(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidStatus) {
				t.Errorf("normalizeBookingStatus(%q): expected ErrInvalidStatus, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("normalizeBookingStatus(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestListNotificationsPaging(t *testing.T) {
	notifications := &stubNotifications{}
	service := newBookingServiceForTest(&stubBookings{}, notifications)

	if _, _, err := service.ListNotifications(context.Background(), "user", 0, 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero page: expected ErrInvalidInput, got %v", err)
	}

	if _, _, err := service.ListNotifications(context.Background(), "user", 3, 10); err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if notifications.lastLimit != 10 || notifications.lastOffset != 20 {
		t.Fatalf("unexpected paging: limit=%d offset=%d", notifications.lastLimit, notifications.lastOffset)
	}
}
