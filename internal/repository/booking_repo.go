package repository

import (
	"context"
	"time"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/google/uuid"
)

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

type CreateBookingInput struct {
	CarID          int64
	OwnerID        string
	RenterID       string
	RenterName     string
	RenterMobile   string
	RenterEmail    string
	PickupDate     time.Time
	ReturnDate     time.Time
	TotalAmount    float64
	MessageToOwner *string
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := `
		INSERT INTO bookings (
			id, car_id, owner_id, renter_id, renter_name, renter_mobile,
			renter_email, pickup_date, return_date, total_amount, status,
			message_to_owner
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', $11)
		RETURNING id, car_id, owner_id, renter_id, renter_name, renter_mobile,
			renter_email, pickup_date, return_date, total_amount, status,
			message_to_owner, created_at, updated_at
	`

	var booking models.Booking
	err := r.db.QueryRow(ctx, query,
		uuid.NewString(),
		input.CarID,
		input.OwnerID,
		input.RenterID,
		input.RenterName,
		input.RenterMobile,
		input.RenterEmail,
		input.PickupDate,
		input.ReturnDate,
		input.TotalAmount,
		input.MessageToOwner,
	).Scan(
		&booking.ID,
		&booking.CarID,
		&booking.OwnerID,
		&booking.RenterID,
		&booking.RenterName,
		&booking.RenterMobile,
		&booking.RenterEmail,
		&booking.PickupDate,
		&booking.ReturnDate,
		&booking.TotalAmount,
		&booking.Status,
		&booking.MessageToOwner,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	query := `
		SELECT id, car_id, owner_id, renter_id, renter_name, renter_mobile,
			renter_email, pickup_date, return_date, total_amount, status,
			message_to_owner, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking models.Booking
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&booking.ID,
		&booking.CarID,
		&booking.OwnerID,
		&booking.RenterID,
		&booking.RenterName,
		&booking.RenterMobile,
		&booking.RenterEmail,
		&booking.PickupDate,
		&booking.ReturnDate,
		&booking.TotalAmount,
		&booking.Status,
		&booking.MessageToOwner,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *BookingRepository) ListPendingForOwner(
	ctx context.Context,
	ownerID string,
) ([]models.BookingDetail, error) {
	query := `
		SELECT b.id, b.car_id, b.owner_id, b.renter_id, b.renter_name,
			b.renter_mobile, b.renter_email, b.pickup_date, b.return_date,
			b.total_amount, b.status, b.message_to_owner, b.created_at,
			b.updated_at, COALESCE(cars.title, '')
		FROM bookings b
		LEFT JOIN cars ON cars.id = b.car_id
		WHERE b.owner_id = $1 AND b.status = 'pending'
		ORDER BY b.created_at DESC, b.id DESC
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.BookingDetail, 0)
	for rows.Next() {
		var detail models.BookingDetail
		if err := rows.Scan(
			&detail.ID,
			&detail.CarID,
			&detail.OwnerID,
			&detail.RenterID,
			&detail.RenterName,
			&detail.RenterMobile,
			&detail.RenterEmail,
			&detail.PickupDate,
			&detail.ReturnDate,
			&detail.TotalAmount,
			&detail.Status,
			&detail.MessageToOwner,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&detail.CarTitle,
		); err != nil {
			return nil, err
		}

		bookings = append(bookings, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

// UpdateStatusIfCurrent transitions a booking only when its stored status
// still matches currentStatus. Returns pgx.ErrNoRows when the guard fails,
// which keeps confirmed/declined terminal.
func (r *BookingRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	bookingID string,
	currentStatus string,
	nextStatus string,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id, car_id, owner_id, renter_id, renter_name, renter_mobile,
			renter_email, pickup_date, return_date, total_amount, status,
			message_to_owner, created_at, updated_at
	`

	var booking models.Booking
	err := r.db.QueryRow(ctx, query, bookingID, currentStatus, nextStatus).Scan(
		&booking.ID,
		&booking.CarID,
		&booking.OwnerID,
		&booking.RenterID,
		&booking.RenterName,
		&booking.RenterMobile,
		&booking.RenterEmail,
		&booking.PickupDate,
		&booking.ReturnDate,
		&booking.TotalAmount,
		&booking.Status,
		&booking.MessageToOwner,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}
