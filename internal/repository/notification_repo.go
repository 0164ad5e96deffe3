package repository

import (
	"context"
	"database/sql"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/google/uuid"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(
	ctx context.Context,
	userID string,
	bookingID string,
	message string,
) (*models.BookingNotification, error) {
	query := `
		INSERT INTO booking_notifications (id, booking_id, user_id, message, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, booking_id, user_id, message, is_read, created_at
	`

	var notification models.BookingNotification
	err := r.db.QueryRow(ctx, query, uuid.NewString(), bookingID, userID, message).Scan(
		&notification.ID,
		&notification.BookingID,
		&notification.UserID,
		&notification.Message,
		&notification.IsRead,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &notification, nil
}

func (r *NotificationRepository) ListForUser(
	ctx context.Context,
	userID string,
	limit int,
	offset int,
) ([]models.BookingNotificationDetail, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM booking_notifications
		WHERE user_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT n.id, n.booking_id, n.user_id, n.message, n.is_read, n.created_at,
			b.id, b.car_id, b.owner_id, b.renter_id, b.renter_name,
			b.renter_mobile, b.renter_email, b.pickup_date, b.return_date,
			b.total_amount, b.status, b.message_to_owner, b.created_at,
			b.updated_at, cars.title
		FROM booking_notifications n
		LEFT JOIN bookings b ON b.id = n.booking_id
		LEFT JOIN cars ON cars.id = b.car_id
		WHERE n.user_id = $1
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := make([]models.BookingNotificationDetail, 0)
	for rows.Next() {
		var detail models.BookingNotificationDetail
		var notificationBookingID sql.NullString
		var bookingID sql.NullString
		var carID sql.NullInt64
		var ownerID, renterID, renterName, renterMobile, renterEmail sql.NullString
		var pickupDate, returnDate, bookingCreatedAt, bookingUpdatedAt sql.NullTime
		var totalAmount sql.NullFloat64
		var status sql.NullString
		var messageToOwner sql.NullString
		var carTitle sql.NullString

		if err := rows.Scan(
			&detail.ID,
			&notificationBookingID,
			&detail.UserID,
			&detail.Message,
			&detail.IsRead,
			&detail.CreatedAt,
			&bookingID,
			&carID,
			&ownerID,
			&renterID,
			&renterName,
			&renterMobile,
			&renterEmail,
			&pickupDate,
			&returnDate,
			&totalAmount,
			&status,
			&messageToOwner,
			&bookingCreatedAt,
			&bookingUpdatedAt,
			&carTitle,
		); err != nil {
			return nil, 0, err
		}
		detail.BookingID = notificationBookingID.String

		if bookingID.Valid {
			booking := models.BookingDetail{
				Booking: models.Booking{
					ID:           bookingID.String,
					CarID:        carID.Int64,
					OwnerID:      ownerID.String,
					RenterID:     renterID.String,
					RenterName:   renterName.String,
					RenterMobile: renterMobile.String,
					RenterEmail:  renterEmail.String,
					PickupDate:   pickupDate.Time,
					ReturnDate:   returnDate.Time,
					TotalAmount:  totalAmount.Float64,
					Status:       status.String,
					CreatedAt:    bookingCreatedAt.Time,
					UpdatedAt:    bookingUpdatedAt.Time,
				},
				CarTitle: carTitle.String,
			}
			if messageToOwner.Valid {
				booking.MessageToOwner = &messageToOwner.String
			}
			detail.Booking = &booking
		}

		notifications = append(notifications, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkRead is scoped to the recipient; returns pgx.ErrNoRows when the
// notification does not exist or belongs to someone else.
func (r *NotificationRepository) MarkRead(
	ctx context.Context,
	notificationID string,
	userID string,
) error {
	var id string
	return r.db.QueryRow(ctx, `
		UPDATE booking_notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING id
	`, notificationID, userID).Scan(&id)
}
