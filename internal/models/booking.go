package models

import "time"

type Booking struct {
	ID             string    `json:"id"`
	CarID          int64     `json:"car_id"`
	OwnerID        string    `json:"owner_id"`
	RenterID       string    `json:"renter_id"`
	RenterName     string    `json:"renter_name"`
	RenterMobile   string    `json:"renter_mobile"`
	RenterEmail    string    `json:"renter_email"`
	PickupDate     time.Time `json:"pickup_date"`
	ReturnDate     time.Time `json:"return_date"`
	TotalAmount    float64   `json:"total_amount"`
	Status         string    `json:"status"`
	MessageToOwner *string   `json:"message_to_owner"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type BookingDetail struct {
	Booking
	CarTitle string `json:"car_title"`
}

type BookingNotification struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type BookingNotificationDetail struct {
	BookingNotification
	Booking *BookingDetail `json:"booking,omitempty"`
}
