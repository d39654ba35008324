package model

import "time"

// BookingStatus is the lifecycle state of a booking.  The only transition
// is confirmed -> cancelled.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking records one reservation of seats for a show.  Bookings are never
// deleted; cancelling flips Status and releases the seats.
//
// Fields:
//
//	ID            – primary key identifier.
//	Reference     – public confirmation code (UUID).
//	ShowID        – show the seats belong to.
//	UserID        – account that created the booking.
//	Seats         – seat labels in the order they were requested.
//	PaymentMethod – payment label supplied by the customer.
//	TotalAmount   – server computed total in minor currency units.
//	Status        – confirmed or cancelled.
//	CreatedAt     – when the booking was confirmed.
//	CancelledAt   – when the booking was cancelled (nil while confirmed).
type Booking struct {
	ID            uint64        `json:"booking_id"`             // bookings.id
	Reference     string        `json:"reference"`              // bookings.reference
	ShowID        uint64        `json:"show_id"`                // bookings.show_id
	UserID        uint64        `json:"user_id"`                // bookings.user_id
	Seats         []string      `json:"seats"`                  // booking_seats.seat_label
	PaymentMethod string        `json:"payment_method"`         // bookings.payment_method
	TotalAmount   int64         `json:"total_amount"`           // bookings.total_amount
	Status        BookingStatus `json:"status"`                 // bookings.status
	CreatedAt     time.Time     `json:"created_at"`             // bookings.created_at
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"` // bookings.cancelled_at (nullable)
}

// SeatLine is the priced seat of a booking as recorded in booking_seats.
type SeatLine struct {
	Label string `json:"seat"`
	Tier  string `json:"tier"`
	Price int64  `json:"price"`
}

// BookingDetail is a booking joined with the show, movie, theatre, screen
// and customer fields needed to display it.
type BookingDetail struct {
	Booking
	MovieID       uint64 `json:"movie_id"`
	MovieTitle    string `json:"movie_title"`
	TheatreName   string `json:"theatre_name"`
	ScreenName    string `json:"screen_name"`
	ShowDate      string `json:"show_date"`
	ShowTime      string `json:"show_time"`
	CustomerEmail string `json:"customer_email,omitempty"`
}
