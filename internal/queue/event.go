// Package queue defines message payloads exchanged over the message broker
// and the publisher and consumer that move them.
package queue

// Queue names.  Each is a durable queue bound to the default exchange, so
// the routing key equals the queue name.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingEvent is published when a booking is confirmed or cancelled.  It
// contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingEvent struct {
	EventID     string   `json:"event_id"`
	Type        string   `json:"type"` // confirmed | cancelled
	BookingID   uint64   `json:"booking_id"`
	Reference   string   `json:"reference"`
	UserID      uint64   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	MovieTitle  string   `json:"movie_title"`
	TheatreName string   `json:"theatre_name"`
	ScreenName  string   `json:"screen_name"`
	ShowDate    string   `json:"show_date"`
	ShowTime    string   `json:"show_time"`
	Seats       []string `json:"seats"`
	TotalAmount int64    `json:"total_amount"`
	OccurredAt  string   `json:"occurred_at"` // RFC3339, UTC
}
