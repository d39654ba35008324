package model

import "time"

// Show represents a single scheduled screening of a movie on a screen.
// A show is immutable once created; only the set of seats locked by its
// confirmed bookings changes over time.  No two shows may share the same
// (screen, date, time) slot.
//
// Fields:
//
//	ID        – primary key identifier.
//	MovieID   – movie being screened.
//	ScreenID  – screen the show runs on.
//	ShowDate  – calendar date, formatted YYYY-MM-DD.
//	ShowTime  – start time, formatted HH:MM.
//	PriceTier – tier label of the show (standard, premium, vip).
//	BasePrice – price of a standard seat in minor currency units.
//	Capacity  – seat count copied from the screen at creation time.
//	CreatedAt – creation timestamp.
type Show struct {
	ID        uint64    `json:"show_id"`    // shows.id
	MovieID   uint64    `json:"movie_id"`   // shows.movie_id
	ScreenID  uint64    `json:"screen_id"`  // shows.screen_id
	ShowDate  string    `json:"show_date"`  // shows.show_date
	ShowTime  string    `json:"show_time"`  // shows.show_time
	PriceTier string    `json:"price_tier"` // shows.price_tier
	BasePrice int64     `json:"base_price"` // shows.base_price
	Capacity  int       `json:"capacity"`   // shows.capacity
	CreatedAt time.Time `json:"created_at"` // shows.created_at
}

// ShowListing is a show flattened with its movie, theatre and screen
// fields as returned by the browse endpoints.  BookableSeats is the number
// of addressable seats in the show's layout and AvailableSeats subtracts
// the seats currently held by confirmed bookings.
type ShowListing struct {
	Show
	MovieTitle     string  `json:"movie_title"`
	Genre          string  `json:"genre"`
	Language       string  `json:"language"`
	Rating         float64 `json:"rating"`
	TheatreID      uint64  `json:"theatre_id"`
	TheatreName    string  `json:"theatre_name"`
	City           string  `json:"city"`
	ScreenName     string  `json:"screen_name"`
	ScreenType     string  `json:"screen_type"`
	BookableSeats  int     `json:"bookable_seats"`
	AvailableSeats int     `json:"available_seats"`
}

// ShowFilter narrows a show search.  Empty fields do not filter.  From is
// the earliest show date included (YYYY-MM-DD).
type ShowFilter struct {
	Movie   string
	Date    string
	Theatre string
	From    string
	Limit   int
	Offset  int
}
