// Package service holds the booking rules that sit between the HTTP
// handlers and the stores: seat validation, pricing, ownership checks,
// show scheduling and the admin statistics roll-up.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/queue"
)

// ShowStore reads and writes scheduled shows.
type ShowStore interface {
	CreateShow(ctx context.Context, s *model.Show) error
	GetShow(ctx context.Context, id uint64) (model.Show, error)
	GetShowListing(ctx context.Context, id uint64) (model.ShowListing, error)
	SearchShows(ctx context.Context, f model.ShowFilter) ([]model.ShowListing, int, error)
}

// CatalogStore reads and writes theatres, screens and movies.
type CatalogStore interface {
	CreateTheatre(ctx context.Context, t *model.Theatre) error
	CreateScreen(ctx context.Context, s *model.Screen) error
	CreateMovie(ctx context.Context, m *model.Movie) error
	GetScreen(ctx context.Context, id uint64) (model.Screen, error)
	GetMovie(ctx context.Context, id uint64) (model.Movie, error)
	ListScreens(ctx context.Context) ([]model.Screen, error)
	ListMovies(ctx context.Context) ([]model.Movie, error)
	ListTheatres(ctx context.Context) ([]model.Theatre, error)
}

// BookingStore persists bookings and enforces seat exclusivity.  Reserve
// must lock every seat of b or none of them.  Cancel must run authorize
// against the stored booking before changing it, and returns the booking
// together with repository.ErrAlreadyCancelled when there was nothing to
// release.
type BookingStore interface {
	Reserve(ctx context.Context, b *model.Booking, lines []model.SeatLine) error
	Cancel(ctx context.Context, id uint64, authorize func(model.Booking) error, at time.Time) (model.Booking, error)
	BookedSeats(ctx context.Context, showID uint64) ([]string, error)
	GetBooking(ctx context.Context, id uint64) (model.BookingDetail, error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListBookings(ctx context.Context, limit int) ([]model.BookingDetail, error)
}

// StatsStore answers the aggregate queries behind the admin dashboard.
type StatsStore interface {
	Rollup(ctx context.Context, from, to time.Time) (model.Rollup, error)
	TopMovies(ctx context.Context, by model.MovieRank, limit int) ([]model.MovieStat, error)
	RecentBookings(ctx context.Context, limit int) ([]model.BookingDetail, error)
}

// EventPublisher receives booking domain events.  *queue.Publisher
// satisfies it.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingEvent) error
	BookingCancelled(ctx context.Context, ev queue.BookingEvent) error
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) BookingConfirmed(context.Context, queue.BookingEvent) error { return nil }
func (NopPublisher) BookingCancelled(context.Context, queue.BookingEvent) error { return nil }
