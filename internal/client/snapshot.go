package client

import (
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/seating"
)

// Snapshot is the booked-seat set of a show as last fetched from the API.
// It is stale the moment it is received: a seat missing from Booked may
// already be taken.  Coordinator refreshes it after every rejected booking.
type Snapshot struct {
	ShowID   uint64
	Capacity int
	Layout   seating.Layout
	Booked   map[string]bool
	// AsOf is the server's clock when it read the booked set.
	AsOf time.Time
	// FetchedAt is the local clock when the response arrived.
	FetchedAt time.Time
}

func newSnapshot(showID uint64, capacity int, booked []string, asOf, fetchedAt time.Time) Snapshot {
	set := make(map[string]bool, len(booked))
	for _, label := range booked {
		set[label] = true
	}
	return Snapshot{
		ShowID:    showID,
		Capacity:  capacity,
		Layout:    seating.NewLayout(capacity),
		Booked:    set,
		AsOf:      asOf,
		FetchedAt: fetchedAt,
	}
}

// IsZero reports whether the snapshot was never fetched.
func (s Snapshot) IsZero() bool { return s.FetchedAt.IsZero() }

// IsBooked reports whether label was booked when the snapshot was taken.
func (s Snapshot) IsBooked(label string) bool { return s.Booked[label] }

// Age is how long ago the snapshot was fetched.
func (s Snapshot) Age(now time.Time) time.Duration { return now.Sub(s.FetchedAt) }

// Available returns the free seats in layout order.
func (s Snapshot) Available() []string {
	out := make([]string, 0, s.Layout.Size())
	for _, st := range s.Layout.Seats() {
		if !s.Booked[st.Label()] {
			out = append(out, st.Label())
		}
	}
	return out
}
