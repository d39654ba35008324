package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
)

func TestStats_WindowsAndLeaderboards(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()

	// A second movie with fewer but pricier bookings.
	mv := model.Movie{Title: "Heat"}
	if err := f.store.CreateMovie(ctx, &mv); err != nil {
		t.Fatalf("create movie: %v", err)
	}
	heat, err := f.shows.AddShow(ctx, admin, NewShow{
		MovieID: mv.ID, ScreenID: f.show.ScreenID, Date: "2026-10-20", Time: "22:00", BasePrice: 1000,
	})
	if err != nil {
		t.Fatalf("add show: %v", err)
	}

	book := func(at time.Time, c model.Caller, show uint64, seats ...string) model.Booking {
		t.Helper()
		f.bookings.Now = func() time.Time { return at }
		b, err := f.bookings.Submit(ctx, c, BookingRequest{ShowID: show, Seats: seats})
		if err != nil {
			t.Fatalf("submit %v: %v", seats, err)
		}
		return b
	}

	lastMonth := time.Date(2026, 9, 30, 23, 0, 0, 0, time.UTC)
	earlierThisMonth := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	today := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	book(lastMonth, alice, f.show.ID, "A1")              // 200, outside both windows
	book(earlierThisMonth, alice, f.show.ID, "A2")       // 200, month only
	book(today, bob, f.show.ID, "A3")                    // 200, today
	cancelled := book(today, bob, f.show.ID, "A4", "A5") // 400, cancelled below
	book(today.Add(time.Hour), alice, heat.ID, "A1")     // 1000, today
	if _, err := f.bookings.Cancel(ctx, bob, cancelled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	svc := NewStatsService(f.store, 5, 10)
	svc.Now = func() time.Time { return fixedNow }

	if _, err := svc.Stats(ctx, alice); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	st, err := svc.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if st.Today.Bookings != 2 || st.Today.Revenue != 1200 {
		t.Fatalf("unexpected today roll-up: %+v", st.Today.Rollup)
	}
	if st.Month.Bookings != 3 || st.Month.Revenue != 1400 {
		t.Fatalf("unexpected month roll-up: %+v", st.Month.Rollup)
	}
	if !st.Today.From.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)) ||
		!st.Month.To.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected windows: %+v %+v", st.Today, st.Month)
	}

	if len(st.TopMovies) != 2 || st.TopMovies[0].Title != "Arrival" || st.TopMovies[0].Bookings != 3 {
		t.Fatalf("unexpected top by bookings: %+v", st.TopMovies)
	}
	if st.TopMoviesByRevenue[0].Title != "Heat" || st.TopMoviesByRevenue[0].Revenue != 1000 {
		t.Fatalf("unexpected top by revenue: %+v", st.TopMoviesByRevenue)
	}

	if len(st.RecentBookings) != 4 {
		t.Fatalf("expected 4 confirmed recent bookings, got %d", len(st.RecentBookings))
	}
	if st.RecentBookings[0].MovieTitle != "Heat" {
		t.Fatalf("recent bookings not newest first: %+v", st.RecentBookings[0])
	}
	for _, b := range st.RecentBookings {
		if b.Status != model.BookingConfirmed {
			t.Fatalf("cancelled booking in recent list: %+v", b)
		}
	}
}

func TestStats_EmptyStore(t *testing.T) {
	svc := NewStatsService(repository.NewMemoryStore(), 0, 0)
	svc.Now = func() time.Time { return fixedNow }
	st, err := svc.Stats(context.Background(), admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TopMovies == nil || st.RecentBookings == nil || st.Today.Bookings != 0 {
		t.Fatalf("unexpected empty stats: %+v", st)
	}
	if svc.TopN != 5 || svc.RecentN != 10 {
		t.Fatalf("defaults not applied: %d %d", svc.TopN, svc.RecentN)
	}
}
