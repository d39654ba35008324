package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
)

func TestAddShow_SlotCollision(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()

	_, err := f.shows.AddShow(ctx, admin, NewShow{
		MovieID: f.movie.ID, ScreenID: f.show.ScreenID, Date: "2026-10-20", Time: "18:30:00", BasePrice: 250,
	})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict for taken slot, got %v", err)
	}

	sh, err := f.shows.AddShow(ctx, admin, NewShow{
		MovieID: f.movie.ID, ScreenID: f.show.ScreenID, Date: "2026-10-20", Time: "21:00", PriceTier: "VIP", BasePrice: 250,
	})
	if err != nil {
		t.Fatalf("distinct slot: %v", err)
	}
	if sh.Capacity != 120 || sh.PriceTier != "vip" || sh.ShowTime != "21:00" {
		t.Fatalf("unexpected show: %+v", sh)
	}
}

func TestAddShow_Validation(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	base := NewShow{MovieID: f.movie.ID, ScreenID: f.show.ScreenID, Date: "2026-10-21", Time: "10:00", BasePrice: 200}

	cases := []struct {
		name string
		edit func(*NewShow)
		want error
	}{
		{"bad date", func(r *NewShow) { r.Date = "21/10/2026" }, repository.ErrValidation},
		{"bad time", func(r *NewShow) { r.Time = "25:00" }, repository.ErrValidation},
		{"bad tier", func(r *NewShow) { r.PriceTier = "gold" }, repository.ErrValidation},
		{"zero price", func(r *NewShow) { r.BasePrice = 0 }, repository.ErrValidation},
		{"unknown movie", func(r *NewShow) { r.MovieID = 9999 }, repository.ErrNotFound},
		{"unknown screen", func(r *NewShow) { r.ScreenID = 9999 }, repository.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.edit(&req)
			if _, err := f.shows.AddShow(ctx, admin, req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := f.shows.AddShow(ctx, alice, base); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("customers cannot add shows, got %v", err)
	}
}

func TestList_FiltersAndPages(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	for _, tm := range []string{"10:00", "12:00", "14:00"} {
		if _, err := f.shows.AddShow(ctx, admin, NewShow{
			MovieID: f.movie.ID, ScreenID: f.show.ScreenID, Date: "2026-10-22", Time: tm, BasePrice: 200,
		}); err != nil {
			t.Fatalf("add show: %v", err)
		}
	}
	// Past shows are not listed.
	if _, err := f.shows.AddShow(ctx, admin, NewShow{
		MovieID: f.movie.ID, ScreenID: f.show.ScreenID, Date: "2026-10-01", Time: "10:00", BasePrice: 200,
	}); err != nil {
		t.Fatalf("add past show: %v", err)
	}

	page, err := f.shows.List(ctx, ShowQuery{Movie: "arr", PerPage: 2, Page: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 || page.Pages != 2 || len(page.Shows) != 2 {
		t.Fatalf("unexpected page: total=%d pages=%d len=%d", page.Total, page.Pages, len(page.Shows))
	}

	page, err = f.shows.List(ctx, ShowQuery{Date: "2026-10-22"})
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if page.Total != 3 || page.PerPage != defaultPerPage {
		t.Fatalf("unexpected date filter result: %+v", page)
	}
	if page.Shows[0].AvailableSeats != 114 || page.Shows[0].TheatreName != "Galaxy" {
		t.Fatalf("listing not flattened: %+v", page.Shows[0])
	}

	page, err = f.shows.List(ctx, ShowQuery{Theatre: "nowhere"})
	if err != nil || page.Total != 0 || page.Shows == nil {
		t.Fatalf("expected empty non-nil page, got %+v %v", page, err)
	}

	if _, err := f.shows.List(ctx, ShowQuery{Date: "tomorrow"}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestList_HugePageIsEmpty(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	for _, pg := range []int{922337203685477581, math.MaxInt} {
		page, err := f.shows.List(ctx, ShowQuery{Page: pg, PerPage: 12})
		if err != nil {
			t.Fatalf("page %d: %v", pg, err)
		}
		if len(page.Shows) != 0 || page.Total != 1 || page.Page != pg {
			t.Fatalf("page %d: unexpected result %+v", pg, page)
		}
	}
}

func TestSearchShows_NegativeOffset(t *testing.T) {
	f := newFixture(t, 120)
	got, total, err := f.store.SearchShows(context.Background(), model.ShowFilter{From: "2026-10-18", Limit: 5, Offset: -40})
	if err != nil || total != 1 || len(got) != 1 {
		t.Fatalf("expected the first page, got %d of %d (%v)", len(got), total, err)
	}
}

func TestGet_PriceTableAndAvailability(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	if _, err := f.bookings.Submit(ctx, alice, BookingRequest{ShowID: f.show.ID, Seats: []string{"A1", "A2"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	d, err := f.shows.Get(ctx, f.show.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Prices["standard"] != 200 || d.Prices["premium"] != 300 || d.Prices["vip"] != 400 {
		t.Fatalf("unexpected prices: %v", d.Prices)
	}
	if !d.Truncated || d.BookableSeats != 114 || d.AvailableSeats != 112 {
		t.Fatalf("unexpected availability: %+v", d.ShowListing)
	}
}

func TestSeedDemo(t *testing.T) {
	st := repository.NewMemoryStore()
	ctx := context.Background()
	if err := SeedDemo(ctx, st, st, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	shows := NewShowService(st, st)
	shows.Now = func() time.Time { return fixedNow }
	page, err := shows.List(ctx, ShowQuery{PerPage: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 7*4*3 {
		t.Fatalf("expected 84 seeded shows, got %d", page.Total)
	}
	movies, _ := shows.Movies(ctx)
	screens, _ := shows.Screens(ctx)
	theatres, _ := shows.Theatres(ctx)
	if len(movies) != 3 || len(screens) != 4 || len(theatres) != 2 {
		t.Fatalf("unexpected catalog sizes: %d movies %d screens %d theatres", len(movies), len(screens), len(theatres))
	}
}

func TestCatalogService(t *testing.T) {
	st := repository.NewMemoryStore()
	ctx := context.Background()
	cs := NewCatalogService(st)

	if _, err := cs.AddTheatre(ctx, alice, model.Theatre{Name: "X"}); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	th, err := cs.AddTheatre(ctx, admin, model.Theatre{Name: " Roxy ", City: "Shiraz"})
	if err != nil || th.Name != "Roxy" {
		t.Fatalf("add theatre: %+v %v", th, err)
	}
	if _, err := cs.AddScreen(ctx, admin, model.Screen{TheatreID: th.ID, Name: "1", Capacity: 0}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	sc, err := cs.AddScreen(ctx, admin, model.Screen{TheatreID: th.ID, Name: "1", Capacity: 80})
	if err != nil || sc.Status != model.ScreenActive {
		t.Fatalf("add screen: %+v %v", sc, err)
	}
	if _, err := cs.AddScreen(ctx, admin, model.Screen{TheatreID: 9999, Name: "2", Capacity: 80}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	m, err := cs.AddMovie(ctx, admin, model.Movie{Title: "Heat"})
	if err != nil || m.Status != model.MovieNowShowing {
		t.Fatalf("add movie: %+v %v", m, err)
	}
}
