package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/queue"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingEvent
	cancelled []queue.BookingEvent
}

func (p *recordingPublisher) BookingConfirmed(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *recordingPublisher) BookingCancelled(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return nil
}

type fixture struct {
	store    *repository.MemoryStore
	bookings *BookingService
	shows    *ShowService
	events   *recordingPublisher
	show     model.Show
	movie    model.Movie
}

var (
	alice = model.Caller{UserID: 101, Role: model.RoleCustomer}
	bob   = model.Caller{UserID: 102, Role: model.RoleCustomer}
	admin = model.Caller{UserID: 1, Role: model.RoleAdmin}
)

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	ctx := context.Background()
	st := repository.NewMemoryStore()

	th := model.Theatre{Name: "Galaxy", City: "Tehran"}
	if err := st.CreateTheatre(ctx, &th); err != nil {
		t.Fatalf("create theatre: %v", err)
	}
	sc := model.Screen{TheatreID: th.ID, Name: "Screen 1", Type: "2D", Capacity: capacity}
	if err := st.CreateScreen(ctx, &sc); err != nil {
		t.Fatalf("create screen: %v", err)
	}
	mv := model.Movie{Title: "Arrival", Genre: "Sci-Fi", Language: "English"}
	if err := st.CreateMovie(ctx, &mv); err != nil {
		t.Fatalf("create movie: %v", err)
	}

	shows := NewShowService(st, st)
	shows.Now = func() time.Time { return fixedNow }
	sh, err := shows.AddShow(ctx, admin, NewShow{
		MovieID: mv.ID, ScreenID: sc.ID, Date: "2026-10-20", Time: "18:30", BasePrice: 200,
	})
	if err != nil {
		t.Fatalf("add show: %v", err)
	}

	pub := &recordingPublisher{}
	bs := NewBookingService(st, st, pub, nil)
	bs.Now = func() time.Time { return fixedNow }
	return &fixture{store: st, bookings: bs, shows: shows, events: pub, show: sh, movie: mv}
}

func TestSubmit_ComputesTotalFromTiers(t *testing.T) {
	f := newFixture(t, 120)
	b, err := f.bookings.Submit(context.Background(), alice, BookingRequest{
		ShowID: f.show.ID, Seats: []string{"A1", "d2", " I3 "}, PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if b.TotalAmount != 900 {
		t.Fatalf("expected total 900, got %d", b.TotalAmount)
	}
	if b.Status != model.BookingConfirmed || b.Reference == "" || b.ID == 0 {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if got := fmt.Sprint(b.Seats); got != "[A1 D2 I3]" {
		t.Fatalf("seats not normalised: %s", got)
	}
	if len(f.events.confirmed) != 1 || f.events.confirmed[0].MovieTitle != "Arrival" {
		t.Fatalf("expected one confirmed event with movie title, got %+v", f.events.confirmed)
	}
}

func TestSubmit_DefaultsPaymentMethod(t *testing.T) {
	f := newFixture(t, 120)
	b, err := f.bookings.Submit(context.Background(), alice, BookingRequest{ShowID: f.show.ID, Seats: []string{"A1"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if b.PaymentMethod != DefaultPaymentMethod {
		t.Fatalf("expected %q, got %q", DefaultPaymentMethod, b.PaymentMethod)
	}
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t, 120)
	many := make([]string, 11)
	for i := range many {
		many[i] = fmt.Sprintf("A%d", i+1)
	}
	cases := []struct {
		name  string
		seats []string
		bad   []string
	}{
		{"empty", nil, nil},
		{"too many", many, nil},
		{"duplicate", []string{"A1", "a1"}, []string{"A1"}},
		{"outside layout", []string{"A1", "K1"}, []string{"K1"}},
		{"row too short", []string{"H9"}, []string{"H9"}},
		{"garbage", []string{"??"}, []string{"??"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.bookings.Submit(context.Background(), alice, BookingRequest{ShowID: f.show.ID, Seats: tc.seats})
			if !errors.Is(err, repository.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var ve *repository.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if tc.bad != nil && fmt.Sprint(ve.Seats) != fmt.Sprint(tc.bad) {
				t.Fatalf("expected offending seats %v, got %v", tc.bad, ve.Seats)
			}
		})
	}
	booked, _ := f.bookings.BookedSeats(context.Background(), f.show.ID)
	if len(booked.BookedSeats) != 0 {
		t.Fatalf("rejected requests must not reserve seats, got %v", booked.BookedSeats)
	}
}

func TestSubmit_UnknownShow(t *testing.T) {
	f := newFixture(t, 120)
	_, err := f.bookings.Submit(context.Background(), alice, BookingRequest{ShowID: 9999, Seats: []string{"A1"}})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmit_RequiresIdentity(t *testing.T) {
	f := newFixture(t, 120)
	_, err := f.bookings.Submit(context.Background(), model.Caller{}, BookingRequest{ShowID: f.show.ID, Seats: []string{"A1"}})
	if !errors.Is(err, repository.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestSubmit_ConflictRejectsWholeRequest(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	if _, err := f.bookings.Submit(ctx, alice, BookingRequest{ShowID: f.show.ID, Seats: []string{"B5"}}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := f.bookings.Submit(ctx, bob, BookingRequest{ShowID: f.show.ID, Seats: []string{"B4", "B5", "B6"}})
	var sc *repository.SeatConflictError
	if !errors.As(err, &sc) || !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected seat conflict, got %v", err)
	}
	if fmt.Sprint(sc.Seats) != "[B5]" {
		t.Fatalf("expected conflict naming B5, got %v", sc.Seats)
	}
	av, err := f.bookings.BookedSeats(ctx, f.show.ID)
	if err != nil {
		t.Fatalf("booked seats: %v", err)
	}
	if fmt.Sprint(av.BookedSeats) != "[B5]" {
		t.Fatalf("no partial booking expected, got %v", av.BookedSeats)
	}
}

func TestSubmit_ConcurrentSameSeatHasOneWinner(t *testing.T) {
	f := newFixture(t, 120)
	const racers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			<-start
			_, err := f.bookings.Submit(context.Background(), model.Caller{UserID: uid, Role: model.RoleCustomer},
				BookingRequest{ShowID: f.show.ID, Seats: []string{"B5"}})
			mu.Lock()
			defer mu.Unlock()
			var sc *repository.SeatConflictError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &sc) && len(sc.Seats) == 1 && sc.Seats[0] == "B5":
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(1000 + i))
	}
	close(start)
	wg.Wait()
	if wins != 1 || conflicts != racers-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d and %d", racers-1, wins, conflicts)
	}
}

func TestSubmit_ConcurrentBookingsAreDisjoint(t *testing.T) {
	f := newFixture(t, 120)
	pool := []string{"C1", "C2", "C3", "C4", "C5", "C6"}
	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seats := []string{pool[i%len(pool)], pool[(i*5+1)%len(pool)]}
			if seats[0] == seats[1] {
				seats = seats[:1]
			}
			_, err := f.bookings.Submit(context.Background(), model.Caller{UserID: uint64(500 + i)},
				BookingRequest{ShowID: f.show.ID, Seats: seats})
			if err != nil && !errors.Is(err, repository.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, err := f.bookings.ListAll(context.Background(), admin, 100)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	owner := map[string]uint64{}
	for _, b := range all {
		if b.Status != model.BookingConfirmed {
			continue
		}
		for _, s := range b.Seats {
			if prev, ok := owner[s]; ok {
				t.Fatalf("seat %s held by bookings %d and %d", s, prev, b.ID)
			}
			owner[s] = b.ID
		}
	}
	av, _ := f.bookings.BookedSeats(context.Background(), f.show.ID)
	if len(av.BookedSeats) != len(owner) {
		t.Fatalf("booked view %v disagrees with confirmed bookings %v", av.BookedSeats, owner)
	}
}

// confirmedOwners maps every seat of the show to the confirmed bookings
// holding it.
func confirmedOwners(t *testing.T, f *fixture, showID uint64) map[string][]uint64 {
	t.Helper()
	all, err := f.bookings.ListAll(context.Background(), admin, 100)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	owners := map[string][]uint64{}
	for _, b := range all {
		if b.ShowID != showID || b.Status != model.BookingConfirmed {
			continue
		}
		for _, s := range b.Seats {
			owners[s] = append(owners[s], b.ID)
		}
	}
	return owners
}

func TestCancel_RacingRebookersNeverSplitSeats(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	orig, err := f.bookings.Submit(ctx, alice, BookingRequest{ShowID: f.show.ID, Seats: []string{"D1", "D2"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	requests := [][]string{{"D1", "D2"}, {"D1"}, {"D2"}, {"D2", "D1"}}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []model.Booking
	)
	start := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		if _, err := f.bookings.Cancel(ctx, alice, orig.ID); err != nil {
			t.Errorf("cancel: %v", err)
		}
	}()
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			b, err := f.bookings.Submit(ctx, model.Caller{UserID: uint64(700 + i)},
				BookingRequest{ShowID: f.show.ID, Seats: requests[i%len(requests)]})
			if err != nil {
				if !errors.Is(err, repository.ErrConflict) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			winners = append(winners, b)
			mu.Unlock()
		}(i)
	}
	close(start)
	wg.Wait()

	won := map[string]int{}
	for _, b := range winners {
		for _, s := range b.Seats {
			won[s]++
		}
	}
	for seat, n := range won {
		if n > 1 {
			t.Fatalf("seat %s won by %d rebookers", seat, n)
		}
	}

	owners := confirmedOwners(t, f, f.show.ID)
	for seat, ids := range owners {
		if len(ids) != 1 {
			t.Fatalf("seat %s held by confirmed bookings %v", seat, ids)
		}
		if ids[0] == orig.ID {
			t.Fatalf("seat %s still held by the cancelled booking", seat)
		}
	}
	av, err := f.bookings.BookedSeats(ctx, f.show.ID)
	if err != nil {
		t.Fatalf("booked seats: %v", err)
	}
	if len(av.BookedSeats) != len(owners) {
		t.Fatalf("booked view %v disagrees with confirmed bookings %v", av.BookedSeats, owners)
	}
	for _, s := range av.BookedSeats {
		if len(owners[s]) != 1 {
			t.Fatalf("locked seat %s has no confirmed owner", s)
		}
	}
	d, err := f.bookings.Get(ctx, admin, orig.ID)
	if err != nil || d.Status != model.BookingCancelled {
		t.Fatalf("original booking should be cancelled: %+v %v", d, err)
	}
}

func TestSubmit_SameLabelOnTwoShowsDoesNotConflict(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	other, err := f.shows.AddShow(ctx, admin, NewShow{
		MovieID: f.movie.ID, ScreenID: f.show.ScreenID, Date: "2026-10-20", Time: "21:45", BasePrice: 200,
	})
	if err != nil {
		t.Fatalf("add show: %v", err)
	}

	labels := []string{"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8"}
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, label := range labels {
		for j, showID := range []uint64{f.show.ID, other.ID} {
			wg.Add(1)
			go func(uid uint64, showID uint64, label string) {
				defer wg.Done()
				<-start
				if _, err := f.bookings.Submit(ctx, model.Caller{UserID: uid},
					BookingRequest{ShowID: showID, Seats: []string{label}}); err != nil {
					t.Errorf("show %d seat %s: %v", showID, label, err)
				}
			}(uint64(900+2*i+j), showID, label)
		}
	}
	close(start)
	wg.Wait()

	for _, showID := range []uint64{f.show.ID, other.ID} {
		av, err := f.bookings.BookedSeats(ctx, showID)
		if err != nil {
			t.Fatalf("booked seats: %v", err)
		}
		if len(av.BookedSeats) != len(labels) {
			t.Fatalf("show %d: expected %d booked seats, got %v", showID, len(labels), av.BookedSeats)
		}
	}
}

func TestCancel_ReleasesSeatsAndIsIdempotent(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	b, err := f.bookings.Submit(ctx, alice, BookingRequest{ShowID: f.show.ID, Seats: []string{"E1", "E2"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := f.bookings.Cancel(ctx, alice, b.ID)
	if err != nil || res.AlreadyCancelled || res.Booking.Status != model.BookingCancelled {
		t.Fatalf("cancel: %+v %v", res, err)
	}
	av, _ := f.bookings.BookedSeats(ctx, f.show.ID)
	if len(av.BookedSeats) != 0 {
		t.Fatalf("expected seats released, got %v", av.BookedSeats)
	}

	again, err := f.bookings.Cancel(ctx, alice, b.ID)
	if err != nil || !again.AlreadyCancelled {
		t.Fatalf("second cancel should be an idempotent success: %+v %v", again, err)
	}
	if len(f.events.cancelled) != 1 {
		t.Fatalf("expected exactly one cancelled event, got %d", len(f.events.cancelled))
	}

	if _, err := f.bookings.Submit(ctx, bob, BookingRequest{ShowID: f.show.ID, Seats: []string{"E1", "E2"}}); err != nil {
		t.Fatalf("rebooking released seats: %v", err)
	}
}

func TestCancel_Authorization(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	b, err := f.bookings.Submit(ctx, alice, BookingRequest{ShowID: f.show.ID, Seats: []string{"F3"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.bookings.Cancel(ctx, bob, b.ID); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	av, _ := f.bookings.BookedSeats(ctx, f.show.ID)
	if fmt.Sprint(av.BookedSeats) != "[F3]" {
		t.Fatalf("forbidden cancel must not release seats, got %v", av.BookedSeats)
	}
	if _, err := f.bookings.Cancel(ctx, bob, 424242); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.bookings.Cancel(ctx, admin, b.ID); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestGet_OwnerOrAdmin(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	b, err := f.bookings.Submit(ctx, alice, BookingRequest{ShowID: f.show.ID, Seats: []string{"J1"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.bookings.Get(ctx, bob, b.ID); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	d, err := f.bookings.Get(ctx, admin, b.ID)
	if err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if d.MovieTitle != "Arrival" || d.ShowTime != "18:30" {
		t.Fatalf("detail not joined: %+v", d)
	}
	mine, err := f.bookings.ListMine(ctx, alice)
	if err != nil || len(mine) != 1 {
		t.Fatalf("list mine: %v %v", mine, err)
	}
	if _, err := f.bookings.ListAll(ctx, alice, 10); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("customers cannot list all bookings, got %v", err)
	}
}

func TestBookedSeats(t *testing.T) {
	f := newFixture(t, 120)
	ctx := context.Background()
	av, err := f.bookings.BookedSeats(ctx, f.show.ID)
	if err != nil {
		t.Fatalf("booked seats: %v", err)
	}
	if av.BookedSeats == nil || len(av.BookedSeats) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", av.BookedSeats)
	}
	if av.Capacity != 120 || av.BookableSeats != 114 || !av.AsOf.Equal(fixedNow) {
		t.Fatalf("unexpected availability: %+v", av)
	}
	if _, err := f.bookings.BookedSeats(ctx, 9999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
