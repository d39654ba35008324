package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-storefront/internal/config"
	"github.com/iliyamo/movie-ticket-storefront/internal/handler"
	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
	"github.com/iliyamo/movie-ticket-storefront/internal/router"
	"github.com/iliyamo/movie-ticket-storefront/internal/service"
	"github.com/iliyamo/movie-ticket-storefront/internal/utils"
)

const secret = "client-test-secret"

func fastClient(url string, hc *http.Client) *Client {
	c := New(url, hc)
	c.retryBase = time.Millisecond
	c.retryCap = 2 * time.Millisecond
	return c
}

func TestGetJSON_RetriesTransientServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"transient","message":"database unreachable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"show_id":7,"capacity":20,"bookable_seats":20,"booked_seats":["A1"],"as_of":"2026-10-18T12:00:00Z"}`))
	}))
	defer server.Close()

	snap, err := fastClient(server.URL, server.Client()).BookedSeats(context.Background(), 7)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if snap.ShowID != 7 || !snap.IsBooked("A1") || snap.IsBooked("A2") || snap.IsZero() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if got := len(snap.Available()); got != 19 {
		t.Fatalf("expected 19 available seats, got %d", got)
	}
}

func TestGetJSON_DoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"show not found"}`))
	}))
	defer server.Close()

	_, err := fastClient(server.URL, server.Client()).Show(context.Background(), 1)
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestBook_IsNeverRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := fastClient(server.URL, server.Client()).Book(context.Background(), 1, []string{"A1"}, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind() != KindTransient {
		t.Fatalf("expected transient APIError, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("booking must be sent once, got %d attempts", attempts)
	}
}

func TestAPIError_KindFallsBackToStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusBadRequest:          KindValidation,
		http.StatusConflict:            KindConflict,
		http.StatusForbidden:           KindForbidden,
		http.StatusUnauthorized:        KindUnauthenticated,
		http.StatusTooManyRequests:     KindTransient,
		http.StatusInternalServerError: KindInternal,
	}
	for status, want := range cases {
		if got := (&APIError{StatusCode: status}).Kind(); got != want {
			t.Fatalf("status %d: expected %q, got %q", status, want, got)
		}
	}
	if got := (&APIError{StatusCode: http.StatusConflict, Code: KindValidation}).Kind(); got != KindValidation {
		t.Fatalf("body kind should win, got %q", got)
	}
}

// apiServer runs the real routes over an in-memory store with one show of
// 20 seats (row A of 14, row B of 6).
type apiServer struct {
	*httptest.Server
	showID uint64
	alice  string
	bob    string
	posts  int32
	gets   int32

	// postDelay holds back booking responses after they were committed.
	postDelay atomic.Int64
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	ctx := context.Background()
	st := repository.NewMemoryStore()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	th := model.Theatre{Name: "Galaxy", City: "Tehran"}
	sc := model.Screen{Name: "Screen 1", Type: "2D", Capacity: 20}
	mv := model.Movie{Title: "Heat"}
	if err := st.CreateTheatre(ctx, &th); err != nil {
		t.Fatalf("theatre: %v", err)
	}
	sc.TheatreID = th.ID
	if err := st.CreateScreen(ctx, &sc); err != nil {
		t.Fatalf("screen: %v", err)
	}
	if err := st.CreateMovie(ctx, &mv); err != nil {
		t.Fatalf("movie: %v", err)
	}
	shows := service.NewShowService(st, st)
	shows.Now = func() time.Time { return now }
	sh, err := shows.AddShow(ctx, model.Caller{UserID: 1, Role: model.RoleAdmin}, service.NewShow{
		MovieID: mv.ID, ScreenID: sc.ID, Date: "2026-10-19", Time: "21:00", BasePrice: 150,
	})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	bookings := service.NewBookingService(st, st, nil, nil)

	e := echo.New()
	e.Validator = handler.NewValidator()
	none := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	router.RegisterPublic(e, handler.NewShowHandler(shows, bookings), none)
	router.RegisterCustomer(e, handler.NewBookingHandler(bookings), secret, none)
	router.RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}, st, st), secret)

	s := &apiServer{showID: sh.ID}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isPost := r.Method == http.MethodPost && r.URL.Path == "/v1/bookings"
		if isPost {
			atomic.AddInt32(&s.posts, 1)
		}
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/booked-seats") {
			atomic.AddInt32(&s.gets, 1)
		}
		e.ServeHTTP(w, r)
		if d := time.Duration(s.postDelay.Load()); isPost && d > 0 {
			time.Sleep(d)
		}
	}))
	t.Cleanup(s.Close)

	for _, u := range []struct {
		email string
		dst   *string
	}{{"alice@example.com", &s.alice}, {"bob@example.com", &s.bob}} {
		uid, err := st.CreateUser(ctx, u.email, "", "secret1", model.RoleCustomer, 4)
		if err != nil {
			t.Fatalf("user: %v", err)
		}
		tok, err := utils.NewAccessToken(secret, uid, model.RoleCustomer, 5)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		*u.dst = tok.Token
	}
	return s
}

func (s *apiServer) client(tok string) *Client {
	c := fastClient(s.URL, s.Client())
	c.SetToken(tok)
	return c
}

func TestCoordinator_ConflictRefreshesSnapshotWithoutRetry(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()

	bob := NewCoordinator(srv.client(srv.bob), srv.showID)
	if _, err := bob.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if bob.Snapshot().IsBooked("A1") {
		t.Fatal("A1 should be free before anyone books")
	}

	alice := NewCoordinator(srv.client(srv.alice), srv.showID)
	b, err := alice.Submit(ctx, []string{"a1", "A2"}, "card")
	if err != nil {
		t.Fatalf("alice submit: %v", err)
	}
	if b.TotalAmount != 300 || !alice.Snapshot().IsBooked("A2") {
		t.Fatalf("unexpected booking %+v", b)
	}

	// bob's snapshot is stale, so the advisory check passes and the server
	// rejects the request.
	_, err = bob.Submit(ctx, []string{"B1", "A1"}, "")
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || len(apiErr.Seats) != 1 || apiErr.Seats[0] != "A1" {
		t.Fatalf("conflict should name A1, got %v", err)
	}
	if posts := atomic.LoadInt32(&srv.posts); posts != 2 {
		t.Fatalf("expected exactly 2 booking requests, got %d", posts)
	}

	snap := bob.Snapshot()
	if !snap.IsBooked("A1") || !snap.IsBooked("A2") || snap.IsBooked("B1") {
		t.Fatalf("snapshot not refreshed after conflict: %v", snap.Booked)
	}

	// With the fresh snapshot the same selection is rejected locally.
	if _, err := bob.Submit(ctx, []string{"B1", "A1"}, ""); err == nil {
		t.Fatal("expected local rejection")
	} else {
		var sel *SelectionError
		if !errors.As(err, &sel) || sel.Seats[0] != "A1" {
			t.Fatalf("expected SelectionError for A1, got %v", err)
		}
	}
	if posts := atomic.LoadInt32(&srv.posts); posts != 2 {
		t.Fatalf("local rejection must not reach the server, got %d requests", posts)
	}
}

func TestCoordinator_TimedOutBookingRefreshesSnapshot(t *testing.T) {
	cases := []struct {
		name    string
		timeout func(c *Client) (context.Context, context.CancelFunc)
	}{
		{"http client timeout", func(c *Client) (context.Context, context.CancelFunc) {
			c.httpClient = &http.Client{Timeout: 100 * time.Millisecond}
			return context.WithCancel(context.Background())
		}},
		{"context deadline", func(*Client) (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 100*time.Millisecond)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newAPIServer(t)
			c := srv.client(srv.alice)
			co := NewCoordinator(c, srv.showID)
			if _, err := co.Refresh(context.Background()); err != nil {
				t.Fatalf("refresh: %v", err)
			}
			gets := atomic.LoadInt32(&srv.gets)

			srv.postDelay.Store(int64(400 * time.Millisecond))
			ctx, cancel := tc.timeout(c)
			defer cancel()
			if _, err := co.Submit(ctx, []string{"A1"}, ""); err == nil {
				t.Fatal("expected the booking request to time out")
			}

			if posts := atomic.LoadInt32(&srv.posts); posts != 1 {
				t.Fatalf("booking must be sent once, got %d", posts)
			}
			if got := atomic.LoadInt32(&srv.gets); got != gets+1 {
				t.Fatalf("expected one availability refresh, got %d", got-gets)
			}
			if !co.Snapshot().IsBooked("A1") {
				t.Fatal("snapshot should show the committed seat A1 as booked")
			}
		})
	}
}

func TestCoordinator_Check(t *testing.T) {
	co := NewCoordinator(nil, 1)
	co.snap = newSnapshot(1, 20, []string{"A3"}, time.Time{}, time.Now())
	co.MaxSeats = 3

	cases := []struct {
		name  string
		seats []string
		seat  string
	}{
		{"empty", nil, ""},
		{"too many", []string{"A1", "A2", "A4", "A5"}, ""},
		{"outside layout", []string{"A1", "C1"}, "C1"},
		{"row too short", []string{"B7"}, "B7"},
		{"garbage", []string{"??"}, "??"},
		{"duplicate", []string{"A1", "a1"}, "A1"},
		{"already booked", []string{"A3"}, "A3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := co.Check(tc.seats)
			var sel *SelectionError
			if !errors.As(err, &sel) {
				t.Fatalf("expected SelectionError, got %v", err)
			}
			if tc.seat != "" && (len(sel.Seats) != 1 || sel.Seats[0] != tc.seat) {
				t.Fatalf("expected seat %q, got %v", tc.seat, sel.Seats)
			}
		})
	}

	labels, err := co.Check([]string{" b6 ", "A14"})
	if err != nil || len(labels) != 2 || labels[0] != "B6" || labels[1] != "A14" {
		t.Fatalf("unexpected result %v %v", labels, err)
	}
}

func TestClient_LoginAndMyBookings(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()

	c := fastClient(srv.URL, srv.Client())
	if _, err := c.Login(ctx, "alice@example.com", "wrong"); !IsKind(err, KindUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := c.Login(ctx, "alice@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	b, err := c.Book(ctx, srv.showID, []string{"B2"}, "")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	list, err := c.MyBookings(ctx)
	if err != nil || len(list) != 1 || list[0].MovieTitle != "Heat" {
		t.Fatalf("my bookings: %v %+v", err, list)
	}
	res, err := c.Cancel(ctx, b.ID)
	if err != nil || res.AlreadyCancelled || res.Booking.Status != model.BookingCancelled {
		t.Fatalf("cancel: %v %+v", err, res)
	}
	if res, err := c.Cancel(ctx, b.ID); err != nil || !res.AlreadyCancelled {
		t.Fatalf("repeat cancel: %v %+v", err, res)
	}
}
