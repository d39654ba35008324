package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/utils"
)

// MemoryStore keeps the whole storefront in process memory.  It serves
// local development (STORE=memory) and tests, and implements the same
// contracts as the MySQL repositories.
//
// Seat exclusivity is enforced per show: each show owns a mutex guarding
// its seat lock table, so the check-then-insert of a booking is a critical
// section scoped to that show only.  Lock order is show seats, then mu.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   uint64
	theatres map[uint64]model.Theatre
	screens  map[uint64]model.Screen
	movies   map[uint64]model.Movie
	shows    map[uint64]model.Show
	slots    map[string]uint64
	bookings map[uint64]model.Booking
	lines    map[uint64][]model.SeatLine
	users    map[uint64]model.User
	emails   map[string]uint64
	tokens   map[string]memToken

	seatsMu sync.Mutex
	seats   map[uint64]*showSeats
}

type showSeats struct {
	mu    sync.Mutex
	locks map[string]uint64 // seat label -> booking id
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		theatres: map[uint64]model.Theatre{},
		screens:  map[uint64]model.Screen{},
		movies:   map[uint64]model.Movie{},
		shows:    map[uint64]model.Show{},
		slots:    map[string]uint64{},
		bookings: map[uint64]model.Booking{},
		lines:    map[uint64][]model.SeatLine{},
		users:    map[uint64]model.User{},
		emails:   map[string]uint64{},
		tokens:   map[string]memToken{},
		seats:    map[uint64]*showSeats{},
	}
}

func (s *MemoryStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) seatsFor(showID uint64) *showSeats {
	s.seatsMu.Lock()
	defer s.seatsMu.Unlock()
	st, ok := s.seats[showID]
	if !ok {
		st = &showSeats{locks: map[string]uint64{}}
		s.seats[showID] = st
	}
	return st
}

// ---- Catalog ----

func (s *MemoryStore) CreateTheatre(_ context.Context, t *model.Theatre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.theatres[t.ID] = *t
	return nil
}

func (s *MemoryStore) CreateScreen(_ context.Context, sc *model.Screen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.theatres[sc.TheatreID]
	if !ok {
		return fmt.Errorf("theatre %d: %w", sc.TheatreID, ErrNotFound)
	}
	if sc.Status == "" {
		sc.Status = model.ScreenActive
	}
	sc.ID = s.id()
	sc.TheatreName, sc.City = th.Name, th.City
	s.screens[sc.ID] = *sc
	return nil
}

func (s *MemoryStore) CreateMovie(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Status == "" {
		m.Status = model.MovieNowShowing
	}
	m.ID = s.id()
	s.movies[m.ID] = *m
	return nil
}

func (s *MemoryStore) GetScreen(_ context.Context, id uint64) (model.Screen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.screens[id]
	if !ok {
		return model.Screen{}, ErrScreenNotFound
	}
	return sc, nil
}

func (s *MemoryStore) GetMovie(_ context.Context, id uint64) (model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return model.Movie{}, ErrMovieNotFound
	}
	return m, nil
}

func (s *MemoryStore) ListMovies(_ context.Context) ([]model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Movie{}
	for _, m := range s.movies {
		if m.Status == model.MovieNowShowing {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *MemoryStore) ListTheatres(_ context.Context) ([]model.Theatre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Theatre, 0, len(s.theatres))
	for _, t := range s.theatres {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryStore) ListScreens(_ context.Context) ([]model.Screen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Screen{}
	for _, sc := range s.screens {
		if sc.Status == model.ScreenActive {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.City != b.City {
			return a.City < b.City
		}
		if a.TheatreName != b.TheatreName {
			return a.TheatreName < b.TheatreName
		}
		return a.Name < b.Name
	})
	return out, nil
}

// ---- Shows ----

func slotKey(screenID uint64, date, tm string) string {
	return fmt.Sprintf("%d|%s|%s", screenID, date, tm)
}

// CreateShow stores a show.  A second show for the same screen slot fails
// with ErrSlotTaken.
func (s *MemoryStore) CreateShow(_ context.Context, sh *model.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotKey(sh.ScreenID, sh.ShowDate, sh.ShowTime)
	if _, taken := s.slots[key]; taken {
		return ErrSlotTaken
	}
	sh.ID = s.id()
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now().UTC()
	}
	s.shows[sh.ID] = *sh
	s.slots[key] = sh.ID
	return nil
}

func (s *MemoryStore) GetShow(_ context.Context, id uint64) (model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shows[id]
	if !ok {
		return model.Show{}, ErrShowNotFound
	}
	return sh, nil
}

func (s *MemoryStore) GetShowListing(_ context.Context, id uint64) (model.ShowListing, error) {
	s.mu.RLock()
	sh, ok := s.shows[id]
	var l model.ShowListing
	if ok {
		l = s.listingLocked(sh)
	}
	s.mu.RUnlock()
	if !ok {
		return model.ShowListing{}, ErrShowNotFound
	}
	fillAvailability(&l, s.lockedCount(id))
	return l, nil
}

// listingLocked joins a show with its catalog rows.  s.mu must be held.
func (s *MemoryStore) listingLocked(sh model.Show) model.ShowListing {
	l := model.ShowListing{Show: sh}
	if m, ok := s.movies[sh.MovieID]; ok {
		l.MovieTitle, l.Genre, l.Language, l.Rating = m.Title, m.Genre, m.Language, m.Rating
	}
	if sc, ok := s.screens[sh.ScreenID]; ok {
		l.ScreenName, l.ScreenType, l.TheatreID = sc.Name, sc.Type, sc.TheatreID
		if t, ok := s.theatres[sc.TheatreID]; ok {
			l.TheatreName, l.City = t.Name, t.City
		}
	}
	return l
}

func (s *MemoryStore) lockedCount(showID uint64) int {
	st := s.seatsFor(showID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.locks)
}

// SearchShows filters, orders and pages shows like the MySQL search.
func (s *MemoryStore) SearchShows(_ context.Context, f model.ShowFilter) ([]model.ShowListing, int, error) {
	movie := strings.ToLower(f.Movie)
	theatre := strings.ToLower(f.Theatre)

	s.mu.RLock()
	matched := []model.ShowListing{}
	for _, sh := range s.shows {
		if f.From != "" && sh.ShowDate < f.From {
			continue
		}
		if f.Date != "" && sh.ShowDate != f.Date {
			continue
		}
		l := s.listingLocked(sh)
		if movie != "" && !strings.Contains(strings.ToLower(l.MovieTitle), movie) {
			continue
		}
		if theatre != "" && !strings.Contains(strings.ToLower(l.TheatreName), theatre) {
			continue
		}
		matched = append(matched, l)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.ShowDate != b.ShowDate {
			return a.ShowDate < b.ShowDate
		}
		if a.ShowTime != b.ShowTime {
			return a.ShowTime < b.ShowTime
		}
		return a.ID < b.ID
	})
	total := len(matched)
	limit := f.Limit
	if limit <= 0 {
		limit = 12
	}
	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	page := matched[start:end]
	for i := range page {
		fillAvailability(&page[i], s.lockedCount(page[i].ID))
	}
	return page, total, nil
}

// ---- Bookings ----

// Reserve checks and locks every requested seat while holding the show's
// seat mutex.  Either all seats are locked under the new booking or none
// are and a *SeatConflictError names the seats that were taken.
func (s *MemoryStore) Reserve(_ context.Context, b *model.Booking, lines []model.SeatLine) error {
	if len(b.Seats) == 0 {
		return Invalid("selected_seats", "at least one seat is required")
	}
	st := s.seatsFor(b.ShowID)
	st.mu.Lock()
	defer st.mu.Unlock()

	var taken []string
	for _, label := range b.Seats {
		if _, held := st.locks[label]; held {
			taken = append(taken, label)
		}
	}
	if len(taken) > 0 {
		SortSeatLabels(taken)
		return &SeatConflictError{ShowID: b.ShowID, Seats: taken}
	}

	s.mu.Lock()
	b.ID = s.id()
	stored := *b
	stored.Seats = append([]string(nil), b.Seats...)
	s.bookings[b.ID] = stored
	s.lines[b.ID] = append([]model.SeatLine(nil), lines...)
	s.mu.Unlock()

	for _, label := range b.Seats {
		st.locks[label] = b.ID
	}
	return nil
}

// Cancel flips a confirmed booking to cancelled and releases its seats
// while holding the show's seat mutex, so a concurrent Reserve sees either
// all of the seats locked or all of them free.
func (s *MemoryStore) Cancel(_ context.Context, id uint64, authorize func(model.Booking) error, at time.Time) (model.Booking, error) {
	s.mu.RLock()
	b, ok := s.bookings[id]
	s.mu.RUnlock()
	if !ok {
		return model.Booking{}, ErrBookingNotFound
	}

	st := s.seatsFor(b.ShowID)
	st.mu.Lock()
	defer st.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	b = s.bookings[id]
	b.Seats = append([]string(nil), b.Seats...)
	if err := authorize(b); err != nil {
		return model.Booking{}, err
	}
	if b.Status == model.BookingCancelled {
		return b, ErrAlreadyCancelled
	}
	at = at.UTC()
	b.Status = model.BookingCancelled
	b.CancelledAt = &at
	s.bookings[id] = b
	for _, label := range b.Seats {
		if st.locks[label] == id {
			delete(st.locks, label)
		}
	}
	return b, nil
}

// BookedSeats returns the seats locked for the show in layout order.
func (s *MemoryStore) BookedSeats(_ context.Context, showID uint64) ([]string, error) {
	st := s.seatsFor(showID)
	st.mu.Lock()
	out := make([]string, 0, len(st.locks))
	for label := range st.locks {
		out = append(out, label)
	}
	st.mu.Unlock()
	SortSeatLabels(out)
	return out, nil
}

// detailLocked joins a booking with its display fields.  s.mu must be held.
func (s *MemoryStore) detailLocked(b model.Booking) model.BookingDetail {
	d := model.BookingDetail{Booking: b}
	d.Seats = append([]string{}, b.Seats...)
	if sh, ok := s.shows[b.ShowID]; ok {
		l := s.listingLocked(sh)
		d.MovieID, d.MovieTitle = sh.MovieID, l.MovieTitle
		d.TheatreName, d.ScreenName = l.TheatreName, l.ScreenName
		d.ShowDate, d.ShowTime = sh.ShowDate, sh.ShowTime
	}
	if u, ok := s.users[b.UserID]; ok {
		d.CustomerEmail = u.Email
	}
	return d
}

// sortedDetailsLocked returns the bookings accepted by keep, newest first.
func (s *MemoryStore) sortedDetailsLocked(keep func(model.Booking) bool) []model.BookingDetail {
	out := []model.BookingDetail{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, s.detailLocked(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *MemoryStore) GetBooking(_ context.Context, id uint64) (model.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.BookingDetail{}, ErrBookingNotFound
	}
	return s.detailLocked(b), nil
}

func (s *MemoryStore) ListBookingsByUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDetailsLocked(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (s *MemoryStore) ListBookings(_ context.Context, limit int) ([]model.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.sortedDetailsLocked(func(model.Booking) bool { return true }), limit), nil
}

// ---- Stats ----

func (s *MemoryStore) Rollup(_ context.Context, from, to time.Time) (model.Rollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var r model.Rollup
	for _, b := range s.bookings {
		if b.Status != model.BookingConfirmed || b.CreatedAt.Before(from) || !b.CreatedAt.Before(to) {
			continue
		}
		r.Bookings++
		r.Revenue += b.TotalAmount
	}
	return r, nil
}

func (s *MemoryStore) TopMovies(_ context.Context, by model.MovieRank, limit int) ([]model.MovieStat, error) {
	if by != model.RankByBookings && by != model.RankByRevenue {
		return nil, fmt.Errorf("unknown movie rank %q", by)
	}
	s.mu.RLock()
	agg := map[uint64]*model.MovieStat{}
	for _, b := range s.bookings {
		if b.Status != model.BookingConfirmed {
			continue
		}
		sh, ok := s.shows[b.ShowID]
		if !ok {
			continue
		}
		st, ok := agg[sh.MovieID]
		if !ok {
			st = &model.MovieStat{MovieID: sh.MovieID, Title: s.movies[sh.MovieID].Title}
			agg[sh.MovieID] = st
		}
		st.Bookings++
		st.Revenue += b.TotalAmount
	}
	s.mu.RUnlock()

	out := make([]model.MovieStat, 0, len(agg))
	for _, st := range agg {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		primA, primB, secA, secB := int64(a.Bookings), int64(b.Bookings), a.Revenue, b.Revenue
		if by == model.RankByRevenue {
			primA, primB, secA, secB = a.Revenue, b.Revenue, int64(a.Bookings), int64(b.Bookings)
		}
		if primA != primB {
			return primA > primB
		}
		if secA != secB {
			return secA > secB
		}
		return a.Title < b.Title
	})
	return head(out, limit), nil
}

func (s *MemoryStore) RecentBookings(_ context.Context, limit int) ([]model.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.sortedDetailsLocked(func(b model.Booking) bool { return b.Status == model.BookingConfirmed }), limit), nil
}

func head[T any](xs []T, n int) []T {
	if n >= 0 && len(xs) > n {
		return xs[:n]
	}
	return xs
}

// ---- Accounts ----

func (s *MemoryStore) CreateUser(_ context.Context, email, name, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[email]; exists {
		return 0, ErrEmailExists
	}
	now := time.Now().UTC()
	u := model.User{ID: s.id(), Email: email, Name: strings.TrimSpace(name), PasswordHash: hash, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return u.ID, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = memToken{userID: userID, exp: exp}
	return nil
}

func (s *MemoryStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.revoked || time.Now().UTC().After(t.exp) {
		return 0, ErrInvalidRefresh
	}
	return t.userID, nil
}

func (s *MemoryStore) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok {
		t.revoked = true
		s.tokens[tokenHash] = t
	}
	return nil
}

func (s *MemoryStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
			s.tokens[h] = t
		}
	}
	return nil
}
