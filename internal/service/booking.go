package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/queue"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
	"github.com/iliyamo/movie-ticket-storefront/internal/seating"
)

// DefaultMaxSeatsPerBooking applies when BookingService.MaxSeats is zero.
const DefaultMaxSeatsPerBooking = 10

// DefaultPaymentMethod is recorded when a request does not name one.
const DefaultPaymentMethod = "upi"

// BookingRequest is a customer's request to reserve seats for a show.
type BookingRequest struct {
	ShowID        uint64
	Seats         []string
	PaymentMethod string
}

// CancelResult is the outcome of a cancellation.  AlreadyCancelled is set
// when the booking had been cancelled before this call; nothing changed.
type CancelResult struct {
	Booking          model.Booking
	AlreadyCancelled bool
}

// Availability is the set of seats held by confirmed bookings for a show
// at the instant AsOf.
type Availability struct {
	ShowID        uint64    `json:"show_id"`
	Capacity      int       `json:"capacity"`
	BookableSeats int       `json:"bookable_seats"`
	BookedSeats   []string  `json:"booked_seats"`
	AsOf          time.Time `json:"as_of"`
}

// BookingService validates, prices and records bookings.  The store is
// the only arbiter of seat exclusivity; everything checked here is
// re-checked nowhere else.
type BookingService struct {
	shows    ShowStore
	bookings BookingStore
	events   EventPublisher
	logger   echo.Logger

	// MaxSeats caps the number of seats in one booking.
	MaxSeats int
	// Now is the clock used for booking timestamps.
	Now func() time.Time
}

// NewBookingService wires a BookingService.  A nil publisher disables
// events.
func NewBookingService(shows ShowStore, bookings BookingStore, events EventPublisher, logger echo.Logger) *BookingService {
	if events == nil {
		events = NopPublisher{}
	}
	return &BookingService{
		shows:    shows,
		bookings: bookings,
		events:   events,
		logger:   logger,
		MaxSeats: DefaultMaxSeatsPerBooking,
		Now:      time.Now,
	}
}

func (s *BookingService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Submit validates req against the show's layout and reserves every seat
// in one atomic step.  A *repository.SeatConflictError is returned when
// any seat is already held; in that case nothing was reserved.
func (s *BookingService) Submit(ctx context.Context, caller model.Caller, req BookingRequest) (model.Booking, error) {
	if caller.UserID == 0 {
		return model.Booking{}, repository.ErrUnauthenticated
	}
	if req.ShowID == 0 {
		return model.Booking{}, repository.Invalid("show_id", "is required")
	}
	sh, err := s.shows.GetShow(ctx, req.ShowID)
	if err != nil {
		return model.Booking{}, err
	}
	layout := seating.NewLayout(sh.Capacity)

	seats, err := s.resolveSeats(layout, req.Seats)
	if err != nil {
		return model.Booking{}, err
	}

	labels := make([]string, len(seats))
	lines := make([]model.SeatLine, len(seats))
	for i, st := range seats {
		labels[i] = st.Label()
		lines[i] = model.SeatLine{Label: st.Label(), Tier: st.Tier.String(), Price: seating.Price(sh.BasePrice, st.Tier)}
	}

	payment := strings.TrimSpace(req.PaymentMethod)
	if payment == "" {
		payment = DefaultPaymentMethod
	}
	b := model.Booking{
		Reference:     uuid.NewString(),
		ShowID:        sh.ID,
		UserID:        caller.UserID,
		Seats:         labels,
		PaymentMethod: payment,
		TotalAmount:   seating.Total(sh.BasePrice, seats),
		Status:        model.BookingConfirmed,
		CreatedAt:     s.now(),
	}
	if err := s.bookings.Reserve(ctx, &b, lines); err != nil {
		return model.Booking{}, err
	}

	s.publish(ctx, b, s.events.BookingConfirmed)
	return b, nil
}

// resolveSeats parses the requested labels and checks them against the
// layout.  All offending labels are reported together.
func (s *BookingService) resolveSeats(layout seating.Layout, requested []string) ([]seating.Seat, error) {
	if len(requested) == 0 {
		return nil, repository.Invalid("selected_seats", "at least one seat is required")
	}
	limit := s.MaxSeats
	if limit <= 0 {
		limit = DefaultMaxSeatsPerBooking
	}
	if len(requested) > limit {
		return nil, repository.Invalid("selected_seats", "at most %d seats per booking", limit)
	}

	seats := make([]seating.Seat, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	var unknown, dupes []string
	for _, raw := range requested {
		st, err := seating.ParseSeat(raw)
		if err != nil {
			unknown = append(unknown, raw)
			continue
		}
		st, ok := layout.Lookup(st.Label())
		if !ok {
			unknown = append(unknown, strings.ToUpper(strings.TrimSpace(raw)))
			continue
		}
		if seen[st.Label()] {
			dupes = append(dupes, st.Label())
			continue
		}
		seen[st.Label()] = true
		seats = append(seats, st)
	}
	if len(unknown) > 0 {
		return nil, &repository.ValidationError{
			Field:   "selected_seats",
			Message: "seats do not exist for this show: " + strings.Join(unknown, ", "),
			Seats:   unknown,
		}
	}
	if len(dupes) > 0 {
		return nil, &repository.ValidationError{
			Field:   "selected_seats",
			Message: "seats requested more than once: " + strings.Join(dupes, ", "),
			Seats:   dupes,
		}
	}
	return seats, nil
}

// Cancel cancels a booking owned by the caller (or any booking when the
// caller is an admin) and releases its seats.  Cancelling a booking that
// is already cancelled succeeds without changing anything.
func (s *BookingService) Cancel(ctx context.Context, caller model.Caller, bookingID uint64) (CancelResult, error) {
	if caller.UserID == 0 {
		return CancelResult{}, repository.ErrUnauthenticated
	}
	authorize := func(b model.Booking) error {
		if b.UserID != caller.UserID && !caller.IsAdmin() {
			return repository.ErrForbidden
		}
		return nil
	}
	b, err := s.bookings.Cancel(ctx, bookingID, authorize, s.now())
	if errors.Is(err, repository.ErrAlreadyCancelled) {
		return CancelResult{Booking: b, AlreadyCancelled: true}, nil
	}
	if err != nil {
		return CancelResult{}, err
	}

	s.publish(ctx, b, s.events.BookingCancelled)
	return CancelResult{Booking: b}, nil
}

// Get returns one booking to its owner or to an admin.
func (s *BookingService) Get(ctx context.Context, caller model.Caller, bookingID uint64) (model.BookingDetail, error) {
	d, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return model.BookingDetail{}, err
	}
	if d.UserID != caller.UserID && !caller.IsAdmin() {
		return model.BookingDetail{}, repository.ErrForbidden
	}
	return d, nil
}

// ListMine returns the caller's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, caller model.Caller) ([]model.BookingDetail, error) {
	if caller.UserID == 0 {
		return nil, repository.ErrUnauthenticated
	}
	return s.bookings.ListBookingsByUser(ctx, caller.UserID)
}

// ListAll returns the latest bookings of every customer, cancelled ones
// included.  Admin only.
func (s *BookingService) ListAll(ctx context.Context, caller model.Caller, limit int) ([]model.BookingDetail, error) {
	if !caller.IsAdmin() {
		return nil, repository.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.bookings.ListBookings(ctx, limit)
}

// BookedSeats reports the seats currently held for a show.
func (s *BookingService) BookedSeats(ctx context.Context, showID uint64) (Availability, error) {
	sh, err := s.shows.GetShow(ctx, showID)
	if err != nil {
		return Availability{}, err
	}
	booked, err := s.bookings.BookedSeats(ctx, showID)
	if err != nil {
		return Availability{}, err
	}
	if booked == nil {
		booked = []string{}
	}
	return Availability{
		ShowID:        sh.ID,
		Capacity:      sh.Capacity,
		BookableSeats: seating.NewLayout(sh.Capacity).Size(),
		BookedSeats:   booked,
		AsOf:          s.now(),
	}, nil
}

// publish emits a booking event.  Failures are logged; the booking has
// already been committed.
func (s *BookingService) publish(ctx context.Context, b model.Booking, send func(context.Context, queue.BookingEvent) error) {
	ev := queue.BookingEvent{
		BookingID:   b.ID,
		Reference:   b.Reference,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		Seats:       b.Seats,
		TotalAmount: b.TotalAmount,
		OccurredAt:  s.now().Format(time.RFC3339),
	}
	if l, err := s.shows.GetShowListing(ctx, b.ShowID); err == nil {
		ev.MovieTitle = l.MovieTitle
		ev.TheatreName = l.TheatreName
		ev.ScreenName = l.ScreenName
		ev.ShowDate = l.ShowDate
		ev.ShowTime = l.ShowTime
	}
	if err := send(ctx, ev); err != nil && s.logger != nil {
		s.logger.Warnf("booking %d (%s): event not published: %v", b.ID, ev.Reference, err)
	}
}
