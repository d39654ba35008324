package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/seating"
)

// BookingRepo persists bookings and the seat locks that enforce them.
// Every seat held by a confirmed booking has exactly one row in
// seat_locks whose PRIMARY KEY is (show_id, seat_label); a second insert
// for the same pair fails, which is what serialises competing bookings for
// a seat.  booking_seats keeps the priced seats of every booking, including
// cancelled ones, for audit.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Reserve stores b as a confirmed booking and locks its seats in one
// transaction.  If any seat is already locked for the show the whole
// transaction is rolled back and a *SeatConflictError naming the contested
// seats is returned.  On success b.ID is populated.
func (r *BookingRepo) Reserve(ctx context.Context, b *model.Booking, lines []model.SeatLine) error {
	if len(b.Seats) == 0 {
		return Invalid("selected_seats", "at least one seat is required")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapTransient("begin reserve", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Name the seats that are visibly taken before trying to insert.  The
	// insert below is what actually enforces exclusivity.
	taken, err := lockedSeats(ctx, tx, b.ShowID, b.Seats)
	if err != nil {
		return wrapTransient("check seats", err)
	}
	if len(taken) > 0 {
		return &SeatConflictError{ShowID: b.ShowID, Seats: taken}
	}

	const insBooking = `INSERT INTO bookings (reference, user_id, show_id, payment_method, total_amount, status, created_at)
	                    VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insBooking, b.Reference, b.UserID, b.ShowID, b.PaymentMethod, b.TotalAmount, b.Status, b.CreatedAt.UTC())
	if err != nil {
		return wrapTransient("insert booking", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	lockSQL := `INSERT INTO seat_locks (show_id, seat_label, booking_id) VALUES `
	lockArgs := make([]any, 0, len(b.Seats)*3)
	for i, label := range b.Seats {
		if i > 0 {
			lockSQL += ","
		}
		lockSQL += "(?, ?, ?)"
		lockArgs = append(lockArgs, b.ShowID, label, b.ID)
	}
	if _, err := tx.ExecContext(ctx, lockSQL, lockArgs...); err != nil {
		if isDuplicateKey(err) {
			_ = tx.Rollback()
			b.ID = 0
			return r.conflictAfterRace(ctx, b, err)
		}
		return wrapTransient("lock seats", err)
	}

	if len(lines) > 0 {
		lineSQL := `INSERT INTO booking_seats (booking_id, position, seat_label, tier, price) VALUES `
		lineArgs := make([]any, 0, len(lines)*5)
		for i, l := range lines {
			if i > 0 {
				lineSQL += ","
			}
			lineSQL += "(?, ?, ?, ?, ?)"
			lineArgs = append(lineArgs, b.ID, i, l.Label, l.Tier, l.Price)
		}
		if _, err := tx.ExecContext(ctx, lineSQL, lineArgs...); err != nil {
			return wrapTransient("insert booking seats", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapTransient("commit reserve", err)
	}
	committed = true
	return nil
}

// conflictAfterRace builds the conflict for a request that lost the race
// on the seat_locks insert.  The contested seats are re-read after the
// rollback; the seat named by the duplicate key error is always included.
func (r *BookingRepo) conflictAfterRace(ctx context.Context, b *model.Booking, dupErr error) error {
	seen := map[string]bool{}
	var seats []string
	if taken, err := lockedSeats(ctx, r.db, b.ShowID, b.Seats); err == nil {
		for _, s := range taken {
			seen[s] = true
			seats = append(seats, s)
		}
	}
	if s := duplicateSeat(dupErr); s != "" && !seen[s] {
		seats = append(seats, s)
	}
	if len(seats) == 0 {
		seats = append(seats, b.Seats...)
	}
	SortSeatLabels(seats)
	return &SeatConflictError{ShowID: b.ShowID, Seats: seats}
}

func lockedSeats(ctx context.Context, q querier, showID uint64, labels []string) ([]string, error) {
	args := make([]any, 0, len(labels)+1)
	args = append(args, showID)
	for _, l := range labels {
		args = append(args, l)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT seat_label FROM seat_locks WHERE show_id = ? AND seat_label IN (`+placeholders(len(labels))+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	SortSeatLabels(out)
	return out, rows.Err()
}

// Cancel flips a confirmed booking to cancelled and releases its seats in
// one transaction.  The booking row is locked while authorize runs, so an
// ownership decision cannot race with another cancellation.  If the
// booking is already cancelled nothing changes and the booking is returned
// together with ErrAlreadyCancelled.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64, authorize func(model.Booking) error, at time.Time) (model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, wrapTransient("begin cancel", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		b           model.Booking
		cancelledAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, reference, user_id, show_id, payment_method, total_amount, status, created_at, cancelled_at
		 FROM bookings WHERE id = ? FOR UPDATE`, id).
		Scan(&b.ID, &b.Reference, &b.UserID, &b.ShowID, &b.PaymentMethod, &b.TotalAmount, &b.Status, &b.CreatedAt, &cancelledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, wrapTransient("load booking", err)
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	seats, err := loadSeats(ctx, tx, []uint64{b.ID})
	if err != nil {
		return model.Booking{}, err
	}
	b.Seats = seats[b.ID]

	if err := authorize(b); err != nil {
		return model.Booking{}, err
	}
	if b.Status == model.BookingCancelled {
		return b, ErrAlreadyCancelled
	}

	at = at.UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`,
		model.BookingCancelled, at, b.ID, model.BookingConfirmed); err != nil {
		return model.Booking{}, wrapTransient("cancel booking", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_locks WHERE booking_id = ?`, b.ID); err != nil {
		return model.Booking{}, wrapTransient("release seats", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, wrapTransient("commit cancel", err)
	}
	committed = true
	b.Status = model.BookingCancelled
	b.CancelledAt = &at
	return b, nil
}

// BookedSeats returns the labels of every seat held by a confirmed booking
// for the show, in layout order.
func (r *BookingRepo) BookedSeats(ctx context.Context, showID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seat_label FROM seat_locks WHERE show_id = ?`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortSeatLabels(out)
	return out, nil
}

const bookingDetailSelect = `SELECT b.id, b.reference, b.user_id, b.show_id, b.payment_method, b.total_amount,
	       b.status, b.created_at, b.cancelled_at,
	       m.id, m.title, t.name, sc.name,
	       DATE_FORMAT(s.show_date, '%Y-%m-%d'), TIME_FORMAT(s.show_time, '%H:%i'),
	       u.email
	FROM bookings b
	JOIN shows s     ON s.id = b.show_id
	JOIN movies m    ON m.id = s.movie_id
	JOIN screens sc  ON sc.id = s.screen_id
	JOIN theatres t  ON t.id = sc.theatre_id
	JOIN users u     ON u.id = b.user_id`

// GetBooking returns a booking with its joined display fields.
func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (model.BookingDetail, error) {
	list, err := r.queryDetails(ctx, bookingDetailSelect+` WHERE b.id = ?`, id)
	if err != nil {
		return model.BookingDetail{}, err
	}
	if len(list) == 0 {
		return model.BookingDetail{}, ErrBookingNotFound
	}
	return list[0], nil
}

// ListBookingsByUser returns all bookings of a user, newest first,
// including cancelled ones.
func (r *BookingRepo) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	return r.queryDetails(ctx, bookingDetailSelect+` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`, userID)
}

// ListBookings returns the latest bookings across all users, newest first.
func (r *BookingRepo) ListBookings(ctx context.Context, limit int) ([]model.BookingDetail, error) {
	return r.queryDetails(ctx, bookingDetailSelect+` ORDER BY b.created_at DESC, b.id DESC LIMIT ?`, limit)
}

// RecentBookings returns the latest confirmed bookings, newest first.
func (r *BookingRepo) RecentBookings(ctx context.Context, limit int) ([]model.BookingDetail, error) {
	return r.queryDetails(ctx, bookingDetailSelect+` WHERE b.status = ? ORDER BY b.created_at DESC, b.id DESC LIMIT ?`,
		model.BookingConfirmed, limit)
}

// queryDetails runs a booking detail query and then populates the seats of
// every returned booking with a second query.
func (r *BookingRepo) queryDetails(ctx context.Context, q string, args ...any) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	ids := []uint64{}
	for rows.Next() {
		var (
			d           model.BookingDetail
			cancelledAt sql.NullTime
		)
		if err := rows.Scan(
			&d.ID, &d.Reference, &d.UserID, &d.ShowID, &d.PaymentMethod, &d.TotalAmount,
			&d.Status, &d.CreatedAt, &cancelledAt,
			&d.MovieID, &d.MovieTitle, &d.TheatreName, &d.ScreenName,
			&d.ShowDate, &d.ShowTime,
			&d.CustomerEmail,
		); err != nil {
			return nil, err
		}
		if cancelledAt.Valid {
			t := cancelledAt.Time
			d.CancelledAt = &t
		}
		out = append(out, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	seats, err := loadSeats(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Seats = seats[out[i].ID]
		if out[i].Seats == nil {
			out[i].Seats = []string{}
		}
	}
	return out, nil
}

// loadSeats returns the seat labels of each booking in request order.
func loadSeats(ctx context.Context, q querier, bookingIDs []uint64) (map[uint64][]string, error) {
	args := make([]any, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx,
		`SELECT booking_id, seat_label FROM booking_seats WHERE booking_id IN (`+placeholders(len(bookingIDs))+`) ORDER BY booking_id, position`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]string, len(bookingIDs))
	for rows.Next() {
		var (
			id    uint64
			label string
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		out[id] = append(out[id], label)
	}
	return out, rows.Err()
}

// SortSeatLabels orders seat labels the way the layout does: by row, then
// by seat number.  Unparseable labels sort last, lexically.
func SortSeatLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, errA := seating.ParseSeat(labels[i])
		b, errB := seating.ParseSeat(labels[j])
		switch {
		case errA != nil && errB != nil:
			return labels[i] < labels[j]
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Number < b.Number
	})
}

func wrapTransient(op string, err error) error {
	if isRetryable(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
