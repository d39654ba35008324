package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
)

// StatsRepo runs the admin dashboard aggregates.  Only confirmed bookings
// are counted; the time windows are supplied by the caller.
type StatsRepo struct {
	db       *sql.DB
	bookings *BookingRepo
}

// NewStatsRepo returns a StatsRepo bound to db.
func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db, bookings: NewBookingRepo(db)}
}

// Rollup returns the number and revenue of confirmed bookings created in
// [from, to).
func (r *StatsRepo) Rollup(ctx context.Context, from, to time.Time) (model.Rollup, error) {
	var out model.Rollup
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM bookings
		 WHERE status = ? AND created_at >= ? AND created_at < ?`,
		model.BookingConfirmed, from.UTC(), to.UTC()).Scan(&out.Bookings, &out.Revenue)
	return out, err
}

// TopMovies returns up to limit movies ranked by confirmed booking count or
// by confirmed revenue.  Ties are broken by the other measure, then title.
func (r *StatsRepo) TopMovies(ctx context.Context, by model.MovieRank, limit int) ([]model.MovieStat, error) {
	order := "bookings DESC, revenue DESC, m.title ASC"
	switch by {
	case model.RankByBookings:
	case model.RankByRevenue:
		order = "revenue DESC, bookings DESC, m.title ASC"
	default:
		return nil, fmt.Errorf("unknown movie rank %q", by)
	}
	q := `SELECT m.id, m.title, COUNT(b.id) AS bookings, COALESCE(SUM(b.total_amount), 0) AS revenue
	      FROM bookings b
	      JOIN shows s  ON s.id = b.show_id
	      JOIN movies m ON m.id = s.movie_id
	      WHERE b.status = ?
	      GROUP BY m.id, m.title
	      ORDER BY ` + order + `
	      LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.BookingConfirmed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MovieStat{}
	for rows.Next() {
		var s model.MovieStat
		if err := rows.Scan(&s.MovieID, &s.Title, &s.Bookings, &s.Revenue); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecentBookings returns the latest confirmed bookings, newest first.
func (r *StatsRepo) RecentBookings(ctx context.Context, limit int) ([]model.BookingDetail, error) {
	return r.bookings.RecentBookings(ctx, limit)
}
