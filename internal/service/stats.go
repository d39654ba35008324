package service

import (
	"context"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
)

// Window is a revenue roll-up over [From, To).
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	model.Rollup
}

// Stats is the admin dashboard payload.
type Stats struct {
	Today              Window                `json:"today"`
	Month              Window                `json:"month"`
	TopMovies          []model.MovieStat     `json:"top_movies"`
	TopMoviesByRevenue []model.MovieStat     `json:"top_movies_by_revenue"`
	RecentBookings     []model.BookingDetail `json:"recent_bookings"`
	GeneratedAt        time.Time             `json:"generated_at"`
}

// StatsService aggregates confirmed bookings.  Every call reads the store
// afresh; windows are derived from Now in Location at call time.
type StatsService struct {
	store StatsStore

	TopN     int
	RecentN  int
	Now      func() time.Time
	Location *time.Location
}

func NewStatsService(store StatsStore, topN, recentN int) *StatsService {
	if topN <= 0 {
		topN = 5
	}
	if recentN <= 0 {
		recentN = 10
	}
	return &StatsService{store: store, TopN: topN, RecentN: recentN, Now: time.Now, Location: time.UTC}
}

// Stats returns today's and this month's roll-ups, the movie leaderboards
// and the latest confirmed bookings.  Admin only.
func (s *StatsService) Stats(ctx context.Context, caller model.Caller) (Stats, error) {
	if !caller.IsAdmin() {
		return Stats{}, repository.ErrForbidden
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now().In(loc)

	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
	monthStart := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, loc)
	out := Stats{
		Today:       Window{From: dayStart, To: dayStart.AddDate(0, 0, 1)},
		Month:       Window{From: monthStart, To: monthStart.AddDate(0, 1, 0)},
		GeneratedAt: at,
	}

	var err error
	if out.Today.Rollup, err = s.store.Rollup(ctx, out.Today.From, out.Today.To); err != nil {
		return Stats{}, err
	}
	if out.Month.Rollup, err = s.store.Rollup(ctx, out.Month.From, out.Month.To); err != nil {
		return Stats{}, err
	}
	if out.TopMovies, err = s.store.TopMovies(ctx, model.RankByBookings, s.TopN); err != nil {
		return Stats{}, err
	}
	if out.TopMoviesByRevenue, err = s.store.TopMovies(ctx, model.RankByRevenue, s.TopN); err != nil {
		return Stats{}, err
	}
	if out.RecentBookings, err = s.store.RecentBookings(ctx, s.RecentN); err != nil {
		return Stats{}, err
	}
	if out.TopMovies == nil {
		out.TopMovies = []model.MovieStat{}
	}
	if out.TopMoviesByRevenue == nil {
		out.TopMoviesByRevenue = []model.MovieStat{}
	}
	if out.RecentBookings == nil {
		out.RecentBookings = []model.BookingDetail{}
	}
	return out, nil
}
