package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
	"github.com/iliyamo/movie-ticket-storefront/internal/seating"
)

const (
	defaultPerPage = 12
	maxPerPage     = 50
)

// NewShow is an admin request to schedule a show.
type NewShow struct {
	MovieID   uint64
	ScreenID  uint64
	Date      string // YYYY-MM-DD
	Time      string // HH:MM or HH:MM:SS
	PriceTier string
	BasePrice int64
}

// ShowQuery is a browse request.  Page is 1-based.
type ShowQuery struct {
	Movie   string
	Date    string
	Theatre string
	Page    int
	PerPage int
}

// ShowPage is one page of browse results.
type ShowPage struct {
	Shows   []model.ShowListing `json:"shows"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
	Pages   int                 `json:"pages"`
}

// ShowDetail is a show with its tier price table.
type ShowDetail struct {
	model.ShowListing
	Prices    map[string]int64 `json:"prices"`
	Truncated bool             `json:"layout_truncated"`
}

// ShowService schedules shows and serves the browse endpoints.
type ShowService struct {
	shows   ShowStore
	catalog CatalogStore

	// Now is the clock that decides which shows are upcoming.
	Now func() time.Time
}

func NewShowService(shows ShowStore, catalog CatalogStore) *ShowService {
	return &ShowService{shows: shows, catalog: catalog, Now: time.Now}
}

func (s *ShowService) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Format("2006-01-02")
}

// AddShow validates req and schedules the show.  Capacity is taken from
// the screen.  A show already occupying the same screen, date and time
// makes the call fail with repository.ErrSlotTaken.
func (s *ShowService) AddShow(ctx context.Context, caller model.Caller, req NewShow) (model.Show, error) {
	if !caller.IsAdmin() {
		return model.Show{}, repository.ErrForbidden
	}
	if req.MovieID == 0 {
		return model.Show{}, repository.Invalid("movie_id", "is required")
	}
	if req.ScreenID == 0 {
		return model.Show{}, repository.Invalid("screen_id", "is required")
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return model.Show{}, repository.Invalid("show_date", "must be YYYY-MM-DD")
	}
	clock, err := parseClock(req.Time)
	if err != nil {
		return model.Show{}, repository.Invalid("show_time", "must be HH:MM")
	}
	tier := seating.Standard
	if strings.TrimSpace(req.PriceTier) != "" {
		if tier, err = seating.ParseTier(req.PriceTier); err != nil {
			return model.Show{}, repository.Invalid("price_tier", "must be standard, premium or vip")
		}
	}
	if req.BasePrice <= 0 {
		return model.Show{}, repository.Invalid("base_price", "must be positive")
	}

	if _, err := s.catalog.GetMovie(ctx, req.MovieID); err != nil {
		return model.Show{}, err
	}
	screen, err := s.catalog.GetScreen(ctx, req.ScreenID)
	if err != nil {
		return model.Show{}, err
	}
	if screen.Status != "" && screen.Status != model.ScreenActive {
		return model.Show{}, repository.Invalid("screen_id", "screen is not active")
	}

	sh := model.Show{
		MovieID:   req.MovieID,
		ScreenID:  req.ScreenID,
		ShowDate:  date.Format("2006-01-02"),
		ShowTime:  clock,
		PriceTier: tier.String(),
		BasePrice: req.BasePrice,
		Capacity:  screen.Capacity,
	}
	if err := s.shows.CreateShow(ctx, &sh); err != nil {
		return model.Show{}, err
	}
	return sh, nil
}

func parseClock(v string) (string, error) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("15:04"), nil
		}
	}
	_, err := time.Parse("15:04", v)
	return "", err
}

// List returns upcoming shows matching q.
func (s *ShowService) List(ctx context.Context, q ShowQuery) (ShowPage, error) {
	if q.Date != "" {
		if _, err := time.Parse("2006-01-02", q.Date); err != nil {
			return ShowPage{}, repository.Invalid("date", "must be YYYY-MM-DD")
		}
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	per := q.PerPage
	if per < 1 {
		per = defaultPerPage
	}
	if per > maxPerPage {
		per = maxPerPage
	}
	// Pages past math.MaxInt rows simply come back empty.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/per {
		offset = (page - 1) * per
	}

	shows, total, err := s.shows.SearchShows(ctx, model.ShowFilter{
		Movie:   strings.TrimSpace(q.Movie),
		Date:    q.Date,
		Theatre: strings.TrimSpace(q.Theatre),
		From:    s.today(),
		Limit:   per,
		Offset:  offset,
	})
	if err != nil {
		return ShowPage{}, err
	}
	if shows == nil {
		shows = []model.ShowListing{}
	}
	return ShowPage{
		Shows:   shows,
		Total:   total,
		Page:    page,
		PerPage: per,
		Pages:   (total + per - 1) / per,
	}, nil
}

// Get returns one show with its prices.
func (s *ShowService) Get(ctx context.Context, id uint64) (ShowDetail, error) {
	l, err := s.shows.GetShowListing(ctx, id)
	if err != nil {
		return ShowDetail{}, err
	}
	return ShowDetail{
		ShowListing: l,
		Prices:      seating.PriceTable(l.BasePrice),
		Truncated:   seating.NewLayout(l.Capacity).Truncated(),
	}, nil
}

// Layout returns the seat map of a show.
func (s *ShowService) Layout(ctx context.Context, id uint64) (seating.Layout, model.Show, error) {
	sh, err := s.shows.GetShow(ctx, id)
	if err != nil {
		return seating.Layout{}, model.Show{}, err
	}
	return seating.NewLayout(sh.Capacity), sh, nil
}

func (s *ShowService) Movies(ctx context.Context) ([]model.Movie, error) {
	return s.catalog.ListMovies(ctx)
}

func (s *ShowService) Theatres(ctx context.Context) ([]model.Theatre, error) {
	return s.catalog.ListTheatres(ctx)
}

func (s *ShowService) Screens(ctx context.Context) ([]model.Screen, error) {
	return s.catalog.ListScreens(ctx)
}
