package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
)

// CatalogService lets admins register the theatres, screens and movies
// that shows are scheduled against.
type CatalogService struct {
	catalog CatalogStore
}

func NewCatalogService(catalog CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) AddTheatre(ctx context.Context, caller model.Caller, t model.Theatre) (model.Theatre, error) {
	if !caller.IsAdmin() {
		return model.Theatre{}, repository.ErrForbidden
	}
	t.Name, t.City = strings.TrimSpace(t.Name), strings.TrimSpace(t.City)
	if t.Name == "" {
		return model.Theatre{}, repository.Invalid("name", "is required")
	}
	if err := s.catalog.CreateTheatre(ctx, &t); err != nil {
		return model.Theatre{}, err
	}
	return t, nil
}

func (s *CatalogService) AddScreen(ctx context.Context, caller model.Caller, sc model.Screen) (model.Screen, error) {
	if !caller.IsAdmin() {
		return model.Screen{}, repository.ErrForbidden
	}
	sc.Name = strings.TrimSpace(sc.Name)
	if sc.TheatreID == 0 {
		return model.Screen{}, repository.Invalid("theatre_id", "is required")
	}
	if sc.Name == "" {
		return model.Screen{}, repository.Invalid("screen_name", "is required")
	}
	if sc.Capacity <= 0 {
		return model.Screen{}, repository.Invalid("capacity", "must be positive")
	}
	if sc.Status == "" {
		sc.Status = model.ScreenActive
	}
	if err := s.catalog.CreateScreen(ctx, &sc); err != nil {
		return model.Screen{}, err
	}
	return sc, nil
}

func (s *CatalogService) AddMovie(ctx context.Context, caller model.Caller, m model.Movie) (model.Movie, error) {
	if !caller.IsAdmin() {
		return model.Movie{}, repository.ErrForbidden
	}
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return model.Movie{}, repository.Invalid("title", "is required")
	}
	if m.Rating < 0 || m.Rating > 10 {
		return model.Movie{}, repository.Invalid("rating", "must be between 0 and 10")
	}
	if m.Status == "" {
		m.Status = model.MovieNowShowing
	}
	if err := s.catalog.CreateMovie(ctx, &m); err != nil {
		return model.Movie{}, err
	}
	return m, nil
}

// SeedDemo fills an empty store with a small catalog and a week of shows
// starting at from.  It is used by STORE=memory so the storefront has
// something to browse.
func SeedDemo(ctx context.Context, catalog CatalogStore, shows ShowStore, from time.Time) error {
	theatres := []model.Theatre{
		{Name: "Galaxy Cinema", City: "Tehran"},
		{Name: "Azadi Multiplex", City: "Tehran"},
	}
	var screens []model.Screen
	for i := range theatres {
		if err := catalog.CreateTheatre(ctx, &theatres[i]); err != nil {
			return fmt.Errorf("seed theatre: %w", err)
		}
		for j, kind := range []struct {
			typ      string
			capacity int
		}{{"2D", 120}, {"IMAX", 96}} {
			sc := model.Screen{
				TheatreID: theatres[i].ID,
				Name:      fmt.Sprintf("Screen %d", j+1),
				Type:      kind.typ,
				Capacity:  kind.capacity,
				Status:    model.ScreenActive,
			}
			if err := catalog.CreateScreen(ctx, &sc); err != nil {
				return fmt.Errorf("seed screen: %w", err)
			}
			screens = append(screens, sc)
		}
	}

	movies := []model.Movie{
		{Title: "Arrival", Genre: "Sci-Fi", Language: "English", DurationMin: 116, Rating: 7.9},
		{Title: "The Salesman", Genre: "Drama", Language: "Persian", DurationMin: 125, Rating: 7.7},
		{Title: "Spirited Away", Genre: "Animation", Language: "Japanese", DurationMin: 125, Rating: 8.6},
	}
	for i := range movies {
		movies[i].Status = model.MovieNowShowing
		if err := catalog.CreateMovie(ctx, &movies[i]); err != nil {
			return fmt.Errorf("seed movie: %w", err)
		}
	}

	slots := []string{"14:00", "18:30", "21:45"}
	for day := 0; day < 7; day++ {
		date := from.AddDate(0, 0, day).Format("2006-01-02")
		for i, sc := range screens {
			for k, at := range slots {
				sh := model.Show{
					MovieID:   movies[(i+k+day)%len(movies)].ID,
					ScreenID:  sc.ID,
					ShowDate:  date,
					ShowTime:  at,
					PriceTier: "standard",
					BasePrice: 200,
					Capacity:  sc.Capacity,
				}
				err := shows.CreateShow(ctx, &sh)
				if errors.Is(err, repository.ErrSlotTaken) {
					continue
				}
				if err != nil {
					return fmt.Errorf("seed show: %w", err)
				}
			}
		}
	}
	return nil
}
