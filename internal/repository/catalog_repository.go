// Package repository contains data access logic separated from HTTP handlers.
// This file holds the reference data that shows are scheduled against:
// theatres, their screens and the movies on offer.  Catalog data is read
// mostly; the create methods exist for seeding.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors is used to compare sentinel values

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
)

// CatalogRepo encapsulates all database queries related to theatres,
// screens and movies.
type CatalogRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewCatalogRepo constructs a CatalogRepo with the provided DB handle.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// CreateTheatre inserts a theatre and populates its ID.
func (r *CatalogRepo) CreateTheatre(ctx context.Context, t *model.Theatre) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO theatres (name, city) VALUES (?, ?)", t.Name, t.City)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// CreateScreen inserts a screen and populates its ID.  Status defaults to
// active when empty.
func (r *CatalogRepo) CreateScreen(ctx context.Context, s *model.Screen) error {
	if s.Status == "" {
		s.Status = model.ScreenActive
	}
	const q = `INSERT INTO screens (theatre_id, name, type, capacity, status) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.TheatreID, s.Name, s.Type, s.Capacity, s.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// CreateMovie inserts a movie and populates its ID.  Status defaults to
// now_showing when empty.
func (r *CatalogRepo) CreateMovie(ctx context.Context, m *model.Movie) error {
	if m.Status == "" {
		m.Status = model.MovieNowShowing
	}
	const q = `INSERT INTO movies (title, genre, language, duration_min, rating, status) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Genre, m.Language, m.DurationMin, m.Rating, m.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

const screenSelect = `SELECT sc.id, sc.theatre_id, t.name, t.city, sc.name, sc.type, sc.capacity, sc.status
	FROM screens sc
	JOIN theatres t ON t.id = sc.theatre_id`

// GetScreen retrieves a screen by ID.  ErrScreenNotFound is returned when
// no row matches.
func (r *CatalogRepo) GetScreen(ctx context.Context, id uint64) (model.Screen, error) {
	var s model.Screen
	err := r.db.QueryRowContext(ctx, screenSelect+` WHERE sc.id = ?`, id).Scan(
		&s.ID, &s.TheatreID, &s.TheatreName, &s.City, &s.Name, &s.Type, &s.Capacity, &s.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Screen{}, ErrScreenNotFound
	}
	return s, err
}

// ListScreens returns active screens ordered by city, theatre and name.
func (r *CatalogRepo) ListScreens(ctx context.Context) ([]model.Screen, error) {
	rows, err := r.db.QueryContext(ctx, screenSelect+` WHERE sc.status = ? ORDER BY t.city, t.name, sc.name`, model.ScreenActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Screen{}
	for rows.Next() {
		var s model.Screen
		if err := rows.Scan(&s.ID, &s.TheatreID, &s.TheatreName, &s.City, &s.Name, &s.Type, &s.Capacity, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMovie retrieves a movie by ID.  ErrMovieNotFound is returned when no
// row matches.
func (r *CatalogRepo) GetMovie(ctx context.Context, id uint64) (model.Movie, error) {
	var m model.Movie
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, genre, language, duration_min, rating, status FROM movies WHERE id = ?`, id).
		Scan(&m.ID, &m.Title, &m.Genre, &m.Language, &m.DurationMin, &m.Rating, &m.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrMovieNotFound
	}
	return m, err
}

// ListMovies returns the movies that are now showing, ordered by title.
func (r *CatalogRepo) ListMovies(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, genre, language, duration_min, rating, status FROM movies WHERE status = ? ORDER BY title`,
		model.MovieNowShowing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Genre, &m.Language, &m.DurationMin, &m.Rating, &m.Status); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListTheatres returns every theatre ordered by city and name.
func (r *CatalogRepo) ListTheatres(ctx context.Context) ([]model.Theatre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, city FROM theatres ORDER BY city, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Theatre{}
	for rows.Next() {
		var t model.Theatre
		if err := rows.Scan(&t.ID, &t.Name, &t.City); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
