// Package repository contains data access logic for Show domain operations.
// A show is one screening of a movie on a screen at a date and time; the
// UNIQUE KEY on (screen_id, show_date, show_time) guarantees that a slot is
// never scheduled twice, even under concurrent admin requests.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel comparisons
	"fmt"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/seating"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo returns a ShowRepo bound to db.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

const showColumns = `s.id, s.movie_id, s.screen_id,
	DATE_FORMAT(s.show_date, '%Y-%m-%d'), TIME_FORMAT(s.show_time, '%H:%i'),
	s.price_tier, s.base_price, s.capacity, s.created_at`

// CreateShow inserts a new show.  On success the generated ID and
// created_at are populated on s.  A second show for the same screen slot
// fails with ErrSlotTaken.
func (r *ShowRepo) CreateShow(ctx context.Context, s *model.Show) error {
	const q = `INSERT INTO shows (movie_id, screen_id, show_date, show_time, price_tier, base_price, capacity)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.MovieID, s.ScreenID, s.ShowDate, s.ShowTime, s.PriceTier, s.BasePrice, s.Capacity)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("insert show: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query the inserted row back so defaults such as created_at are populated.
	fresh, err := r.GetShow(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = fresh
	return nil
}

// GetShow retrieves a show by its ID.  ErrShowNotFound is returned when no
// row matches.
func (r *ShowRepo) GetShow(ctx context.Context, id uint64) (model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows s WHERE s.id = ?`
	var s model.Show
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.MovieID, &s.ScreenID, &s.ShowDate, &s.ShowTime,
		&s.PriceTier, &s.BasePrice, &s.Capacity, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Show{}, ErrShowNotFound
	}
	if err != nil {
		return model.Show{}, err
	}
	return s, nil
}

// GetShowListing retrieves a show with its movie, theatre and screen
// fields and the current number of free seats.
func (r *ShowRepo) GetShowListing(ctx context.Context, id uint64) (model.ShowListing, error) {
	q := listingSelect + ` WHERE s.id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ShowListing{}, ErrShowNotFound
	}
	return l, err
}

const listingSelect = `SELECT ` + showColumns + `,
	m.title, m.genre, m.language, m.rating,
	t.id, t.name, t.city, sc.name, sc.type,
	(SELECT COUNT(*) FROM seat_locks sl WHERE sl.show_id = s.id) AS locked
	FROM shows s
	JOIN movies m    ON m.id = s.movie_id
	JOIN screens sc  ON sc.id = s.screen_id
	JOIN theatres t  ON t.id = sc.theatre_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (model.ShowListing, error) {
	var (
		l      model.ShowListing
		locked int
	)
	err := row.Scan(
		&l.ID, &l.MovieID, &l.ScreenID, &l.ShowDate, &l.ShowTime,
		&l.PriceTier, &l.BasePrice, &l.Capacity, &l.CreatedAt,
		&l.MovieTitle, &l.Genre, &l.Language, &l.Rating,
		&l.TheatreID, &l.TheatreName, &l.City, &l.ScreenName, &l.ScreenType,
		&locked,
	)
	if err != nil {
		return model.ShowListing{}, err
	}
	fillAvailability(&l, locked)
	return l, nil
}

// fillAvailability derives the bookable and available seat counts from the
// show's layout and the number of locked seats.
func fillAvailability(l *model.ShowListing, locked int) {
	l.BookableSeats = seating.NewLayout(l.Capacity).Size()
	l.AvailableSeats = l.BookableSeats - locked
	if l.AvailableSeats < 0 {
		l.AvailableSeats = 0
	}
}
