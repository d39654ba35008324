package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
)

// SearchShows returns one page of shows matching f, ordered by date and
// time, together with the total number of matches.
func (r *ShowRepo) SearchShows(ctx context.Context, f model.ShowFilter) ([]model.ShowListing, int, error) {
	where := []string{}
	args := []any{}

	if f.From != "" {
		where = append(where, "s.show_date >= ?")
		args = append(args, f.From)
	}
	if f.Movie != "" {
		where = append(where, "LOWER(m.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Movie)+"%")
	}
	if f.Date != "" {
		where = append(where, "s.show_date = ?")
		args = append(args, f.Date)
	}
	if f.Theatre != "" {
		where = append(where, "LOWER(t.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Theatre)+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int
	countSQL := `SELECT COUNT(*)
		FROM shows s
		JOIN movies m   ON m.id = s.movie_id
		JOIN screens sc ON sc.id = s.screen_id
		JOIN theatres t ON t.id = sc.theatre_id
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 12
	}
	dataSQL := listingSelect + `
		WHERE ` + cond + `
		ORDER BY s.show_date ASC, s.show_time ASC, s.id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.ShowListing, 0, limit)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
