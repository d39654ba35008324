package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/seating"
)

// DefaultMaxSeats mirrors the server's default per-booking limit.
const DefaultMaxSeats = 10

// RefreshTimeout bounds the availability refresh that follows a failed
// booking when the caller's own context has already expired.
const RefreshTimeout = 5 * time.Second

// SelectionError is a seat selection rejected locally, before anything was
// sent.  Seats lists the offending labels when there are any.
type SelectionError struct {
	Reason string
	Seats  []string
}

func (e *SelectionError) Error() string {
	if len(e.Seats) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Seats, ", ")
}

// Coordinator books seats for one show.  It keeps the last availability
// snapshot, rejects selections that cannot succeed and refreshes the
// snapshot whenever a booking attempt fails.  The server remains
// the authority; every check here is advisory.
type Coordinator struct {
	api    *Client
	showID uint64
	snap   Snapshot

	MaxSeats int
}

func NewCoordinator(api *Client, showID uint64) *Coordinator {
	return &Coordinator{api: api, showID: showID, MaxSeats: DefaultMaxSeats}
}

// Snapshot returns the last fetched availability.
func (co *Coordinator) Snapshot() Snapshot { return co.snap }

// Refresh fetches the booked set from the API.
func (co *Coordinator) Refresh(ctx context.Context) (Snapshot, error) {
	snap, err := co.api.BookedSeats(ctx, co.showID)
	if err != nil {
		return co.snap, err
	}
	co.snap = snap
	return snap, nil
}

// Check validates a selection against the current snapshot and returns the
// normalised labels.  It fails with a *SelectionError for an empty or too
// large selection, duplicates, seats outside the layout, or seats the
// snapshot already shows as booked.
func (co *Coordinator) Check(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, &SelectionError{Reason: "select at least one seat"}
	}
	limit := co.MaxSeats
	if limit <= 0 {
		limit = DefaultMaxSeats
	}
	if len(seats) > limit {
		return nil, &SelectionError{Reason: fmt.Sprintf("at most %d seats per booking", limit)}
	}

	labels := make([]string, 0, len(seats))
	seen := make(map[string]bool, len(seats))
	var unknown, dupes, taken []string
	for _, raw := range seats {
		st, err := seating.ParseSeat(raw)
		if err != nil || !co.snap.Layout.Contains(st.Label()) {
			unknown = append(unknown, strings.ToUpper(strings.TrimSpace(raw)))
			continue
		}
		label := st.Label()
		switch {
		case seen[label]:
			dupes = append(dupes, label)
		case co.snap.IsBooked(label):
			taken = append(taken, label)
		default:
			seen[label] = true
			labels = append(labels, label)
		}
	}
	switch {
	case len(unknown) > 0:
		return nil, &SelectionError{Reason: "seats do not exist for this show", Seats: unknown}
	case len(dupes) > 0:
		return nil, &SelectionError{Reason: "seats selected more than once", Seats: dupes}
	case len(taken) > 0:
		return nil, &SelectionError{Reason: "seats already booked", Seats: taken}
	}
	return labels, nil
}

// Submit checks the selection and posts it once.  Whenever the post fails,
// whether rejected, timed out or cut off, the snapshot is refreshed before
// the error is returned: the booking may have been committed even though no
// answer arrived.  The request is never resent; the caller decides what to
// do next from the refreshed snapshot.
func (co *Coordinator) Submit(ctx context.Context, seats []string, payment string) (model.Booking, error) {
	if co.snap.IsZero() {
		if _, err := co.Refresh(ctx); err != nil {
			return model.Booking{}, err
		}
	}
	labels, err := co.Check(seats)
	if err != nil {
		return model.Booking{}, err
	}

	b, err := co.api.Book(ctx, co.showID, labels, payment)
	if err == nil {
		co.snap.Booked = withSeats(co.snap.Booked, b.Seats)
		return b, nil
	}

	rctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), RefreshTimeout)
		defer cancel()
	}
	if _, rerr := co.Refresh(rctx); rerr != nil {
		return model.Booking{}, errors.Join(err, fmt.Errorf("refresh availability: %w", rerr))
	}
	return model.Booking{}, err
}

func withSeats(set map[string]bool, labels []string) map[string]bool {
	out := make(map[string]bool, len(set)+len(labels))
	for k := range set {
		out[k] = true
	}
	for _, l := range labels {
		out[l] = true
	}
	return out
}
