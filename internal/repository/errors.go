// Package repository defines error types that are reused across multiple
// repositories and the stores that persist shows, bookings and accounts.
// These sentinel values allow higher layers such as services and handlers
// to distinguish between failure kinds with errors.Is, whichever store
// produced them.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update collides with
// existing state: a seat already held by a confirmed booking or a
// screen slot already taken by another show. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrTransient        = errors.New("temporarily unavailable")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

// Resource specific variants.  They match their generic kind with
// errors.Is so callers can be as precise as they like.
var (
	ErrShowNotFound    = fmt.Errorf("show %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrScreenNotFound  = fmt.Errorf("screen %w", ErrNotFound)
	ErrMovieNotFound   = fmt.Errorf("movie %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrSlotTaken       = fmt.Errorf("screen slot %w", ErrConflict)
	ErrEmailExists     = fmt.Errorf("email %w", ErrConflict)
)

// SeatConflictError reports the seats of a booking request that are
// already held by another confirmed booking for the same show.  Nothing
// from the request was committed.
type SeatConflictError struct {
	ShowID uint64
	Seats  []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable for show %d: %s", e.ShowID, strings.Join(e.Seats, ", "))
}

func (e *SeatConflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError describes malformed input.  Seats lists the offending
// seat labels when the problem is with specific seats.
type ValidationError struct {
	Field   string
	Message string
	Seats   []string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for a field level ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
