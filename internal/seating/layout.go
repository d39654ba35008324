// Package seating derives the seat map of a show from its capacity.  The
// same derivation is used by the API when validating a booking and by the
// storefront client when it renders a seat map, so both sides always agree
// on which address a given seat has.
package seating

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Tier is the pricing class of a seat.  It is a closed set and is always a
// function of the row a seat sits in.
type Tier uint8

const (
	Standard Tier = iota
	Premium
	VIP
)

const (
	// MaxRows is the number of rows a screen can be laid out in (A..J).
	MaxRows = 10

	standardRows  = 3
	premiumRows   = 4
	standardWidth = 14
	premiumWidth  = 12
	vipWidth      = 8

	// MaxSeats is the number of addressable seats in a full ten-row layout.
	MaxSeats = standardRows*standardWidth + premiumRows*premiumWidth + (MaxRows-standardRows-premiumRows)*vipWidth
)

// ErrInvalidSeat is returned by ParseSeat for labels that are not of the
// form <row letter><seat number>.
var ErrInvalidSeat = errors.New("invalid seat address")

func (t Tier) String() string {
	switch t {
	case Standard:
		return "standard"
	case Premium:
		return "premium"
	case VIP:
		return "vip"
	}
	return "tier(" + strconv.Itoa(int(t)) + ")"
}

// ParseTier maps a tier name (case-insensitive) to a Tier.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return Standard, nil
	case "premium":
		return Premium, nil
	case "vip":
		return VIP, nil
	}
	return Standard, fmt.Errorf("unknown tier %q", s)
}

// TierForRow returns the tier of the zero-based row index.
func TierForRow(row int) Tier {
	switch {
	case row < standardRows:
		return Standard
	case row < standardRows+premiumRows:
		return Premium
	default:
		return VIP
	}
}

// rowWidth returns how many seats a full row at the given index holds.
func rowWidth(row int) int {
	switch TierForRow(row) {
	case Standard:
		return standardWidth
	case Premium:
		return premiumWidth
	default:
		return vipWidth
	}
}

// Seat is a computed seat address.  Two seats are the same seat when their
// Row and Number match; Tier is derived from Row.
type Seat struct {
	Row    byte // 'A'..'J'
	Number int  // 1-based position within the row
	Tier   Tier
}

// Label renders the seat address, e.g. "D2".
func (s Seat) Label() string {
	return string(s.Row) + strconv.Itoa(s.Number)
}

// ParseSeat parses a seat label such as "A1" or "j8".  It checks the
// syntax only; use Layout.Lookup to check the seat exists in a show.
func ParseSeat(label string) (Seat, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) < 2 {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, label)
	}
	row := label[0]
	if row < 'A' || row > 'Z' {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, label)
	}
	digits := label[1:]
	if digits[0] == '0' {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, label)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, label)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return Seat{}, fmt.Errorf("%w: %q", ErrInvalidSeat, label)
	}
	return Seat{Row: row, Number: n, Tier: TierForRow(int(row - 'A'))}, nil
}

// Row is one lettered row of a layout.
type Row struct {
	Label byte
	Tier  Tier
	Seats []Seat
}

// Layout is the ordered seat map for a show of a given capacity.  Rows are
// filled front to back; generation stops once capacity seats have been
// emitted or MaxRows rows exist, whichever comes first.
type Layout struct {
	requested int
	size      int
	rows      []Row
	index     map[string]Seat
}

// NewLayout builds the layout for capacity seats.  Negative capacities are
// treated as zero.  Capacities above MaxSeats are truncated to MaxSeats and
// the layout reports Truncated.
func NewLayout(capacity int) Layout {
	if capacity < 0 {
		capacity = 0
	}
	l := Layout{requested: capacity, index: make(map[string]Seat)}
	remaining := capacity
	for r := 0; r < MaxRows && remaining > 0; r++ {
		width := rowWidth(r)
		if width > remaining {
			width = remaining
		}
		row := Row{Label: byte('A' + r), Tier: TierForRow(r), Seats: make([]Seat, 0, width)}
		for n := 1; n <= width; n++ {
			s := Seat{Row: row.Label, Number: n, Tier: row.Tier}
			row.Seats = append(row.Seats, s)
			l.index[s.Label()] = s
		}
		l.rows = append(l.rows, row)
		l.size += width
		remaining -= width
	}
	return l
}

// Rows returns the rows of the layout in front-to-back order.
func (l Layout) Rows() []Row { return l.rows }

// Size is the number of addressable seats.
func (l Layout) Size() int { return l.size }

// Requested is the capacity the layout was built for.
func (l Layout) Requested() int { return l.requested }

// Truncated reports whether the capacity exceeded what MaxRows can address.
func (l Layout) Truncated() bool { return l.requested > l.size }

// Seats returns every seat in layout order.
func (l Layout) Seats() []Seat {
	out := make([]Seat, 0, l.size)
	for _, r := range l.rows {
		out = append(out, r.Seats...)
	}
	return out
}

// Lookup parses label and reports whether that seat exists in the layout.
func (l Layout) Lookup(label string) (Seat, bool) {
	s, err := ParseSeat(label)
	if err != nil {
		return Seat{}, false
	}
	s, ok := l.index[s.Label()]
	return s, ok
}

// Contains reports whether label addresses a seat in the layout.
func (l Layout) Contains(label string) bool {
	_, ok := l.Lookup(label)
	return ok
}
