package model

// Theatre is a venue containing one or more screens.
type Theatre struct {
	ID   uint64 `json:"theatre_id"` // theatres.id
	Name string `json:"name"`       // theatres.name
	City string `json:"city"`       // theatres.city
}

// Screen is an auditorium inside a theatre.  Its Capacity is the fixed
// seat count that every show scheduled on it inherits.
//
// Fields:
//
//	ID          – primary key identifier.
//	TheatreID   – theatre the screen belongs to.
//	TheatreName – joined theatre name, filled by listing queries.
//	City        – joined theatre city, filled by listing queries.
//	Name        – display name (e.g. "Screen 1").
//	Type        – projection format label (2D, 3D, IMAX...).
//	Capacity    – number of physical seats.
//	Status      – active or inactive.
type Screen struct {
	ID          uint64 `json:"screen_id"`              // screens.id
	TheatreID   uint64 `json:"theatre_id"`             // screens.theatre_id
	TheatreName string `json:"theatre_name,omitempty"` // theatres.name
	City        string `json:"city,omitempty"`         // theatres.city
	Name        string `json:"screen_name"`            // screens.name
	Type        string `json:"type"`                   // screens.type
	Capacity    int    `json:"capacity"`               // screens.capacity
	Status      string `json:"status"`                 // screens.status
}

// Movie is a title that can be scheduled.
type Movie struct {
	ID          uint64  `json:"movie_id"`     // movies.id
	Title       string  `json:"title"`        // movies.title
	Genre       string  `json:"genre"`        // movies.genre
	Language    string  `json:"language"`     // movies.language
	DurationMin int     `json:"duration_min"` // movies.duration_min
	Rating      float64 `json:"rating"`       // movies.rating
	Status      string  `json:"status"`       // movies.status (now_showing, coming_soon, archived)
}

const (
	ScreenActive    = "active"
	MovieNowShowing = "now_showing"
)
