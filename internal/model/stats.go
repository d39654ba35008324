package model

// Rollup is the count and revenue of confirmed bookings in a time window.
type Rollup struct {
	Bookings int   `json:"bookings"`
	Revenue  int64 `json:"revenue"`
}

// MovieStat is one row of a movie leaderboard.
type MovieStat struct {
	MovieID  uint64 `json:"movie_id"`
	Title    string `json:"title"`
	Bookings int    `json:"bookings"`
	Revenue  int64  `json:"revenue"`
}

// MovieRank selects the ordering of a movie leaderboard.
type MovieRank string

const (
	RankByBookings MovieRank = "bookings"
	RankByRevenue  MovieRank = "revenue"
)
