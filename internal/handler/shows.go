package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-storefront/internal/seating"
	"github.com/iliyamo/movie-ticket-storefront/internal/service"
)

// ShowHandler serves the public browse endpoints.  None of them require a
// token.
type ShowHandler struct {
	Shows    *service.ShowService
	Bookings *service.BookingService
}

func NewShowHandler(shows *service.ShowService, bookings *service.BookingService) *ShowHandler {
	return &ShowHandler{Shows: shows, Bookings: bookings}
}

// List handles GET /v1/shows?movie=&date=&theatre=&page=&per_page=.
func (h *ShowHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	per, _ := strconv.Atoi(c.QueryParam("per_page"))
	res, err := h.Shows.List(c.Request().Context(), service.ShowQuery{
		Movie:   strings.TrimSpace(c.QueryParam("movie")),
		Date:    strings.TrimSpace(c.QueryParam("date")),
		Theatre: strings.TrimSpace(c.QueryParam("theatre")),
		Page:    page,
		PerPage: per,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Get handles GET /v1/shows/:id.
func (h *ShowHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	d, err := h.Shows.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// BookedSeats handles GET /v1/shows/:id/booked-seats.  The response is
// never cached: it is the authoritative view a client refreshes from
// after a conflict.
func (h *ShowHandler) BookedSeats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	av, err := h.Bookings.BookedSeats(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, av)
}

type layoutRow struct {
	Row   string   `json:"row"`
	Tier  string   `json:"tier"`
	Price int64    `json:"price"`
	Seats []string `json:"seats"`
}

// Layout handles GET /v1/shows/:id/layout and returns the seat map rows
// front to back with their tier and price.
func (h *ShowHandler) Layout(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	layout, sh, err := h.Shows.Layout(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	rows := make([]layoutRow, 0, len(layout.Rows()))
	for _, r := range layout.Rows() {
		labels := make([]string, len(r.Seats))
		for i, s := range r.Seats {
			labels[i] = s.Label()
		}
		rows = append(rows, layoutRow{
			Row:   string(r.Label),
			Tier:  r.Tier.String(),
			Price: seating.Price(sh.BasePrice, r.Tier),
			Seats: labels,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id":        sh.ID,
		"capacity":       sh.Capacity,
		"bookable_seats": layout.Size(),
		"truncated":      layout.Truncated(),
		"rows":           rows,
	})
}

// Movies handles GET /v1/movies.
func (h *ShowHandler) Movies(c echo.Context) error {
	ms, err := h.Shows.Movies(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": ms})
}

// Theatres handles GET /v1/theatres.
func (h *ShowHandler) Theatres(c echo.Context) error {
	ts, err := h.Shows.Theatres(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"theatres": ts})
}

// Screens handles GET /v1/screens.
func (h *ShowHandler) Screens(c echo.Context) error {
	ss, err := h.Shows.Screens(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"screens": ss})
}
