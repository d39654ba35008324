package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/service"
)

// AdminHandler serves the admin panel: scheduling, catalog maintenance,
// the audit list of bookings and the stats dashboard.  Routes are guarded
// by RequireRole(ADMIN); the services check the role again.
type AdminHandler struct {
	Shows     *service.ShowService
	Catalog   *service.CatalogService
	Bookings  *service.BookingService
	Analytics *service.StatsService
}

func NewAdminHandler(shows *service.ShowService, catalog *service.CatalogService, bookings *service.BookingService, stats *service.StatsService) *AdminHandler {
	return &AdminHandler{Shows: shows, Catalog: catalog, Bookings: bookings, Analytics: stats}
}

type addShowReq struct {
	MovieID   uint64 `json:"movie_id" validate:"required,gt=0"`
	ScreenID  uint64 `json:"screen_id" validate:"required,gt=0"`
	ShowDate  string `json:"show_date" validate:"required,datetime=2006-01-02"`
	ShowTime  string `json:"show_time" validate:"required"`
	PriceTier string `json:"price_tier" validate:"omitempty,oneof=standard premium vip STANDARD PREMIUM VIP"`
	BasePrice int64  `json:"base_price" validate:"required,gt=0"`
}

// AddShow handles POST /v1/admin/shows.
func (h *AdminHandler) AddShow(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	var req addShowReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	sh, err := h.Shows.AddShow(c.Request().Context(), caller, service.NewShow{
		MovieID:   req.MovieID,
		ScreenID:  req.ScreenID,
		Date:      req.ShowDate,
		Time:      req.ShowTime,
		PriceTier: req.PriceTier,
		BasePrice: req.BasePrice,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, sh)
}

type addTheatreReq struct {
	Name string `json:"name" validate:"required,max=150"`
	City string `json:"city" validate:"max=100"`
}

// AddTheatre handles POST /v1/admin/theatres.
func (h *AdminHandler) AddTheatre(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	var req addTheatreReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	t, err := h.Catalog.AddTheatre(c.Request().Context(), caller, model.Theatre{Name: req.Name, City: req.City})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

type addScreenReq struct {
	TheatreID uint64 `json:"theatre_id" validate:"required,gt=0"`
	Name      string `json:"screen_name" validate:"required,max=100"`
	Type      string `json:"type" validate:"max=20"`
	Capacity  int    `json:"capacity" validate:"required,gt=0,max=1000"`
}

// AddScreen handles POST /v1/admin/screens.
func (h *AdminHandler) AddScreen(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	var req addScreenReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	sc, err := h.Catalog.AddScreen(c.Request().Context(), caller, model.Screen{
		TheatreID: req.TheatreID, Name: req.Name, Type: req.Type, Capacity: req.Capacity,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, sc)
}

type addMovieReq struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Genre       string  `json:"genre" validate:"max=50"`
	Language    string  `json:"language" validate:"max=50"`
	DurationMin int     `json:"duration_min" validate:"min=0"`
	Rating      float64 `json:"rating" validate:"min=0,max=10"`
	Status      string  `json:"status" validate:"omitempty,oneof=now_showing coming_soon archived"`
}

// AddMovie handles POST /v1/admin/movies.
func (h *AdminHandler) AddMovie(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	var req addMovieReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	m, err := h.Catalog.AddMovie(c.Request().Context(), caller, model.Movie{
		Title: req.Title, Genre: req.Genre, Language: req.Language,
		DurationMin: req.DurationMin, Rating: req.Rating, Status: req.Status,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// ListBookings handles GET /v1/admin/bookings?limit=.  Cancelled bookings
// are included.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, err := h.Bookings.ListAll(c.Request().Context(), caller, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// Stats handles GET /v1/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return respondError(c, err)
	}
	st, err := h.Analytics.Stats(c.Request().Context(), caller)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, st)
}
