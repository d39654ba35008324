package router // route registration for the API

import (
	"github.com/labstack/echo/v4" // web framework

	"github.com/iliyamo/movie-ticket-storefront/internal/handler"    // endpoint implementations
	"github.com/iliyamo/movie-ticket-storefront/internal/middleware" // JWT, role, rate limit and cache
	"github.com/iliyamo/movie-ticket-storefront/internal/model"      // role names
)

// RegisterRoutes registers the unauthenticated probes.  db may be nil when
// the in-memory store is in use.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)              // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess) // access token only
	g.POST("/logout", a.Logout)                // refresh_token body or bearer header

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the browse endpoints.  cache wraps the catalog
// and show listings; booked-seats is never cached.
func RegisterPublic(e *echo.Echo, s *handler.ShowHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/shows", s.List, cache)
	g.GET("/shows/:id", s.Get, cache)
	g.GET("/shows/:id/layout", s.Layout, cache)
	g.GET("/shows/:id/booked-seats", s.BookedSeats)
	g.GET("/movies", s.Movies, cache)
	g.GET("/theatres", s.Theatres, cache)
	g.GET("/screens", s.Screens, cache)
}

// RegisterCustomer registers booking endpoints.  Any authenticated account
// may book; ownership is enforced by the booking service.  limiter applies
// to booking submission only.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.POST("/bookings", b.Submit, limiter)
	g.GET("/bookings/:id", b.Get)
	g.DELETE("/bookings/:id", b.Cancel)
	g.POST("/bookings/:id/cancel", b.Cancel)
	g.GET("/my-bookings", b.ListMine)
}

// RegisterAdmin registers the admin panel under /v1/admin.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/shows", a.AddShow)
	g.POST("/theatres", a.AddTheatre)
	g.POST("/screens", a.AddScreen)
	g.POST("/movies", a.AddMovie)
	g.GET("/bookings", a.ListBookings)
	g.GET("/stats", a.Stats)
}
