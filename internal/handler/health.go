package handler // HTTP handlers

import (
	"context"  // bounds the readiness probe
	"net/http" // status codes
	"time"     // probe timeout

	"github.com/labstack/echo/v4" // web framework
)

// Health is a liveness probe for load balancers.  It returns a plain text
// "ok" whenever the process is serving requests.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Ready returns a readiness probe that also checks the backing store.  A
// nil pinger (in-memory store) is always ready.
func Ready(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.JSON(http.StatusOK, echo.Map{"status": "ready", "store": "memory"})
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": KindTransient, "message": "database unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready", "store": "mysql"})
	}
}
