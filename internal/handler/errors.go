package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
)

// Error kinds carried in the "error" field of every failure body.  The
// storefront client switches on these, never on the message text.
const (
	KindValidation      = "validation_error"
	KindConflict        = "conflict"
	KindNotFound        = "not_found"
	KindForbidden       = "forbidden"
	KindUnauthenticated = "unauthenticated"
	KindTransient       = "transient"
	KindInternal        = "internal"
)

// respondError writes err as a JSON failure body with the status its kind
// maps to.  Unexpected errors are logged and hidden behind "internal".
func respondError(c echo.Context, err error) error {
	var (
		ve *repository.ValidationError
		sc *repository.SeatConflictError
	)
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"error": KindValidation, "message": ve.Error()}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		if len(ve.Seats) > 0 {
			body["seats"] = ve.Seats
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &sc):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   KindConflict,
			"message": sc.Error(),
			"seats":   sc.Seats,
		})
	case errors.Is(err, repository.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": KindValidation, "message": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": KindConflict, "message": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": KindNotFound, "message": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": KindForbidden, "message": err.Error()})
	case errors.Is(err, repository.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": KindUnauthenticated, "message": err.Error()})
	case errors.Is(err, repository.ErrTransient):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": KindTransient, "message": err.Error()})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": KindInternal, "message": "internal server error"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, repository.Invalid(name, "must be a positive integer")
	}
	return id, nil
}
