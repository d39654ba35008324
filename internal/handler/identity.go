package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
)

// getUserID reads the "user_id" value stored by the JWT middleware.  Any
// numeric form is accepted so tests can set the key directly.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		if t > 0 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, repository.ErrUnauthenticated
}

// callerFrom builds the identity the request acts as.
func callerFrom(c echo.Context) (model.Caller, error) {
	uid, err := getUserID(c)
	if err != nil || uid == 0 {
		return model.Caller{}, repository.ErrUnauthenticated
	}
	role, _ := c.Get("role").(string)
	return model.Caller{UserID: uid, Role: role}, nil
}
