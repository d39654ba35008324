package middleware

// identity.go holds the helper shared by the rate limiter: turning the
// "user_id" value stored by JWTAuth into a stable string key.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// subject returns the authenticated user id as a string, or "anon" when
// the request carries no identity.
func subject(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		if v > 0 {
			return strconv.FormatUint(uint64(v), 10)
		}
	case uint64:
		if v > 0 {
			return strconv.FormatUint(v, 10)
		}
	}
	return "anon"
}
