package middleware // reusable HTTP middleware

import (
	"net/http" // status codes
	"strings"  // bearer prefix handling

	"github.com/labstack/echo/v4" // middleware chaining

	"github.com/iliyamo/movie-ticket-storefront/internal/utils"
)

// JWTAuth validates a Bearer access token and stores its subject and role
// under the context keys "user_id" (uint64) and "role".  Failures are 401
// with the same body shape as every other API error.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthenticated(c, "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return unauthenticated(c, "invalid token")
			}
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": msg})
}
