package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const restaurantIDContextKey = "restaurant_id"

// RequireOwner is an Echo middleware that runs after JWT validation and
// admits only owner-role tokens, stashing the tenant id in the context.
func RequireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
		}
		if claims.Role != RoleOwner {
			return echo.NewHTTPError(http.StatusForbidden, "owner role required")
		}
		if claims.RestaurantID == uuid.Nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "token has no restaurant")
		}
		c.Set(restaurantIDContextKey, claims.RestaurantID)
		return next(c)
	}
}

// RestaurantID returns the tenant id stashed by RequireOwner.
func RestaurantID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(restaurantIDContextKey).(uuid.UUID)
	return id, ok
}
