package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/subatomicERROR/codenano-sub000/internal/models"
)

// getUserIDFromContext returns the authenticated user's ID, or 0 when the
// request carries no valid claims.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}

// mapPersistenceError converts a raw backing-store failure into a user-facing
// HTTP error. Known backend substrings get friendlier messages and distinct
// status codes; anything else passes the raw message through at 500.
func mapPersistenceError(err error) *echo.HTTPError {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "does not exist"):
		return echo.NewHTTPError(http.StatusServiceUnavailable,
			"Storage is not provisioned yet, please try again later")
	case strings.Contains(msg, "duplicate key"):
		return echo.NewHTTPError(http.StatusConflict,
			"A record with these details already exists")
	case strings.Contains(msg, "violates check constraint"):
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			"The submitted data failed a storage constraint")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, msg)
	}
}
