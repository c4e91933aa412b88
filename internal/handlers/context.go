package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ripplefeed/backend/internal/models"
)

// getUserIDFromContext returns the authenticated user's ID, or 0 for
// anonymous requests.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return 0
	}
	return claims.UserID
}

// callerDocumentID returns the caller's ID in the decimal-string form stored
// on MongoDB documents, or "" for anonymous requests.
func callerDocumentID(c echo.Context) string {
	id := getUserIDFromContext(c)
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}
