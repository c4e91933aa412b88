package handlers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// uploadPrefix is the object-store namespace all API-managed media lives
// under. Delete requests outside it are rejected.
const uploadPrefix = "uploads/"

// ObjectStore is the slice of the storage bucket the media handler uses.
type ObjectStore interface {
	Enabled() bool
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// MediaHandler handles media upload and deletion against object storage
type MediaHandler struct {
	storage ObjectStore
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(storage ObjectStore) *MediaHandler {
	return &MediaHandler{storage: storage}
}

// RegisterMediaRoutes registers the authenticated media routes
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.POST("/media", h.Upload)
	g.DELETE("/media", h.Delete)
}

// Upload streams a multipart file into the bucket under a fresh key
func (h *MediaHandler) Upload(c echo.Context) error {
	if !h.storage.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Media storage is not configured")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file in request")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to read uploaded file")
	}
	defer src.Close()

	key := uploadPrefix + primitive.NewObjectID().Hex() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")

	url, err := h.storage.Upload(c.Request().Context(), key, src, contentType)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store file")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data":    echo.Map{"key": key, "url": url},
	})
}

// Delete removes an object by key. Only keys inside the upload namespace are
// accepted.
func (h *MediaHandler) Delete(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing key parameter")
	}
	if !strings.HasPrefix(key, uploadPrefix) || strings.Contains(key, "..") {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid media key")
	}

	if err := h.storage.Delete(c.Request().Context(), key); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete file")
	}
	return c.NoContent(http.StatusNoContent)
}
