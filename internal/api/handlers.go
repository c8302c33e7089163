// Package api exposes the extraction pipeline over HTTP: dataset lifecycle,
// progress streaming, signal management, display views and zoom control.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/log-grapher/backend/internal/models"
	"github.com/log-grapher/backend/internal/session"
)

// Point budget bounds accepted from clients. The pipeline itself works with
// any budget >= 1; this is the practical interactive range.
const (
	MinBudget = 1000
	MaxBudget = 50000
)

// Handler holds the dependencies for all API handlers.
type Handler struct {
	datasets *session.Manager
	library  []models.Pattern
}

// NewHandler creates an API handler backed by a dataset manager.
func NewHandler(datasets *session.Manager) *Handler {
	return &Handler{datasets: datasets}
}

// SetPatternLibrary installs the default pattern library served by
// HandleGetPatterns.
func (h *Handler) SetPatternLibrary(patterns []models.Pattern) {
	h.library = patterns
}

// HandleHealth reports service liveness.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetPatterns returns the default pattern library.
func (h *Handler) HandleGetPatterns(c echo.Context) error {
	patterns := h.library
	if patterns == nil {
		patterns = []models.Pattern{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patterns": patterns})
}

// RegisterRoutes attaches all API routes to a group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.HandleHealth)
	g.GET("/patterns", h.HandleGetPatterns)

	g.POST("/datasets", h.HandleStartExtract)
	g.POST("/datasets/:id/replace", h.HandleReplaceExtract)
	g.GET("/datasets/:id", h.HandleDatasetStatus)
	g.GET("/datasets/:id/progress", h.HandleProgressStream)
	g.DELETE("/datasets/:id", h.HandleDeleteDataset)
	g.POST("/datasets/:id/keepalive", h.HandleKeepAlive)

	g.GET("/datasets/:id/signals", h.HandleGetSignals)
	g.PUT("/datasets/:id/signals/:name/visibility", h.HandleSetSignalVisibility)

	g.GET("/datasets/:id/view", h.HandleGetView)
	g.GET("/datasets/:id/view/msgpack", h.HandleGetViewMsgpack)
	g.PUT("/datasets/:id/navigation", h.HandleSetNavigation)
	g.PUT("/datasets/:id/budget", h.HandleSetBudget)
	g.POST("/datasets/:id/zoom", h.HandleZoomBrush)
	g.DELETE("/datasets/:id/zoom", h.HandleResetZoom)
}
