// handlers_view.go - Display strategy, navigation and zoom handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/log-grapher/backend/internal/models"
)

// HandleGetSignals returns the dataset's signal list.
func (h *Handler) HandleGetSignals(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	signals, ok := h.datasets.Signals(id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"signals": signals})
}

// visibilityRequest is the body for a visibility toggle.
type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// HandleSetSignalVisibility toggles one signal's visibility flag.
func (h *Handler) HandleSetSignalVisibility(c echo.Context) error {
	id := c.Param("id")
	name := c.Param("name")
	if id == "" {
		return NewValidationError("id")
	}
	if name == "" {
		return NewValidationError("name")
	}

	var req visibilityRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if !h.datasets.SetSignalVisible(id, name, req.Visible) {
		return NewNotFoundError("signal", name)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSetNavigation replaces the dataset's navigation state (mode plus
// mode parameters) and returns the recomputed view. Any active zoom is
// cleared by the change.
func (h *Handler) HandleSetNavigation(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var nav models.NavigationState
	if err := c.Bind(&nav); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	switch nav.Mode {
	case models.NavModePresetRange, models.NavModePagination,
		models.NavModeSlidingWindow, models.NavModeSegmented:
	default:
		return NewValidationError("mode")
	}

	if !h.datasets.SetNavigation(id, nav) {
		return NewNotFoundError("dataset", id)
	}
	return h.HandleGetView(c)
}

// budgetRequest is the body for a point budget change.
type budgetRequest struct {
	Budget int `json:"budget"`
}

// HandleSetBudget changes the point budget and returns the recomputed view.
// The active strategy re-paginates, re-decimates or re-filters as
// appropriate rather than re-slicing old output.
func (h *Handler) HandleSetBudget(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req budgetRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Budget < MinBudget || req.Budget > MaxBudget {
		return NewValidationError("budget")
	}

	if !h.datasets.SetBudget(id, req.Budget) {
		return NewNotFoundError("dataset", id)
	}
	return h.HandleGetView(c)
}

// HandleGetView returns the active strategy's renderable subset and stats.
func (h *Handler) HandleGetView(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	view, ok := h.datasets.View(c.Request().Context(), id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}
	h.datasets.Touch(id)
	return c.JSON(http.StatusOK, view)
}

// HandleGetViewMsgpack returns the current view in MessagePack form for
// cheap transfer of large record sets.
func (h *Handler) HandleGetViewMsgpack(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	view, ok := h.datasets.View(c.Request().Context(), id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}
	h.datasets.Touch(id)

	records := make([]map[string]interface{}, len(view.Records))
	for i, r := range view.Records {
		records[i] = r.Flatten()
	}
	data, err := msgpack.Marshal(map[string]interface{}{
		"records": records,
		"stats":   view.Stats,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// zoomRequest is the body for a brush selection, epoch ms.
type zoomRequest struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// zoomResponse reports whether the brush selection was accepted.
type zoomResponse struct {
	Accepted bool `json:"accepted"`
}

// HandleZoomBrush applies a brush selection. A selection with start >= end
// or covering fewer than two underlying records is rejected and the
// previous zoom state is retained.
func (h *Handler) HandleZoomBrush(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req zoomRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	accepted, found := h.datasets.Brush(id, req.Start, req.End)
	if !found {
		return NewNotFoundError("dataset", id)
	}
	return c.JSON(http.StatusOK, zoomResponse{Accepted: accepted})
}

// HandleResetZoom returns the zoom state to idle.
func (h *Handler) HandleResetZoom(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if !h.datasets.ResetZoom(id) {
		return NewNotFoundError("dataset", id)
	}
	return c.NoContent(http.StatusNoContent)
}
