// handlers_extract.go - Dataset lifecycle handlers
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/log-grapher/backend/internal/models"
	"github.com/log-grapher/backend/internal/patterns"
)

// startExtractRequest is the body for starting or replacing a dataset.
type startExtractRequest struct {
	Text     string           `json:"text"`
	Patterns []models.Pattern `json:"patterns"`
}

func (r *startExtractRequest) validate() *APIError {
	if len(r.Patterns) == 0 {
		return NewValidationError("patterns")
	}
	if err := patterns.Validate(r.Patterns); err != nil {
		return NewBadRequestError("invalid pattern list", err)
	}
	return nil
}

// HandleStartExtract starts extraction of uploaded log text with an ordered
// pattern list and returns the pending dataset.
func (h *Handler) HandleStartExtract(c echo.Context) error {
	var req startExtractRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if apiErr := req.validate(); apiErr != nil {
		return apiErr
	}

	ds, err := h.datasets.StartExtract(req.Text, req.Patterns)
	if err != nil {
		return NewInternalError("failed to start extraction", err)
	}
	return c.JSON(http.StatusAccepted, ds)
}

// HandleReplaceExtract discards a dataset's current run and starts a new
// one over fresh input. The generation counter guarantees results from the
// superseded run are ignored.
func (h *Handler) HandleReplaceExtract(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req startExtractRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if apiErr := req.validate(); apiErr != nil {
		return apiErr
	}

	ds, ok := h.datasets.Replace(id, req.Text, req.Patterns)
	if !ok {
		return NewNotFoundError("dataset", id)
	}
	return c.JSON(http.StatusAccepted, ds)
}

// HandleDatasetStatus returns the current status of a dataset.
func (h *Handler) HandleDatasetStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	ds, ok := h.datasets.GetDataset(id)
	if !ok {
		return NewNotFoundError("dataset", id)
	}
	h.datasets.Touch(id)
	return c.JSON(http.StatusOK, ds)
}

// HandleKeepAlive extends dataset lifetime for active viewing.
func (h *Handler) HandleKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if ok := h.datasets.Touch(id); !ok {
		return NewNotFoundError("dataset", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleDeleteDataset removes a dataset and frees its resources.
func (h *Handler) HandleDeleteDataset(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if ok := h.datasets.Delete(id); !ok {
		return NewNotFoundError("dataset", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleProgressStream streams extraction progress via SSE.
func (h *Handler) HandleProgressStream(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	ds, ok := h.datasets.GetDataset(id)
	if !ok {
		h.sendSSEError(c, "dataset not found")
		return nil
	}
	h.sendSSEData(c, ds)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			ds, ok := h.datasets.GetDataset(id)
			if !ok {
				h.sendSSEError(c, "dataset not found")
				return nil
			}
			h.sendSSEData(c, ds)
			if ds.Status == models.DatasetStatusComplete ||
				ds.Status == models.DatasetStatusError {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil

		case <-c.Request().Context().Done():
			return nil
		}
	}
}

func (h *Handler) sendSSEData(c echo.Context, payload interface{}) {
	enc, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.Response().Write([]byte("data: "))
	c.Response().Write(enc)
	c.Response().Write([]byte("\n\n"))
	c.Response().Flush()
}

func (h *Handler) sendSSEError(c echo.Context, msg string) {
	c.Response().Write([]byte("event: error\ndata: " + msg + "\n\n"))
	c.Response().Flush()
}
