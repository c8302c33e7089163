// handlers_test.go - Tests for dataset and view handlers
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/log-grapher/backend/internal/logging"
	"github.com/log-grapher/backend/internal/models"
	"github.com/log-grapher/backend/internal/session"
)

var testPatterns = []models.Pattern{
	{Name: "CPU", Regex: `CPU:\s*(\d+)`},
}

func newTestHandler(t *testing.T) (*Handler, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(logging.Nop(), session.Options{TempDir: t.TempDir()})
	return NewHandler(mgr), mgr
}

func testLog(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "2024/01/01 %02d:%02d:%02d.000000 CPU: %d\n",
			i/3600, (i/60)%60, i%60, i)
	}
	return b.String()
}

// viewResponse mirrors the view JSON: records are emitted in flattened wire
// shape, so they decode as generic maps.
type viewResponse struct {
	Records []map[string]interface{} `json:"records"`
	Stats   models.DisplayStats      `json:"stats"`
}

func newJSONContext(e *echo.Echo, method, path string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// startDataset starts an extraction and waits for it to finish.
func startDataset(t *testing.T, h *Handler, mgr *session.Manager, text string) string {
	t.Helper()
	e := echo.New()
	c, rec := newJSONContext(e, http.MethodPost, "/api/datasets", startExtractRequest{
		Text:     text,
		Patterns: testPatterns,
	})
	if err := h.HandleStartExtract(c); err != nil {
		t.Fatalf("start extract failed: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var ds models.Dataset
	if err := json.Unmarshal(rec.Body.Bytes(), &ds); err != nil {
		t.Fatalf("failed to unmarshal dataset: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		cur, ok := mgr.GetDataset(ds.ID)
		if !ok {
			t.Fatal("dataset disappeared")
		}
		if cur.Status == models.DatasetStatusComplete || cur.Status == models.DatasetStatusError {
			return ds.ID
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("extraction did not finish in time")
	return ""
}

func TestHandleStartExtract(t *testing.T) {
	tests := []struct {
		name       string
		request    startExtractRequest
		wantStatus int
		wantErr    bool
		errCode    string
	}{
		{
			name: "valid request",
			request: startExtractRequest{
				Text:     testLog(10),
				Patterns: testPatterns,
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "no patterns",
			request: startExtractRequest{
				Text: testLog(10),
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name: "duplicate pattern names",
			request: startExtractRequest{
				Text: testLog(10),
				Patterns: []models.Pattern{
					{Name: "CPU", Regex: `CPU:\s*(\d+)`},
					{Name: "CPU", Regex: `cpu=(\d+)`},
				},
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "BAD_REQUEST",
		},
		{
			name: "pattern without capture group",
			request: startExtractRequest{
				Text:     testLog(10),
				Patterns: []models.Pattern{{Name: "CPU", Regex: `CPU:\s*\d+`}},
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			e := echo.New()
			c, rec := newJSONContext(e, http.MethodPost, "/api/datasets", tt.request)

			err := h.HandleStartExtract(c)

			if tt.wantErr {
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Fatalf("expected APIError, got %T (%v)", err, err)
				}
				if apiErr.Status != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
				}
				if apiErr.Code != tt.errCode {
					t.Errorf("expected error code %s, got %s", tt.errCode, apiErr.Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var ds models.Dataset
			if err := json.Unmarshal(rec.Body.Bytes(), &ds); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if ds.ID == "" {
				t.Error("expected non-empty dataset ID")
			}
			if ds.Status != models.DatasetStatusPending {
				t.Errorf("expected pending status, got %s", ds.Status)
			}
		})
	}
}

func TestHandleDatasetStatus(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := startDataset(t, h, mgr, testLog(50))

	e := echo.New()
	c, rec := newJSONContext(e, http.MethodGet, "/api/datasets/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(id)

	if err := h.HandleDatasetStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ds models.Dataset
	if err := json.Unmarshal(rec.Body.Bytes(), &ds); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if ds.Status != models.DatasetStatusComplete {
		t.Errorf("expected complete, got %s", ds.Status)
	}
	if ds.SampleCount != 50 {
		t.Errorf("expected 50 records, got %d", ds.SampleCount)
	}

	c, _ = newJSONContext(e, http.MethodGet, "/api/datasets/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues("does-not-exist")
	err := h.HandleDatasetStatus(c)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestHandleGetView(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := startDataset(t, h, mgr, testLog(200))

	e := echo.New()
	c, rec := newJSONContext(e, http.MethodGet, "/api/datasets/:id/view", nil)
	c.SetParamNames("id")
	c.SetParamValues(id)

	if err := h.HandleGetView(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var view viewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to unmarshal view: %v", err)
	}
	if view.Stats.Total != 200 {
		t.Errorf("expected total 200, got %d", view.Stats.Total)
	}
	if len(view.Records) != 200 {
		t.Errorf("200 records fit the default budget, got %d", len(view.Records))
	}
	if _, ok := view.Records[0]["timestamp"]; !ok {
		t.Error("records must be in flattened wire shape")
	}
	if _, ok := view.Records[0]["CPU"]; !ok {
		t.Error("expected CPU value in flattened record")
	}
}

func TestHandleSetNavigation(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := startDataset(t, h, mgr, testLog(200))

	e := echo.New()
	nav := models.NavigationState{Mode: models.NavModePagination, Page: 1}
	c, rec := newJSONContext(e, http.MethodPut, "/api/datasets/:id/navigation", nav)
	c.SetParamNames("id")
	c.SetParamValues(id)

	if err := h.HandleSetNavigation(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var view viewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to unmarshal view: %v", err)
	}
	if view.Stats.CurrentPage != 1 || view.Stats.TotalPages != 1 {
		t.Errorf("expected page 1 of 1, got %d of %d", view.Stats.CurrentPage, view.Stats.TotalPages)
	}

	// Unknown navigation mode is rejected.
	bad := map[string]string{"mode": "spiral"}
	c, _ = newJSONContext(e, http.MethodPut, "/api/datasets/:id/navigation", bad)
	c.SetParamNames("id")
	c.SetParamValues(id)
	err := h.HandleSetNavigation(c)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR for unknown mode, got %v", err)
	}
}

func TestHandleSetBudget(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := startDataset(t, h, mgr, testLog(100))

	tests := []struct {
		name    string
		budget  int
		wantErr bool
	}{
		{"minimum accepted", MinBudget, false},
		{"maximum accepted", MaxBudget, false},
		{"below minimum", MinBudget - 1, true},
		{"above maximum", MaxBudget + 1, true},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c, rec := newJSONContext(e, http.MethodPut, "/api/datasets/:id/budget", budgetRequest{Budget: tt.budget})
			c.SetParamNames("id")
			c.SetParamValues(id)

			err := h.HandleSetBudget(c)
			if tt.wantErr {
				apiErr, ok := err.(*APIError)
				if !ok || apiErr.Code != "VALIDATION_ERROR" {
					t.Errorf("expected VALIDATION_ERROR, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200 with recomputed view, got %d", rec.Code)
			}
		})
	}
}

func TestHandleZoomBrush(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := startDataset(t, h, mgr, testLog(100))
	ds, _ := mgr.GetDataset(id)

	tests := []struct {
		name         string
		start, end   int64
		wantAccepted bool
	}{
		{"valid selection", ds.StartTime + 10000, ds.StartTime + 30000, true},
		{"inverted selection", ds.StartTime + 30000, ds.StartTime + 10000, false},
		{"collapsed point", ds.StartTime, ds.StartTime, false},
		{"no records in range", ds.EndTime + 10000, ds.EndTime + 20000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c, rec := newJSONContext(e, http.MethodPost, "/api/datasets/:id/zoom", zoomRequest{Start: tt.start, End: tt.end})
			c.SetParamNames("id")
			c.SetParamValues(id)

			if err := h.HandleZoomBrush(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var resp zoomResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Accepted != tt.wantAccepted {
				t.Errorf("expected accepted=%v, got %v", tt.wantAccepted, resp.Accepted)
			}
		})
	}

	// Reset returns 204 and restores the full view.
	e := echo.New()
	c, rec := newJSONContext(e, http.MethodDelete, "/api/datasets/:id/zoom", nil)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if err := h.HandleResetZoom(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandleSignals(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := startDataset(t, h, mgr, testLog(20))

	e := echo.New()
	c, rec := newJSONContext(e, http.MethodGet, "/api/datasets/:id/signals", nil)
	c.SetParamNames("id")
	c.SetParamValues(id)

	if err := h.HandleGetSignals(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Signals []models.Signal `json:"signals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Signals) != 1 || resp.Signals[0].Name != "CPU" {
		t.Fatalf("expected single CPU signal, got %v", resp.Signals)
	}

	c, rec = newJSONContext(e, http.MethodPut, "/api/datasets/:id/signals/:name/visibility", visibilityRequest{Visible: false})
	c.SetParamNames("id", "name")
	c.SetParamValues(id, "CPU")
	if err := h.HandleSetSignalVisibility(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c, _ = newJSONContext(e, http.MethodPut, "/api/datasets/:id/signals/:name/visibility", visibilityRequest{Visible: false})
	c.SetParamNames("id", "name")
	c.SetParamValues(id, "NoSuchSignal")
	err := h.HandleSetSignalVisibility(c)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND for unknown signal, got %v", err)
	}
}

func TestHandleDeleteDataset(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := startDataset(t, h, mgr, testLog(10))

	e := echo.New()
	c, rec := newJSONContext(e, http.MethodDelete, "/api/datasets/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if err := h.HandleDeleteDataset(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c, _ = newJSONContext(e, http.MethodDelete, "/api/datasets/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(id)
	err := h.HandleDeleteDataset(c)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND on second delete, got %v", err)
	}
}

func TestHandleGetPatterns(t *testing.T) {
	h, _ := newTestHandler(t)
	h.SetPatternLibrary(testPatterns)

	e := echo.New()
	c, rec := newJSONContext(e, http.MethodGet, "/api/patterns", nil)
	if err := h.HandleGetPatterns(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Patterns []models.Pattern `json:"patterns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Patterns) != 1 {
		t.Errorf("expected 1 pattern, got %d", len(resp.Patterns))
	}
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	c, rec := newJSONContext(e, http.MethodGet, "/api/health", nil)
	if err := h.HandleHealth(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
