package display

import "github.com/log-grapher/backend/internal/models"

// zoomBudgetDivisor shrinks the point budget for zoomed views: a zoom
// renders a possibly-small sub-range at high density, so it gets a smaller
// visible-point budget than the full dashboard view.
const zoomBudgetDivisor = 2

// View is the output of one strategy selection: either a flat record subset
// or, in segmented mode, a list of independent segments, plus the stats the
// status display shows.
type View struct {
	Records  []models.FormattedRecord `json:"records,omitempty"`
	Segments []Segment                `json:"segments,omitempty"`
	Stats    models.DisplayStats      `json:"stats"`
}

// Select runs the strategy chosen by nav over the full chronological record
// sequence with the given point budget and returns the subset to render.
// The four strategies are mutually exclusive; zoom composes as a further
// filter on the window-based modes.
func Select(records []models.FormattedRecord, nav models.NavigationState, budget int) View {
	switch nav.Mode {
	case models.NavModePagination:
		page, clamped, totalPages := Paginate(records, budget, nav.Page)
		return View{
			Records: page,
			Stats: models.DisplayStats{
				Total:        len(records),
				Displayed:    len(page),
				SamplingRate: 1,
				CurrentPage:  clamped,
				TotalPages:   totalPages,
			},
		}

	case models.NavModeSegmented:
		duration := nav.SegmentMillis
		if duration <= 0 {
			duration = models.DefaultSegmentDuration.Milliseconds()
		}
		segments := Segmentize(records, duration)
		displayed := 0
		for _, s := range segments {
			displayed += len(s.Records)
		}
		return View{
			Segments: segments,
			Stats: models.DisplayStats{
				Total:        len(records),
				Displayed:    displayed,
				SamplingRate: 1,
			},
		}

	case models.NavModeSlidingWindow:
		candidates := records
		if nav.WindowMillis > 0 && len(records) > 0 {
			start := records[len(records)-1].TimestampMillis - nav.WindowMillis
			candidates = FilterWindow(records, &start, nil)
		}
		return windowedView(records, candidates, nav.Zoom, budget)

	default: // preset-range
		candidates := FilterWindow(records, nav.RangeStart, nav.RangeEnd)
		return windowedView(records, candidates, nav.Zoom, budget)
	}
}

// windowedView applies the optional zoom filter and then stride decimation
// to a window-filtered candidate set. Zoomed views use the reduced budget.
func windowedView(all, candidates []models.FormattedRecord, zoom *models.ZoomDomain, budget int) View {
	effective := budget
	if zoom != nil {
		candidates = FilterWindow(candidates, &zoom.StartMillis, &zoom.EndMillis)
		effective = budget / zoomBudgetDivisor
		if effective < 1 {
			effective = 1
		}
	}
	out, rate := Decimate(candidates, effective)
	return View{
		Records: out,
		Stats: models.DisplayStats{
			Total:        len(all),
			Displayed:    len(out),
			SamplingRate: rate,
		},
	}
}
