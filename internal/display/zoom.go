package display

import "github.com/log-grapher/backend/internal/models"

// ZoomState tracks the user's brush sub-selection over the active range.
// idle (no domain) -> zoomed via a valid Brush, back to idle via Reset.
// Mode, parameter and budget changes must call Reset: a zoom is meaningless
// across a navigation change.
type ZoomState struct {
	domain *models.ZoomDomain
}

// Brush applies a selection over [startMillis, endMillis]. The selection is
// accepted only when start < end strictly and the range covers at least two
// underlying records of the candidate set; a selection collapsing to a
// single point or an empty range is rejected and the previous state is
// retained. Returns whether the transition happened.
func (z *ZoomState) Brush(candidates []models.FormattedRecord, startMillis, endMillis int64) bool {
	if startMillis >= endMillis {
		return false
	}
	inRange := FilterWindow(candidates, &startMillis, &endMillis)
	if len(inRange) < 2 {
		return false
	}
	z.domain = &models.ZoomDomain{StartMillis: startMillis, EndMillis: endMillis}
	return true
}

// Reset returns to idle, discarding any active domain.
func (z *ZoomState) Reset() {
	z.domain = nil
}

// Domain returns the active zoom domain, or nil when idle.
func (z *ZoomState) Domain() *models.ZoomDomain {
	return z.domain
}

// Zoomed reports whether a zoom domain is active.
func (z *ZoomState) Zoomed() bool {
	return z.domain != nil
}
