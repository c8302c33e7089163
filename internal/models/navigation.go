package models

import "time"

// NavMode selects which display strategy is active. Exactly one mode is
// active at a time.
type NavMode string

const (
	NavModePresetRange   NavMode = "preset-range"
	NavModePagination    NavMode = "pagination"
	NavModeSlidingWindow NavMode = "sliding-window"
	NavModeSegmented     NavMode = "segmented"
)

// DefaultSegmentDuration is the segmentation bucket size when none is given.
const DefaultSegmentDuration = 30 * time.Minute

// ZoomDomain is a user brush sub-selection over the active time range,
// in epoch milliseconds.
type ZoomDomain struct {
	StartMillis int64 `json:"start"`
	EndMillis   int64 `json:"end"`
}

// NavigationState carries the active mode and its parameters. The zoom
// domain is cleared whenever the mode or any parameter changes, so a stale
// sub-selection never survives a navigation change.
type NavigationState struct {
	Mode NavMode `json:"mode"`

	// Preset-range bounds, epoch ms. Nil means unconstrained on that side.
	RangeStart *int64 `json:"rangeStart,omitempty"`
	RangeEnd   *int64 `json:"rangeEnd,omitempty"`

	// Pagination: 1-based page index.
	Page int `json:"page,omitempty"`

	// Sliding window duration, ms.
	WindowMillis int64 `json:"windowMillis,omitempty"`

	// Segmentation bucket duration, ms.
	SegmentMillis int64 `json:"segmentMillis,omitempty"`

	Zoom *ZoomDomain `json:"zoom,omitempty"`
}

// DefaultNavigation returns the initial navigation state for a new dataset.
func DefaultNavigation() NavigationState {
	return NavigationState{
		Mode:          NavModePresetRange,
		Page:          1,
		SegmentMillis: DefaultSegmentDuration.Milliseconds(),
	}
}
