package display

import "github.com/log-grapher/backend/internal/models"

// Segment is one fixed-duration bucket rendered as an independent series.
// Members satisfy StartMillis <= timestamp < StartMillis + duration, and
// every point in range is included, unsampled.
type Segment struct {
	StartMillis int64                    `json:"start"`
	EndMillis   int64                    `json:"end"`
	Records     []models.FormattedRecord `json:"records"`
}

// Segmentize partitions the time axis into consecutive, non-overlapping
// buckets of durationMillis, aligned to multiples of the duration relative
// to epoch: bucket start = floor(timestamp/duration)*duration. Trading one
// large chart for many small, fully faithful ones sidesteps decimation loss
// entirely. Empty buckets are dropped, not emitted as blanks.
func Segmentize(records []models.FormattedRecord, durationMillis int64) []Segment {
	if len(records) == 0 || durationMillis <= 0 {
		return nil
	}

	var segments []Segment
	cur := -1
	var curStart int64
	for _, r := range records {
		bucketStart := floorDiv(r.TimestampMillis, durationMillis) * durationMillis
		if cur < 0 || bucketStart != curStart {
			segments = append(segments, Segment{
				StartMillis: bucketStart,
				EndMillis:   bucketStart + durationMillis,
			})
			cur = len(segments) - 1
			curStart = bucketStart
		}
		segments[cur].Records = append(segments[cur].Records, r)
	}
	return segments
}

// floorDiv is integer division rounding toward negative infinity, so
// pre-epoch timestamps still bucket correctly.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
