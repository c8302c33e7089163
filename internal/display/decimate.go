// Package display implements the competing downsampling/navigation
// strategies that fit a large formatted series into a point budget:
// stride decimation, time-window filtering, pagination and fixed-duration
// segmentation, plus the range/zoom state that parameterizes them.
package display

import "github.com/log-grapher/backend/internal/models"

// Decimate reduces a chronological record sequence to at most roughly
// budget points by keeping every stride-th record, where
// stride = ceil(count/budget). The last record is appended unconditionally
// when the stride walk did not land on it, so the visible series always
// spans the true first and last timestamp; naive modulo sampling loses the
// tail whenever count mod stride != 0.
//
// The returned rate is the stride (1 means no decimation).
func Decimate(records []models.FormattedRecord, budget int) ([]models.FormattedRecord, int) {
	if budget <= 0 || len(records) <= budget {
		return records, 1
	}

	stride := (len(records) + budget - 1) / budget
	out := make([]models.FormattedRecord, 0, len(records)/stride+2)
	lastKept := -1
	for i := 0; i < len(records); i += stride {
		out = append(out, records[i])
		lastKept = i
	}
	if lastKept != len(records)-1 {
		out = append(out, records[len(records)-1])
	}
	return out, stride
}
