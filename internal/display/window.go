package display

import (
	"sort"

	"github.com/log-grapher/backend/internal/models"
)

// FilterWindow returns the records whose timestamp falls in [start, end],
// bounds inclusive. A nil bound leaves that side unconstrained. Records are
// chronological, so both cuts are binary searches and the result is a
// sub-slice, not a copy.
func FilterWindow(records []models.FormattedRecord, start, end *int64) []models.FormattedRecord {
	lo := 0
	if start != nil {
		lo = sort.Search(len(records), func(i int) bool {
			return records[i].TimestampMillis >= *start
		})
	}
	hi := len(records)
	if end != nil {
		hi = sort.Search(len(records), func(i int) bool {
			return records[i].TimestampMillis > *end
		})
	}
	if lo >= hi {
		return nil
	}
	return records[lo:hi]
}
