package display

import "github.com/log-grapher/backend/internal/models"

// Paginate partitions the full chronological sequence into contiguous,
// non-overlapping pages of exactly pageSize records (the last page may be
// shorter). No decimation happens within a page: pagination trades
// population-wide sampling for exact, gap-free access to every record.
// page is 1-based and clamped to the current total page count, which is
// what makes a budget change safe for the viewed page index.
func Paginate(records []models.FormattedRecord, pageSize, page int) (pageRecords []models.FormattedRecord, clampedPage, totalPages int) {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages = (len(records) + pageSize - 1) / pageSize
	if totalPages == 0 {
		return nil, 1, 0
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], page, totalPages
}
