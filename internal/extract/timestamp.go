// Package extract implements the log-to-time-series pipeline: line parsing
// with user-defined regex patterns, carry-forward of last-known signal
// values, string-to-ordinal encoding, chunked ingestion and formatting of
// samples into flat renderable records.
package extract

import "time"

// timestampLen is the length of the fixed leading timestamp grammar
// "YYYY/MM/DD HH:mm:ss.ffffff" (6-digit microseconds).
const timestampLen = 26

// ParseLineTimestamp matches a line's prefix against the fixed timestamp
// grammar and parses it into an instant. The bool result is false when the
// prefix does not match or the date is not a valid calendar date; such lines
// are inert for extraction, not errors. Manual digit parsing avoids
// time.Parse on the hot path.
func ParseLineTimestamp(line string) (time.Time, bool) {
	if len(line) < timestampLen {
		return time.Time{}, false
	}
	ts := line[:timestampLen]
	if ts[4] != '/' || ts[7] != '/' || ts[10] != ' ' ||
		ts[13] != ':' || ts[16] != ':' || ts[19] != '.' {
		return time.Time{}, false
	}

	year := parseInt4(ts[0:4])
	month := parseInt2(ts[5:7])
	day := parseInt2(ts[8:10])
	hour := parseInt2(ts[11:13])
	min := parseInt2(ts[14:16])
	sec := parseInt2(ts[17:19])
	micro := parseInt6(ts[20:26])

	if year < 0 || month < 0 || day < 0 || micro < 0 ||
		hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, min, sec, micro*1000, time.UTC)
	// time.Date normalizes out-of-range components (2024/02/30 becomes
	// March 1), so an invalid calendar date is detected by round-trip.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// parseInt2 parses a 2-digit decimal string. Returns -1 on error.
func parseInt2(s string) int {
	d1, d2 := s[0]-'0', s[1]-'0'
	if d1 > 9 || d2 > 9 {
		return -1
	}
	return int(d1)*10 + int(d2)
}

// parseInt4 parses a 4-digit decimal string. Returns -1 on error.
func parseInt4(s string) int {
	n := 0
	for i := 0; i < 4; i++ {
		d := s[i] - '0'
		if d > 9 {
			return -1
		}
		n = n*10 + int(d)
	}
	return n
}

// parseInt6 parses a 6-digit decimal string. Returns -1 on error.
func parseInt6(s string) int {
	n := 0
	for i := 0; i < 6; i++ {
		d := s[i] - '0'
		if d > 9 {
			return -1
		}
		n = n*10 + int(d)
	}
	return n
}
