package models

import (
	"encoding/json"
	"time"
)

// TypedSample is one extracted data point: the line's timestamp plus the
// value of every known signal at that instant. Values are float64 or string.
// At least one value was freshly matched on the source line; the rest were
// filled by carry-forward.
type TypedSample struct {
	Timestamp time.Time
	Values    map[string]interface{}
}

// FormattedRecord is a TypedSample flattened for rendering: epoch
// milliseconds plus a numeric value per signal. String values are
// ordinal-encoded with the original text preserved in Originals.
type FormattedRecord struct {
	TimestampMillis int64
	Values          map[string]float64
	Originals       map[string]string
}

// Flatten returns the wire shape consumed by the chart layer:
// {"timestamp": ms, "<signal>": number, "<signal>_original": string}.
func (r FormattedRecord) Flatten() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Values)+len(r.Originals)+1)
	out["timestamp"] = r.TimestampMillis
	for name, v := range r.Values {
		out[name] = v
	}
	for name, s := range r.Originals {
		out[name+"_original"] = s
	}
	return out
}

// MarshalJSON emits the flattened wire shape.
func (r FormattedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flatten())
}

// DisplayStats describes what the active display strategy produced.
// Purely observational, recomputed on every selection.
type DisplayStats struct {
	Total        int `json:"total"`
	Displayed    int `json:"displayed"`
	SamplingRate int `json:"samplingRate"` // 1 = no decimation
	CurrentPage  int `json:"currentPage,omitempty"`
	TotalPages   int `json:"totalPages,omitempty"`
}
