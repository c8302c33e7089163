package models

// DatasetStatus represents the status of an extraction dataset.
type DatasetStatus string

const (
	DatasetStatusPending    DatasetStatus = "pending"
	DatasetStatusExtracting DatasetStatus = "extracting"
	DatasetStatusComplete   DatasetStatus = "complete"
	DatasetStatusError      DatasetStatus = "error"
)

// Dataset describes one extraction run: one uploaded log plus one pattern
// selection. A new upload or pattern change discards and rebuilds the whole
// dataset; Generation identifies the run so stale completions are ignored.
type Dataset struct {
	ID               string         `json:"id"`
	Generation       uint64         `json:"generation"`
	Status           DatasetStatus  `json:"status"`
	Progress         float64        `json:"progress"` // 0-100
	StatusMessage    string         `json:"statusMessage,omitempty"`
	SampleCount      int            `json:"sampleCount"`
	SignalCount      int            `json:"signalCount"`
	ProcessingTimeMs int64          `json:"processingTimeMs,omitempty"`
	StartTime        int64          `json:"startTime,omitempty"` // Unix ms
	EndTime          int64          `json:"endTime,omitempty"`   // Unix ms
	NeverMatched     []string       `json:"neverMatched,omitempty"`
	Errors           []ExtractError `json:"errors,omitempty"`
}

// ExtractError represents a terminal error encountered during extraction.
type ExtractError struct {
	Reason string `json:"reason"`
}

// NewDataset creates a Dataset in pending status for generation 1.
func NewDataset(id string) *Dataset {
	return &Dataset{
		ID:         id,
		Generation: 1,
		Status:     DatasetStatusPending,
		Progress:   0,
		Errors:     make([]ExtractError, 0),
	}
}
