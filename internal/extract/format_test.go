package extract

import (
	"testing"
	"time"

	"github.com/log-grapher/backend/internal/logging"
	"github.com/log-grapher/backend/internal/models"
)

func sampleAt(sec int, values map[string]interface{}) models.TypedSample {
	return models.TypedSample{
		Timestamp: time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC),
		Values:    values,
	}
}

func TestFormatterBasic(t *testing.T) {
	in := NewInterner()
	in.Observe("State", "running")
	in.Observe("State", "idle")
	in.Finalize()

	samples := []models.TypedSample{
		sampleAt(0, map[string]interface{}{"CPU": float64(10), "State": "running"}),
		sampleAt(1, map[string]interface{}{"CPU": float64(20), "State": "idle"}),
	}

	fm := NewFormatter(in, FormatOptions{Logger: logging.Nop()})
	records := fm.Format(samples)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Values["CPU"] != 10 {
		t.Errorf("numeric values must pass through unchanged, got %v", records[0].Values["CPU"])
	}
	// idle=1, running=2 lexicographically.
	if records[0].Values["State"] != 2 {
		t.Errorf("expected ordinal 2 for running, got %v", records[0].Values["State"])
	}
	if records[0].Originals["State"] != "running" {
		t.Errorf("original string must be preserved, got %q", records[0].Originals["State"])
	}
	if records[1].Values["State"] != 1 {
		t.Errorf("expected ordinal 1 for idle, got %v", records[1].Values["State"])
	}
	if fm.Inconsistencies() != 0 {
		t.Errorf("expected no inconsistencies, got %d", fm.Inconsistencies())
	}
}

func TestFormatterChronologicalOrder(t *testing.T) {
	in := NewInterner()
	in.Finalize()

	// Input arrives sorted: the run finalizes before formatting.
	var samples []models.TypedSample
	for i := 0; i < 60; i++ {
		samples = append(samples, sampleAt(i, map[string]interface{}{"V": float64(i)}))
	}
	fm := NewFormatter(in, FormatOptions{Logger: logging.Nop()})
	records := fm.Format(samples)

	if len(records) != len(samples) {
		t.Fatalf("expected one record per sample")
	}
	for i := 1; i < len(records); i++ {
		if records[i].TimestampMillis < records[i-1].TimestampMillis {
			t.Fatalf("records must be non-decreasing in time, violated at %d", i)
		}
	}
}

func TestFormatterInconsistencyDetected(t *testing.T) {
	// An interner finalized without ever seeing the value simulates the
	// interner and formatter diverging.
	in := NewInterner()
	in.Observe("State", "known")
	in.Finalize()

	samples := []models.TypedSample{
		sampleAt(0, map[string]interface{}{"State": "never-observed"}),
	}
	fm := NewFormatter(in, FormatOptions{Logger: logging.Nop()})
	records := fm.Format(samples)

	if records[0].Values["State"] != 0 {
		t.Errorf("unmapped string must encode as ordinal 0, got %v", records[0].Values["State"])
	}
	if fm.Inconsistencies() != 1 {
		t.Errorf("expected 1 recorded inconsistency, got %d", fm.Inconsistencies())
	}
}

func TestFormatterFallbackSubsample(t *testing.T) {
	in := NewInterner()
	in.Finalize()

	var samples []models.TypedSample
	for i := 0; i < 1000; i++ {
		samples = append(samples, models.TypedSample{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, i*1000000, time.UTC),
			Values:    map[string]interface{}{"V": float64(i)},
		})
	}

	fm := NewFormatter(in, FormatOptions{MaxRecords: 100, Logger: logging.Nop()})
	records := fm.Format(samples)

	if len(records) > 101 {
		t.Fatalf("expected at most max+1 records, got %d", len(records))
	}
	if fm.Downsampled() == 0 {
		t.Error("expected fallback sub-sampling to be reported")
	}
	// First and last points survive the sub-sample.
	if records[0].Values["V"] != 0 {
		t.Errorf("expected first point kept, got %v", records[0].Values["V"])
	}
	if records[len(records)-1].Values["V"] != 999 {
		t.Errorf("expected last point kept, got %v", records[len(records)-1].Values["V"])
	}
}

func TestFormatterYieldsBetweenBatches(t *testing.T) {
	in := NewInterner()
	in.Finalize()

	var samples []models.TypedSample
	for i := 0; i < 10; i++ {
		samples = append(samples, sampleAt(i, map[string]interface{}{"V": float64(i)}))
	}
	yields := 0
	fm := NewFormatter(in, FormatOptions{BatchSize: 3, Yield: func() { yields++ }, Logger: logging.Nop()})
	fm.Format(samples)

	if yields != 3 {
		t.Errorf("expected 3 yields for 10 samples in batches of 3, got %d", yields)
	}
}
