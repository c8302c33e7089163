package extract

import (
	"runtime"

	"github.com/rs/zerolog"

	"github.com/log-grapher/backend/internal/models"
)

// defaultFormatBatch is how many samples are formatted between yields.
const defaultFormatBatch = 50000

// FormatOptions tunes a Formatter. Zero values select defaults.
type FormatOptions struct {
	// BatchSize is the number of samples formatted between yields.
	BatchSize int
	// MaxRecords caps the output size. When the sample count exceeds it,
	// formatting runs against an evenly-distributed sub-sample (first
	// point, every Nth, last point) instead of failing. 0 = unlimited.
	MaxRecords int
	// Yield is called between batches. Defaults to runtime.Gosched.
	Yield func()
	// Logger receives invariant-violation reports.
	Logger zerolog.Logger
}

// Formatter converts the finalized, sorted sample sequence into flat
// numeric records in one deterministic pass. Output retains chronological
// order; every display strategy depends on that.
type Formatter struct {
	interner      *Interner
	batchSize     int
	maxRecords    int
	yield         func()
	log           zerolog.Logger
	inconsistent  int
	downsampledTo int
}

// NewFormatter creates a formatter bound to a finalized interner.
func NewFormatter(in *Interner, opts FormatOptions) *Formatter {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultFormatBatch
	}
	yield := opts.Yield
	if yield == nil {
		yield = runtime.Gosched
	}
	return &Formatter{
		interner:   in,
		batchSize:  batch,
		maxRecords: opts.MaxRecords,
		yield:      yield,
		log:        opts.Logger,
	}
}

// Format produces one FormattedRecord per sample, in the same chronological
// order. String values are looked up in the interner's ordinal map; numbers
// pass through unchanged. A string missing from its map means the interner
// and formatter diverged: it is logged as an invariant violation, counted,
// and encoded as ordinal 0.
func (f *Formatter) Format(samples []models.TypedSample) []models.FormattedRecord {
	if f.maxRecords > 0 && len(samples) > f.maxRecords {
		f.log.Warn().
			Int("samples", len(samples)).
			Int("maxRecords", f.maxRecords).
			Msg("sample set exceeds record cap, formatting evenly-distributed sub-sample")
		samples = subsample(samples, f.maxRecords)
		f.downsampledTo = len(samples)
	}

	records := make([]models.FormattedRecord, 0, len(samples))
	for i, s := range samples {
		if i > 0 && i%f.batchSize == 0 {
			f.yield()
		}
		rec := models.FormattedRecord{
			TimestampMillis: s.Timestamp.UnixMilli(),
			Values:          make(map[string]float64, len(s.Values)),
		}
		for name, v := range s.Values {
			switch tv := v.(type) {
			case float64:
				rec.Values[name] = tv
			case string:
				ord := f.interner.Ordinal(name, tv)
				if ord == 0 {
					f.inconsistent++
					f.log.Error().
						Str("signal", name).
						Str("value", tv).
						Msg("string value missing from ordinal map")
				}
				rec.Values[name] = float64(ord)
				if rec.Originals == nil {
					rec.Originals = make(map[string]string)
				}
				rec.Originals[name] = tv
			}
		}
		records = append(records, rec)
	}
	return records
}

// Inconsistencies returns how many string values were missing from their
// ordinal map during the last Format call.
func (f *Formatter) Inconsistencies() int {
	return f.inconsistent
}

// Downsampled reports whether the fallback sub-sample was taken and to how
// many samples. 0 means full fidelity.
func (f *Formatter) Downsampled() int {
	return f.downsampledTo
}

// subsample keeps the first point, every Nth point, and the last point.
func subsample(samples []models.TypedSample, max int) []models.TypedSample {
	if max < 2 || len(samples) <= max {
		return samples
	}
	stride := (len(samples) + max - 1) / max
	out := make([]models.TypedSample, 0, max+1)
	lastKept := -1
	for i := 0; i < len(samples); i += stride {
		out = append(out, samples[i])
		lastKept = i
	}
	if lastKept != len(samples)-1 {
		out = append(out, samples[len(samples)-1])
	}
	return out
}
