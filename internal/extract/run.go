package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/log-grapher/backend/internal/models"
)

// compiledPattern is one pattern prepared for a run. Regexes are compiled
// once per run and reused across all lines; a pattern that fails to compile
// stays in the list (ordering is preserved) but never matches.
type compiledPattern struct {
	name    string
	re      *regexp.Regexp
	matches int
}

// Run is the run-local context for one extraction: compiled patterns,
// carry-forward state, interner and collected samples. All mutable state
// lives here rather than at package level, so concurrent or superseded runs
// cannot cross-contaminate.
type Run struct {
	patterns  []*compiledPattern
	signals   []models.Signal
	acc       *Accumulator
	interner  *Interner
	samples   []models.TypedSample
	finalized bool
}

// NewRun compiles the ordered pattern list and prepares an empty run.
// Duplicate pattern names are rejected; an invalid regex is not an error
// here, the pattern simply never matches and is reported by NeverMatched.
func NewRun(patterns []models.Pattern) (*Run, error) {
	seen := make(map[string]struct{}, len(patterns))
	r := &Run{
		patterns: make([]*compiledPattern, 0, len(patterns)),
		signals:  make([]models.Signal, 0, len(patterns)),
		acc:      NewAccumulator(),
		interner: NewInterner(),
	}
	for i, p := range patterns {
		if p.Name == "" {
			return nil, fmt.Errorf("pattern %d has no name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate pattern name %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		re, err := regexp.Compile(p.Regex)
		if err != nil {
			re = nil
		}
		r.patterns = append(r.patterns, &compiledPattern{name: p.Name, re: re})
		r.signals = append(r.signals, models.Signal{
			ID:      fmt.Sprintf("sig-%d", i),
			Name:    p.Name,
			Regex:   p.Regex,
			Color:   models.SignalColor(i),
			Visible: true,
		})
	}
	return r, nil
}

// Signals returns the signals derived from the run's patterns, one per
// pattern in input order.
func (r *Run) Signals() []models.Signal {
	return r.signals
}

// AddLine feeds one log line through the parser, updating carry-forward
// state and appending a sample when at least one pattern matched freshly.
func (r *Run) AddLine(line string) {
	ts, ok := ParseLineTimestamp(line)
	if !ok {
		// No timestamp prefix: inert line, not an error.
		return
	}

	var values map[string]interface{}
	fresh := 0
	for _, cp := range r.patterns {
		if cp.re == nil {
			continue
		}
		m := cp.re.FindStringSubmatch(line)
		if len(m) < 2 {
			// No match, or no capture group. Skipped for this line
			// without aborting the other patterns.
			continue
		}
		v := coerceValue(m[1])
		if s, isStr := v.(string); isStr {
			r.interner.Observe(cp.name, s)
		}
		if values == nil {
			values = make(map[string]interface{}, len(r.patterns))
		}
		values[cp.name] = v
		r.acc.Set(cp.name, v)
		cp.matches++
		fresh++
	}

	// Carry-forward alone never produces a sample.
	if fresh == 0 {
		return
	}

	for _, cp := range r.patterns {
		if _, have := values[cp.name]; have {
			continue
		}
		if last, ok := r.acc.Get(cp.name); ok {
			values[cp.name] = last
		}
	}

	r.samples = append(r.samples, models.TypedSample{Timestamp: ts, Values: values})
}

// coerceValue turns captured text into a float64 when it parses as a number,
// otherwise keeps the literal string.
func coerceValue(raw string) interface{} {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// Finalize sorts the collected samples by timestamp (stable, so ties keep
// input order) and assigns string ordinals. Idempotent.
func (r *Run) Finalize() {
	if r.finalized {
		return
	}
	sort.SliceStable(r.samples, func(i, j int) bool {
		return r.samples[i].Timestamp.Before(r.samples[j].Timestamp)
	})
	r.interner.Finalize()
	r.finalized = true
}

// Samples returns the collected samples. Chronological after Finalize.
func (r *Run) Samples() []models.TypedSample {
	return r.samples
}

// Accumulated returns how many signals have a carry-forward value.
func (r *Run) Accumulated() int {
	return r.acc.Len()
}

// Interner returns the run's interner.
func (r *Run) Interner() *Interner {
	return r.interner
}

// NeverMatched lists patterns that matched nothing across the whole run,
// including ones whose regex failed to compile. A configuration-quality
// signal surfaced once in aggregate, not a crash.
func (r *Run) NeverMatched() []string {
	var names []string
	for _, cp := range r.patterns {
		if cp.matches == 0 {
			names = append(names, cp.name)
		}
	}
	return names
}
