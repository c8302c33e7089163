package extract

// Accumulator maintains the last-known value per signal across lines so a
// sample at time T can report every signal's most recent value, not only
// the ones matched on that exact line. Scoped to a single run; never shared
// across runs.
type Accumulator struct {
	last map[string]interface{}
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{last: make(map[string]interface{})}
}

// Set records a freshly matched value for a signal.
func (a *Accumulator) Set(signal string, value interface{}) {
	a.last[signal] = value
}

// Get returns the last-known value for a signal, if any.
func (a *Accumulator) Get(signal string) (interface{}, bool) {
	v, ok := a.last[signal]
	return v, ok
}

// Len returns the number of signals with a known value.
func (a *Accumulator) Len() int {
	return len(a.last)
}
