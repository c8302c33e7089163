package extract

import "sort"

// maxPoolSize caps the dedup pool to prevent unbounded growth on logs with
// many unique string values. Past the cap, strings are stored as-is.
const maxPoolSize = 500000

// stringPool dedups raw string values so equal strings share one backing
// allocation. Run-scoped: each extraction run owns its own pool, so
// superseded runs cannot cross-contaminate. No locking is needed because a
// run is touched by exactly one logical sequence of steps at a time.
type stringPool struct {
	pool map[string]string
}

func newStringPool() *stringPool {
	return &stringPool{pool: make(map[string]string, 1024)}
}

// intern returns the canonical copy of s.
func (p *stringPool) intern(s string) string {
	if pooled, ok := p.pool[s]; ok {
		return pooled
	}
	if len(p.pool) >= maxPoolSize {
		return s
	}
	p.pool[s] = s
	return s
}

// Interner collects the distinct string values observed per signal during
// parsing and, once finalized, assigns each a stable positive ordinal so
// string-valued signals can share a numeric rendering axis. Ordinals are
// assigned in ascending lexicographic order of the strings, so identical
// input always yields identical ordinals. Ordinal 0 is reserved for
// "value absent/unmapped".
type Interner struct {
	pool      *stringPool
	seen      map[string]map[string]struct{}
	ordinals  map[string]map[string]int
	finalized bool
}

// NewInterner creates an empty interner for one run.
func NewInterner() *Interner {
	return &Interner{
		pool: newStringPool(),
		seen: make(map[string]map[string]struct{}),
	}
}

// Observe registers a string value for a signal. Must not be called after
// Finalize.
func (in *Interner) Observe(signal, value string) {
	set, ok := in.seen[signal]
	if !ok {
		set = make(map[string]struct{})
		in.seen[signal] = set
	}
	set[in.pool.intern(value)] = struct{}{}
}

// Finalize sorts each signal's distinct values lexicographically and assigns
// ordinals starting at 1 in that order. Idempotent.
func (in *Interner) Finalize() {
	if in.finalized {
		return
	}
	in.ordinals = make(map[string]map[string]int, len(in.seen))
	for signal, set := range in.seen {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		m := make(map[string]int, len(values))
		for i, v := range values {
			m[v] = i + 1
		}
		in.ordinals[signal] = m
	}
	in.finalized = true
}

// Ordinal returns the ordinal for a signal's string value, or 0 if the
// value was never observed. Only valid after Finalize.
func (in *Interner) Ordinal(signal, value string) int {
	m, ok := in.ordinals[signal]
	if !ok {
		return 0
	}
	return m[value]
}

// Mapping returns the finalized value→ordinal map for a signal, or nil if
// the signal never produced a string value.
func (in *Interner) Mapping(signal string) map[string]int {
	return in.ordinals[signal]
}

// Finalized reports whether ordinals have been assigned.
func (in *Interner) Finalized() bool {
	return in.finalized
}
