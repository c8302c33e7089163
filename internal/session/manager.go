// Package session owns the lifecycle of extraction datasets: one uploaded
// log plus one pattern selection per dataset, extracted in a background
// goroutine and queried by the API layer for views, signals and progress.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/log-grapher/backend/internal/display"
	"github.com/log-grapher/backend/internal/extract"
	"github.com/log-grapher/backend/internal/models"
	"github.com/log-grapher/backend/internal/storage"
)

// MaxDatasets limits concurrent datasets to prevent memory exhaustion.
const MaxDatasets = 10

// KeepAliveWindow is how long an actively viewed dataset is protected from
// cleanup after its last access.
const KeepAliveWindow = 5 * time.Minute

// DefaultBudget is the point budget used before the client sets one.
const DefaultBudget = 10000

// Options tunes the extraction pipeline the manager drives.
type Options struct {
	// TempDir holds spill-store files.
	TempDir string
	// SpillThreshold is the record count above which the formatted series
	// is also written to a DuckDB spill store so pagination pages can be
	// served without holding every page hot. 0 disables spilling.
	SpillThreshold int
	// MaxRecords caps the formatter output (fallback sub-sampling past it).
	MaxRecords int
	// ChunkSize overrides adaptive ingestion chunk sizing when > 0.
	ChunkSize int
}

// Manager handles active extraction datasets.
type Manager struct {
	mu       sync.RWMutex
	datasets map[string]*datasetState
	opts     Options
	log      zerolog.Logger
}

// datasetState is everything owned by one dataset: the run products plus
// the navigation and zoom state feeding the display selector.
type datasetState struct {
	dataset      *models.Dataset
	gen          uint64
	signals      []models.Signal
	records      []models.FormattedRecord
	nav          models.NavigationState
	budget       int
	zoom         display.ZoomState
	spill        *storage.SpillStore
	lastAccessed time.Time
}

// NewManager creates a dataset manager.
func NewManager(log zerolog.Logger, opts Options) *Manager {
	if opts.TempDir == "" {
		opts.TempDir = "./data/temp"
	}
	return &Manager{
		datasets: make(map[string]*datasetState),
		opts:     opts,
		log:      log,
	}
}

// StartExtract begins extraction of raw log text with an ordered pattern
// list and returns the pending dataset immediately.
func (m *Manager) StartExtract(text string, pats []models.Pattern) (*models.Dataset, error) {
	m.cleanupIfAtCapacity()

	id := uuid.New().String()
	ds := models.NewDataset(id)

	state := &datasetState{
		dataset:      ds,
		gen:          ds.Generation,
		nav:          models.DefaultNavigation(),
		budget:       DefaultBudget,
		lastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.datasets[id] = state
	m.mu.Unlock()

	snapshot := *ds
	go m.runExtract(id, ds.Generation, text, pats)
	return &snapshot, nil
}

// Replace discards a dataset's previous run and starts a new one over fresh
// input, bumping the generation counter. Work still in flight for the old
// generation completes into the void: its results are ignored rather than
// corrupting the new run's state.
func (m *Manager) Replace(id, text string, pats []models.Pattern) (*models.Dataset, bool) {
	m.mu.Lock()
	state, ok := m.datasets[id]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	state.gen++
	state.records = nil
	state.signals = nil
	state.nav = models.DefaultNavigation()
	state.budget = DefaultBudget
	state.zoom.Reset()
	if state.spill != nil {
		state.spill.Close()
		state.spill = nil
	}
	state.dataset = models.NewDataset(id)
	state.dataset.Generation = state.gen
	state.lastAccessed = time.Now()
	snapshot := *state.dataset
	gen := state.gen
	m.mu.Unlock()

	go m.runExtract(id, gen, text, pats)
	return &snapshot, true
}

func (m *Manager) runExtract(id string, gen uint64, text string, pats []models.Pattern) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("dataset", short(id)).Interface("panic", r).Msg("extraction panicked")
			m.failDataset(id, gen, fmt.Sprintf("extraction panicked: %v", r))
		}
	}()

	start := time.Now()
	m.log.Info().Str("dataset", short(id)).Int("patterns", len(pats)).Msg("starting extraction")

	run, err := extract.NewRun(pats)
	if err != nil {
		m.failDataset(id, gen, fmt.Sprintf("invalid pattern list: %v", err))
		return
	}

	m.updateDataset(id, gen, func(ds *models.Dataset) {
		ds.Status = models.DatasetStatusExtracting
		ds.SignalCount = len(run.Signals())
	})

	ing := extract.NewIngestor(run, text, extract.IngestOptions{
		ChunkSize: m.opts.ChunkSize,
		OnProgress: func(done, total, lines int) {
			m.updateDataset(id, gen, func(ds *models.Dataset) {
				ds.Progress = float64(done) / float64(total) * 90.0
				ds.StatusMessage = fmt.Sprintf("parsed chunk %d/%d (%d lines)", done, total, lines)
			})
		},
	})
	ing.Run()

	samples := run.Samples()
	if len(samples) == 0 {
		// Successful but unproductive: user-facing "no matching data",
		// not an error.
		m.log.Info().Str("dataset", short(id)).Msg("extraction complete, no matching data")
		m.commit(id, gen, run, nil, start)
		return
	}

	m.updateDataset(id, gen, func(ds *models.Dataset) {
		ds.Progress = 90
		ds.StatusMessage = fmt.Sprintf("formatting %d samples", len(samples))
	})

	fm := extract.NewFormatter(run.Interner(), extract.FormatOptions{
		MaxRecords: m.opts.MaxRecords,
		Logger:     m.log,
	})
	records := fm.Format(samples)

	m.commit(id, gen, run, records, start)
}

// commit publishes a finished run's products, unless the dataset has been
// superseded by a newer generation in the meantime.
func (m *Manager) commit(id string, gen uint64, run *extract.Run, records []models.FormattedRecord, start time.Time) {
	var spill *storage.SpillStore
	if m.opts.SpillThreshold > 0 && len(records) >= m.opts.SpillThreshold {
		var err error
		spill, err = storage.NewSpillStore(m.opts.TempDir, fmt.Sprintf("%s-g%d", id, gen))
		if err == nil {
			err = spill.WriteAll(records)
		}
		if err != nil {
			m.log.Warn().Str("dataset", short(id)).Err(err).Msg("spill store unavailable, keeping records in memory only")
			if spill != nil {
				spill.Close()
			}
			spill = nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.datasets[id]
	if !ok || state.gen != gen {
		// Superseded run: its remaining work is irrelevant garbage.
		if spill != nil {
			spill.Close()
		}
		m.log.Debug().Str("dataset", short(id)).Uint64("generation", gen).Msg("discarding stale extraction result")
		return
	}

	state.records = records
	state.signals = run.Signals()
	state.spill = spill

	ds := state.dataset
	ds.Status = models.DatasetStatusComplete
	ds.Progress = 100
	ds.SampleCount = len(records)
	ds.SignalCount = len(run.Signals())
	ds.NeverMatched = run.NeverMatched()
	ds.ProcessingTimeMs = time.Since(start).Milliseconds()
	if len(records) > 0 {
		ds.StartTime = records[0].TimestampMillis
		ds.EndTime = records[len(records)-1].TimestampMillis
		ds.StatusMessage = fmt.Sprintf("%d records ready", len(records))
	} else {
		ds.StatusMessage = "no matching data"
	}

	m.log.Info().
		Str("dataset", short(id)).
		Int("records", len(records)).
		Bool("spilled", spill != nil).
		Int64("elapsedMs", ds.ProcessingTimeMs).
		Msg("extraction complete")
}

func (m *Manager) updateDataset(id string, gen uint64, fn func(*models.Dataset)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.datasets[id]; ok && state.gen == gen {
		fn(state.dataset)
	}
}

func (m *Manager) failDataset(id string, gen uint64, reason string) {
	m.updateDataset(id, gen, func(ds *models.Dataset) {
		ds.Status = models.DatasetStatusError
		ds.Errors = append(ds.Errors, models.ExtractError{Reason: reason})
	})
}

// GetDataset returns a snapshot of a dataset's status by ID. The live
// struct keeps being mutated by the background run under the write lock,
// so handing out the pointer itself would race with readers.
func (m *Manager) GetDataset(id string) (*models.Dataset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.datasets[id]
	if !ok {
		return nil, false
	}
	ds := *state.dataset
	return &ds, true
}

// Touch updates a dataset's last-access time to keep it alive while viewed.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.datasets[id]
	if !ok {
		return false
	}
	state.lastAccessed = time.Now()
	return true
}

// Delete removes a dataset and frees its resources.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.datasets[id]
	if !ok {
		return false
	}
	if state.spill != nil {
		state.spill.Close()
	}
	delete(m.datasets, id)
	return true
}

// Signals returns the signal list for a dataset.
func (m *Manager) Signals(id string) ([]models.Signal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.datasets[id]
	if !ok {
		return nil, false
	}
	out := make([]models.Signal, len(state.signals))
	copy(out, state.signals)
	return out, true
}

// SetSignalVisible toggles a signal's visibility flag.
func (m *Manager) SetSignalVisible(id, name string, visible bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.datasets[id]
	if !ok {
		return false
	}
	for i := range state.signals {
		if state.signals[i].Name == name {
			state.signals[i].Visible = visible
			return true
		}
	}
	return false
}

// SetNavigation replaces a dataset's navigation state. Any active zoom is
// cleared: a zoom domain is meaningless across a mode or parameter change.
func (m *Manager) SetNavigation(id string, nav models.NavigationState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.datasets[id]
	if !ok {
		return false
	}
	nav.Zoom = nil
	if nav.Page < 1 {
		nav.Page = 1
	}
	if nav.SegmentMillis <= 0 {
		nav.SegmentMillis = models.DefaultSegmentDuration.Milliseconds()
	}
	state.nav = nav
	state.zoom.Reset()
	return true
}

// SetBudget changes the point budget. The active strategy is recomputed on
// the next View call rather than re-slicing old output; zoom is cleared.
func (m *Manager) SetBudget(id string, budget int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.datasets[id]
	if !ok {
		return false
	}
	if budget < 1 {
		budget = 1
	}
	state.budget = budget
	state.zoom.Reset()
	return true
}

// Brush applies a zoom selection over the current window's candidate set.
// Returns (accepted, found).
func (m *Manager) Brush(id string, startMillis, endMillis int64) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.datasets[id]
	if !ok {
		return false, false
	}
	return state.zoom.Brush(state.windowCandidates(), startMillis, endMillis), true
}

// ResetZoom returns a dataset's zoom state to idle.
func (m *Manager) ResetZoom(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.datasets[id]
	if !ok {
		return false
	}
	state.zoom.Reset()
	return true
}

// windowCandidates is the record set a brush selects over: the active
// window filter applied, zoom not yet applied. Pagination and segmentation
// never render a zoom, so they have no candidates and every brush in those
// modes is rejected.
func (s *datasetState) windowCandidates() []models.FormattedRecord {
	switch s.nav.Mode {
	case models.NavModeSlidingWindow:
		if s.nav.WindowMillis > 0 && len(s.records) > 0 {
			start := s.records[len(s.records)-1].TimestampMillis - s.nav.WindowMillis
			return display.FilterWindow(s.records, &start, nil)
		}
		return s.records
	case models.NavModePresetRange:
		return display.FilterWindow(s.records, s.nav.RangeStart, s.nav.RangeEnd)
	default:
		return nil
	}
}

// View runs the active display strategy and returns the renderable subset
// plus stats. Pagination pages are served from the spill store when one
// exists, so large datasets never need every page hot.
func (m *Manager) View(ctx context.Context, id string) (display.View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.datasets[id]
	if !ok {
		return display.View{}, false
	}

	nav := state.nav
	nav.Zoom = state.zoom.Domain()

	if nav.Mode == models.NavModePagination && state.spill != nil {
		if v, err := m.spillPage(ctx, state, nav); err == nil {
			return v, true
		} else {
			m.log.Warn().Str("dataset", short(id)).Err(err).Msg("spill page query failed, serving from memory")
		}
	}

	return display.Select(state.records, nav, state.budget), true
}

// spillPage serves one pagination page from the spill store.
func (m *Manager) spillPage(ctx context.Context, state *datasetState, nav models.NavigationState) (display.View, error) {
	pageSize := state.budget
	if pageSize < 1 {
		pageSize = 1
	}
	total := state.spill.Len()
	totalPages := (total + pageSize - 1) / pageSize
	page := nav.Page
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	records, err := state.spill.GetRange(ctx, start, end)
	if err != nil {
		return display.View{}, err
	}
	return display.View{
		Records: records,
		Stats: models.DisplayStats{
			Total:        total,
			Displayed:    len(records),
			SamplingRate: 1,
			CurrentPage:  page,
			TotalPages:   totalPages,
		},
	}, nil
}

// cleanupIfAtCapacity removes finished datasets when at the dataset limit.
func (m *Manager) cleanupIfAtCapacity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.datasets) < MaxDatasets {
		return
	}

	toFree := len(m.datasets) - MaxDatasets + 1
	for id, state := range m.datasets {
		if toFree == 0 {
			break
		}
		if state.dataset.Status != models.DatasetStatusComplete &&
			state.dataset.Status != models.DatasetStatusError {
			continue
		}
		if state.spill != nil {
			state.spill.Close()
		}
		delete(m.datasets, id)
		toFree--
		m.log.Info().Str("dataset", short(id)).Msg("evicted finished dataset to free capacity")
	}
}

// CleanupOldDatasets removes finished datasets older than maxAge, keeping
// ones accessed within KeepAliveWindow.
func (m *Manager) CleanupOldDatasets(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAlive := time.Now().Add(-KeepAliveWindow)

	for id, state := range m.datasets {
		if state.dataset.Status != models.DatasetStatusComplete &&
			state.dataset.Status != models.DatasetStatusError {
			continue
		}
		if state.lastAccessed.After(keepAlive) || state.lastAccessed.After(cutoff) {
			continue
		}
		if state.spill != nil {
			state.spill.Close()
		}
		delete(m.datasets, id)
		m.log.Info().
			Str("dataset", short(id)).
			Dur("idle", time.Since(state.lastAccessed)).
			Msg("cleaned up aged dataset")
	}
}

// short truncates a dataset ID for log fields.
func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
