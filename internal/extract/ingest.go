package extract

import (
	"runtime"
	"strings"
)

// Chunk sizing. Larger inputs get smaller chunks to bound peak per-chunk
// work between yields.
const (
	defaultChunkSize = 4000
	largeInputLines  = 500000
	largeChunkSize   = 2000
	hugeInputLines   = 2000000
	hugeChunkSize    = 1000
)

// ProgressFunc reports ingestion progress after each chunk. chunksDone is
// monotonically increasing up to chunksTotal.
type ProgressFunc func(chunksDone, chunksTotal, linesProcessed int)

// IngestOptions tunes an Ingestor. Zero values select defaults.
type IngestOptions struct {
	// ChunkSize overrides the adaptive chunk size when > 0.
	ChunkSize int
	// OnProgress is invoked after each processed chunk.
	OnProgress ProgressFunc
	// Yield is called between chunks so ingestion never monopolizes the
	// executing goroutine. Defaults to runtime.Gosched.
	Yield func()
}

// Ingestor drives a Run over the full input in bounded-size chunks. The
// discrete Step sequence makes the cooperative yield points visible and
// testable: one Step processes exactly one chunk, and the driver loop
// yields between steps. On the last chunk it triggers finalization.
type Ingestor struct {
	run        *Run
	lines      []string
	chunkSize  int
	next       int
	chunksDone int
	onProgress ProgressFunc
	yield      func()
}

// NewIngestor splits the raw text into lines and prepares chunked ingestion.
func NewIngestor(run *Run, text string, opts IngestOptions) *Ingestor {
	lines := strings.Split(text, "\n")

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = adaptiveChunkSize(len(lines))
	}
	yield := opts.Yield
	if yield == nil {
		yield = runtime.Gosched
	}
	return &Ingestor{
		run:        run,
		lines:      lines,
		chunkSize:  chunkSize,
		onProgress: opts.OnProgress,
		yield:      yield,
	}
}

func adaptiveChunkSize(lineCount int) int {
	switch {
	case lineCount > hugeInputLines:
		return hugeChunkSize
	case lineCount > largeInputLines:
		return largeChunkSize
	default:
		return defaultChunkSize
	}
}

// TotalChunks returns the number of chunks the input splits into.
func (in *Ingestor) TotalChunks() int {
	if len(in.lines) == 0 {
		return 0
	}
	return (len(in.lines) + in.chunkSize - 1) / in.chunkSize
}

// ChunksDone returns how many chunks have been fully processed.
func (in *Ingestor) ChunksDone() int {
	return in.chunksDone
}

// Step processes the next chunk fully (every line through the parser),
// reports progress, and returns true when ingestion is complete. A chunk's
// effects are fully applied before the next Step begins. Finalization
// (stable sort + interner) happens on the step that consumes the last line.
func (in *Ingestor) Step() bool {
	if in.next >= len(in.lines) {
		in.run.Finalize()
		return true
	}

	end := in.next + in.chunkSize
	if end > len(in.lines) {
		end = len(in.lines)
	}
	for _, line := range in.lines[in.next:end] {
		in.run.AddLine(line)
	}
	in.next = end
	in.chunksDone++

	if in.onProgress != nil {
		in.onProgress(in.chunksDone, in.TotalChunks(), in.next)
	}

	if in.next >= len(in.lines) {
		in.run.Finalize()
		return true
	}
	return false
}

// Run drives Step to completion, yielding between chunks.
func (in *Ingestor) Run() {
	for !in.Step() {
		in.yield()
	}
}
