package index

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports build progress to a terminal-style writer.
// A nil *ProgressTracker ignores every call.
type ProgressTracker struct {
	writer         io.Writer
	label          string
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a progress tracker.
// writer: where to write progress output (typically os.Stderr)
// reportInterval: report progress every N documents
func NewProgressTracker(writer io.Writer, reportInterval int) *ProgressTracker {
	return NewLabeledProgressTracker(writer, "Indexing", reportInterval)
}

// NewLabeledProgressTracker is NewProgressTracker with a custom line prefix.
func NewLabeledProgressTracker(writer io.Writer, label string, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		label:          label,
		reportInterval: reportInterval,
	}
}

// Start begins tracking a build of total documents.
func (p *ProgressTracker) Start(total int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Increment increases the current progress by delta documents.
func (p *ProgressTracker) Increment(delta int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish marks the build complete and prints final progress.
func (p *ProgressTracker) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// Current returns the number of documents processed so far.
func (p *ProgressTracker) Current() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Elapsed returns the time since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\r%s: %d/%d (%.1f%%) - %.1f documents/s",
		p.label, p.current, p.total, percentage, rate)
}
