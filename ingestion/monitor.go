package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Monitor observes an ingestion call. Methods are called synchronously
// from the goroutine running Ingest.
type Monitor interface {
	StateChanged(from, to State)
	BatchCommitted(index, inserted, updated int)
	Finished(report *Report, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) StateChanged(_, _ State)     {}
func (n *noopMonitor) BatchCommitted(_, _, _ int)  {}
func (n *noopMonitor) Finished(_ *Report, _ error) {}

// ProgressMonitor prints a running count of committed documents.
type ProgressMonitor struct {
	writer         io.Writer
	reportInterval int
	processed      int
	inserted       int
	updated        int
	batches        int
	lastReported   int
	startTime      time.Time
	mu             sync.Mutex
}

var _ Monitor = (*ProgressMonitor)(nil)

// NewProgressMonitor creates a progress monitor.
// writer: where to write progress output (typically os.Stderr)
// reportInterval: report progress every N committed documents
func NewProgressMonitor(writer io.Writer, reportInterval int) *ProgressMonitor {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressMonitor{
		writer:         writer,
		reportInterval: reportInterval,
	}
}

// StateChanged starts the clock when a call opens its session.
func (p *ProgressMonitor) StateChanged(from, to State) {
	if to != StateOpening {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Now()
	p.processed, p.inserted, p.updated, p.batches, p.lastReported = 0, 0, 0, 0, 0
}

// BatchCommitted records a batch and reports if an interval was crossed.
func (p *ProgressMonitor) BatchCommitted(index, inserted, updated int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inserted += inserted
	p.updated += updated
	p.processed += inserted + updated
	p.batches++

	if p.processed-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.processed
	}
}

// Finished prints the final line.
func (p *ProgressMonitor) Finished(report *Report, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.report()
	if err != nil {
		fmt.Fprintf(p.writer, " - stopped: %v", err)
	}
	fmt.Fprintln(p.writer)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressMonitor) report() {
	rate := 0.0
	if elapsed := time.Since(p.startTime).Seconds(); !p.startTime.IsZero() && elapsed > 0 {
		rate = float64(p.processed) / elapsed
	}
	fmt.Fprintf(p.writer, "\rProgress: %d documents in %d batches (%d inserted, %d updated) - %.1f docs/s",
		p.processed, p.batches, p.inserted, p.updated, rate)
}
