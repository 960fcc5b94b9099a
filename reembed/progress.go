package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single carriage-return progress line for a
// reembedding run. Lines are throttled to one per reportInterval chunks.
type ProgressTracker struct {
	mu sync.Mutex
	w  io.Writer

	total, every   int
	done, reported int
	began          time.Time
}

// NewProgressTracker reports to w. A non-positive reportInterval reports
// after every update.
func NewProgressTracker(w io.Writer, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{w: w, total: total, every: max(reportInterval, 1)}
}

// Start resets the counters and the clock. Updates before Start are ignored.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	p.began = time.Now()
	p.done, p.reported = 0, 0
	p.mu.Unlock()
}

// Update records the number of chunks done so far.
func (p *ProgressTracker) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.began.IsZero() {
		return
	}
	p.done = min(done, p.total)
	if p.done-p.reported < p.every {
		return
	}
	p.print()
	p.reported = p.done
}

// Finish prints the completed line and terminates it.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.began.IsZero() {
		return
	}
	p.done = p.total
	p.print()
	io.WriteString(p.w, "\n")
}

// Elapsed is the time since Start, or zero if the tracker never started.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.began.IsZero() {
		return 0
	}
	return time.Since(p.began)
}

func (p *ProgressTracker) print() {
	var pct float64
	if p.total > 0 {
		pct = 100 * float64(p.done) / float64(p.total)
	}
	perSecond := float64(p.done) / time.Since(p.began).Seconds()
	fmt.Fprintf(p.w, "\rProgress: %d/%d chunks (%.1f%%) - %.1f chunks/s", p.done, p.total, pct, perSecond)
}
