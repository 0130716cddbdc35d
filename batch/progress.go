package batch

import (
	"sync"
	"time"
)

// Progress is a point-in-time snapshot of a running batch.
type Progress struct {
	TotalItems     int           `json:"total_items"`
	CompletedItems int           `json:"completed_items"`
	Percent        float64       `json:"progress_percent"`
	Elapsed        time.Duration `json:"elapsed"`
	ETA            time.Duration `json:"eta"`
	AvgPerItem     time.Duration `json:"avg_time_per_item"`
}

// ProgressTracker counts completed items and derives throughput estimates.
// Safe for concurrent use by all workers of a batch.
type ProgressTracker struct {
	mu        sync.Mutex
	total     int
	completed int
	start     time.Time
}

func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total, start: time.Now()}
}

// Update marks n more items complete.
func (p *ProgressTracker) Update(n int) {
	p.mu.Lock()
	p.completed += n
	p.mu.Unlock()
}

// Snapshot reports current progress. ETA is zero until at least one item has
// completed; there is nothing to extrapolate from before that.
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.start)
	snap := Progress{
		TotalItems:     p.total,
		CompletedItems: p.completed,
		Elapsed:        elapsed,
	}
	if p.total > 0 {
		snap.Percent = float64(p.completed) / float64(p.total) * 100
	}
	if p.completed > 0 {
		snap.AvgPerItem = elapsed / time.Duration(p.completed)
		snap.ETA = snap.AvgPerItem * time.Duration(p.total-p.completed)
	}
	return snap
}
