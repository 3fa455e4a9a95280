package globimap

import "sync"

// SyncSketch is a Sketch guarded by a read-write lock. Estimates run
// concurrently with each other; Configure and Add are exclusive.
type SyncSketch struct {
	m      sync.RWMutex
	sketch *Sketch
}

// NewSyncSketch returns an unconfigured SyncSketch.
func NewSyncSketch(opts ...Option) *SyncSketch {
	return &SyncSketch{sketch: New(opts...)}
}

// Configure resets the sketch; see Sketch.Configure.
func (ss *SyncSketch) Configure(depth, width int) error {
	ss.m.Lock()
	defer ss.m.Unlock()
	return ss.sketch.Configure(depth, width)
}

// Add adds amount to the count of key.
func (ss *SyncSketch) Add(key []byte, amount uint64) error {
	ss.m.Lock()
	defer ss.m.Unlock()
	return ss.sketch.Add(key, amount)
}

// Increment adds 1 to the count of key.
func (ss *SyncSketch) Increment(key []byte) error {
	return ss.Add(key, 1)
}

// Estimate returns the estimated count of key.
func (ss *SyncSketch) Estimate(key []byte) (uint64, error) {
	ss.m.RLock()
	defer ss.m.RUnlock()
	return ss.sketch.Estimate(key)
}

// Depth returns the number of rows, or 0 if the sketch is unconfigured.
func (ss *SyncSketch) Depth() int {
	ss.m.RLock()
	defer ss.m.RUnlock()
	return ss.sketch.Depth()
}

// Width returns the number of counters per row, or 0 if the sketch is
// unconfigured.
func (ss *SyncSketch) Width() int {
	ss.m.RLock()
	defer ss.m.RUnlock()
	return ss.sketch.Width()
}

// Stats scans every counter of the sketch under the read lock.
func (ss *SyncSketch) Stats() (Stats, error) {
	ss.m.RLock()
	defer ss.m.RUnlock()
	return ss.sketch.Stats()
}

// Snapshot returns a copy of the underlying sketch.
func (ss *SyncSketch) Snapshot() *Sketch {
	ss.m.RLock()
	defer ss.m.RUnlock()
	return ss.sketch.Clone()
}
