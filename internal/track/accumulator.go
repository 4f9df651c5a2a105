package track

import (
	"sync"
	"time"
)

const (
	// DefaultMergeThreshold is the buffered duration that forces a merge.
	DefaultMergeThreshold = 60 * time.Second
	// DefaultEdgeThreshold is the arousal progress counted as edging.
	DefaultEdgeThreshold = 90
)

// Accumulator buffers a diff between merges. It is safe for concurrent use
// by interception handlers and the sweep.
type Accumulator struct {
	mu             sync.Mutex
	now            func() time.Time
	mergeThreshold time.Duration
	edgeThreshold  int64

	diff      Data
	lastTrack time.Time
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithMergeThreshold sets the buffered duration that triggers a merge.
func WithMergeThreshold(d time.Duration) Option {
	return func(a *Accumulator) {
		a.mergeThreshold = d
	}
}

// WithEdgeThreshold sets the arousal level counted as edging.
func WithEdgeThreshold(level int64) Option {
	return func(a *Accumulator) {
		a.edgeThreshold = level
	}
}

// NewAccumulator returns an empty accumulator reading time from now.
func NewAccumulator(now func() time.Time, opts ...Option) *Accumulator {
	a := &Accumulator{
		now:            now,
		mergeThreshold: DefaultMergeThreshold,
		edgeThreshold:  DefaultEdgeThreshold,
		diff:           Zero(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.lastTrack = now()
	return a
}

// Start restarts elapsed-time measurement without counting the gap.
func (a *Accumulator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastTrack = a.now()
}

// advance adds the time since the last observation. Edged time counts
// only when both the previous and current samples are at the threshold.
func (a *Accumulator) advance(arousal int64, known bool) {
	now := a.now()
	elapsed := now.Sub(a.lastTrack).Milliseconds()
	a.lastTrack = now
	if elapsed < 0 {
		elapsed = 0
	}

	a.diff.ActiveTime += elapsed
	a.diff.NoActiveTime += elapsed
	if !known {
		return
	}
	if a.diff.LastArousal >= a.edgeThreshold && arousal >= a.edgeThreshold {
		a.diff.EdgedTime += elapsed
		a.diff.NoEdgedTime += elapsed
	}
	a.diff.LastArousal = arousal
}

// Observe records elapsed time and an arousal sample.
func (a *Accumulator) Observe(arousal int64, known bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advance(arousal, known)
}

// RecordOrgasm counts a completed event. The no-activity counters restart.
func (a *Accumulator) RecordOrgasm(ev OrgasmEvent, arousal int64, known bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advance(arousal, known)
	a.diff.OrgasmCount++
	a.diff.NoActiveTime = 0
	a.diff.NoEdgedTime = 0
	a.diff.NoRuinedCount = 0
	a.diff.LastOrgasm = &ev
}

// RecordRuined counts a ruined event.
func (a *Accumulator) RecordRuined() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.diff.RuinedCount++
	a.diff.NoRuinedCount++
}

// Pending returns a copy of the buffered diff.
func (a *Accumulator) Pending() Data {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.diff
}

func (a *Accumulator) needsMerge() bool {
	threshold := a.mergeThreshold.Milliseconds()
	return a.diff.ActiveTime >= threshold ||
		a.diff.EdgedTime >= threshold ||
		a.diff.OrgasmCount > 0 ||
		a.diff.RuinedCount > 0
}

// NeedsMerge reports whether the buffer crossed a merge threshold.
func (a *Accumulator) NeedsMerge() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.needsMerge()
}

// Update observes a sample, then merges the buffer into total when forced
// or when a threshold is met. The buffer is cleared after merging, so a
// diff is never applied twice. The last arousal sample is kept so edging
// spans merges.
func (a *Accumulator) Update(total Data, arousal int64, known, force bool) (Data, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advance(arousal, known)
	if !force && !a.needsMerge() {
		return total, false
	}
	merged := Merge(total, a.diff)
	last := a.diff.LastArousal
	a.diff = Zero()
	a.diff.LastArousal = last
	return merged, true
}

// Reset drops the buffer and restarts time measurement.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.diff = Zero()
	a.lastTrack = a.now()
}
