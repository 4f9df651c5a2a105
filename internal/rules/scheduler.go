package rules

import (
	"sync"
	"time"

	"github.com/roach88/warden/internal/host"
)

// Scheduler runs delayed callbacks on behalf of rules.
type Scheduler interface {
	// After runs fn once d has elapsed unless cancelled first. Cancelling
	// more than once is harmless.
	After(owner string, d time.Duration, fn func()) (cancel func())
	// CancelAll abandons every pending callback of owner.
	CancelAll(owner string)
}

// ClockScheduler schedules on a host.Clock. Callbacks run on whatever
// goroutine the clock fires them on.
type ClockScheduler struct {
	clock host.Clock

	mu      sync.Mutex
	seq     uint64
	pending map[string]map[uint64]host.Timer
}

// NewClockScheduler creates a scheduler on clock.
func NewClockScheduler(clock host.Clock) *ClockScheduler {
	return &ClockScheduler{
		clock:   clock,
		pending: make(map[string]map[uint64]host.Timer),
	}
}

// After implements Scheduler.
func (s *ClockScheduler) After(owner string, d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := s.seq
	timers, ok := s.pending[owner]
	if !ok {
		timers = make(map[uint64]host.Timer)
		s.pending[owner] = timers
	}
	timers[id] = s.clock.AfterFunc(d, func() {
		if s.forget(owner, id) {
			fn()
		}
	})
	return func() {
		s.mu.Lock()
		t, ok := s.pending[owner][id]
		s.mu.Unlock()
		if ok && s.forget(owner, id) {
			t.Stop()
		}
	}
}

// forget removes one pending entry and reports whether it was present.
func (s *ClockScheduler) forget(owner string, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timers := s.pending[owner]
	if _, ok := timers[id]; !ok {
		return false
	}
	delete(timers, id)
	if len(timers) == 0 {
		delete(s.pending, owner)
	}
	return true
}

// CancelAll implements Scheduler.
func (s *ClockScheduler) CancelAll(owner string) {
	s.mu.Lock()
	timers := s.pending[owner]
	delete(s.pending, owner)
	s.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}

// Pending returns how many callbacks owner has waiting.
func (s *ClockScheduler) Pending(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[owner])
}
