package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/rules"
)

// loopScheduler fires rule callbacks on the engine loop. The clock fires on
// its own goroutine and only posts; the callback runs when the loop
// drains. A callback cancelled between firing and running is dropped.
type loopScheduler struct {
	timers *rules.ClockScheduler
	post   func(name string, fn func()) bool

	mu     sync.Mutex
	epochs map[string]uint64
}

var _ rules.Scheduler = (*loopScheduler)(nil)

func newLoopScheduler(clock host.Clock, post func(name string, fn func()) bool) *loopScheduler {
	return &loopScheduler{
		timers: rules.NewClockScheduler(clock),
		post:   post,
		epochs: make(map[string]uint64),
	}
}

func (s *loopScheduler) epoch(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochs[owner]
}

// After implements rules.Scheduler.
func (s *loopScheduler) After(owner string, d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	epoch := s.epoch(owner)
	stop := s.timers.After(owner, d, func() {
		s.post("delayed "+owner, func() {
			if cancelled.Load() || s.epoch(owner) != epoch {
				return
			}
			fn()
		})
	})
	return func() {
		cancelled.Store(true)
		stop()
	}
}

// CancelAll implements rules.Scheduler. Callbacks already posted to the
// loop are dropped too.
func (s *loopScheduler) CancelAll(owner string) {
	s.mu.Lock()
	s.epochs[owner]++
	s.mu.Unlock()
	s.timers.CancelAll(owner)
}

// Pending returns how many timers owner has waiting on the clock.
func (s *loopScheduler) Pending(owner string) int {
	return s.timers.Pending(owner)
}
