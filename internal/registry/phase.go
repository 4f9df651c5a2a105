// Package registry holds process-wide definition tables that are written
// during the init phase and read-only afterwards.
package registry

import (
	"fmt"
	"sync/atomic"
)

// Phase is the process lifecycle stage.
type Phase int32

const (
	// PhaseInit accepts registrations.
	PhaseInit Phase = iota
	// PhaseLoad restores persisted state; registrations are closed.
	PhaseLoad
	// PhaseRun is the steady state.
	PhaseRun
	// PhaseUnload tears modules down.
	PhaseUnload
	// PhaseDestroyed is terminal.
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseLoad:
		return "load"
	case PhaseRun:
		return "run"
	case PhaseUnload:
		return "unload"
	case PhaseDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// Phaser reports the current phase.
type Phaser interface {
	Phase() Phase
}

// PhaseTracker is a monotonic phase cell. Advance never moves backwards.
type PhaseTracker struct {
	phase atomic.Int32
}

// NewPhaseTracker starts in PhaseInit.
func NewPhaseTracker() *PhaseTracker {
	return &PhaseTracker{}
}

// Phase returns the current phase.
func (t *PhaseTracker) Phase() Phase {
	return Phase(t.phase.Load())
}

// Advance moves to next. It returns an InvalidPhase error if next is not
// after the current phase.
func (t *PhaseTracker) Advance(next Phase) error {
	for {
		cur := t.phase.Load()
		if int32(next) <= cur {
			return &Error{
				Code:    CodeInvalidPhase,
				Message: fmt.Sprintf("cannot move from %s to %s", Phase(cur), next),
			}
		}
		if t.phase.CompareAndSwap(cur, int32(next)) {
			return nil
		}
	}
}
