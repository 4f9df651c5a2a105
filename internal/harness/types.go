package harness

import (
	"github.com/roach88/warden/internal/store"
	"github.com/roach88/warden/internal/testutil"
)

// Trace event types.
const (
	EventStep    = "step"
	EventTrigger = "trigger"
	EventMessage = "message"
)

// TraceEvent is one entry of a scenario trace. Steps are recorded before
// they run; the triggers and notifications they cause follow them.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`

	// Step fields.
	Step   string `json:"step,omitempty"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`

	// Trigger and message fields.
	Rule   string `json:"rule,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Target int64  `json:"target,omitempty"`
	Text   string `json:"text,omitempty"`
	// At is milliseconds since the scenario started.
	At int64 `json:"at,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	Pass     bool                  `json:"pass"`
	Trace    []TraceEvent          `json:"trace"`
	Triggers []store.TriggerRecord `json:"triggers"`
	Messages []testutil.Message    `json:"messages"`
	Errors   []string              `json:"errors,omitempty"`
}

// NewResult creates a passing, empty result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Triggers: []store.TriggerRecord{},
		Messages: []testutil.Message{},
		Errors:   []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
