package rules

import (
	"log/slog"
	"slices"
	"strings"
	"time"
)

// PlayerNameKey is substituted with the subject's name in every trigger text.
const PlayerNameKey = "PLAYER_NAME"

// TriggerKind distinguishes enforced outcomes from attempts.
type TriggerKind string

const (
	TriggerKindTrigger TriggerKind = "trigger"
	TriggerKindAttempt TriggerKind = "attempt"
)

// TriggerEvent is one call to State.Trigger or State.TriggerAttempt.
type TriggerEvent struct {
	RuleID string
	Kind   TriggerKind
	// Message is the rendered log text; empty when the rule is not logged
	// or has no log text.
	Message string
	At      time.Time
}

// TriggerSink receives every trigger. The engine stores them in the
// trigger log.
type TriggerSink interface {
	Trigger(ev TriggerEvent)
}

// TriggerSinkFunc adapts a function to TriggerSink.
type TriggerSinkFunc func(ev TriggerEvent)

// Trigger implements TriggerSink.
func (f TriggerSinkFunc) Trigger(ev TriggerEvent) {
	f(ev)
}

type logSink struct {
	logger *slog.Logger
}

func (s logSink) Trigger(ev TriggerEvent) {
	s.logger.Info("rule triggered", "rule", ev.RuleID, "kind", ev.Kind, "message", ev.Message)
}

// Substitute replaces every key of subs in text. Longer keys win over
// keys they contain.
func Substitute(text string, subs map[string]string) string {
	if text == "" || len(subs) == 0 {
		return text
	}
	keys := make([]string, 0, len(subs))
	for k := range subs {
		if k != "" {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, subs[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
