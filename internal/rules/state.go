package rules

import (
	"log/slog"
	"time"

	"github.com/roach88/warden/internal/commands"
	"github.com/roach88/warden/internal/hook"
	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/state"
)

// Data keys inside a rule's condition data.
const (
	KeyCustomData   = "customData"
	KeyInternalData = "internalData"
	KeyEnforce      = "enforce"
	KeyLog          = "log"
)

// State is the handle a definition's callbacks use. Every read is live:
// it reflects the stored record at the time of the call, never a copy
// taken earlier in the sweep.
type State struct {
	ID  string
	Def *Definition

	rt        *Runtime
	logger    *slog.Logger
	inited    bool
	loaded    bool
	triggered bool
}

// Condition returns the stored record, if the rule is stored.
func (s *State) Condition() (*state.Condition, bool) {
	return s.rt.manager.Condition(Category, s.ID)
}

func (s *State) data() ir.Object {
	c, ok := s.Condition()
	if !ok {
		return nil
	}
	obj, _ := c.Data.(ir.Object)
	return obj
}

// Loaded reports whether load has run and unload has not.
func (s *State) Loaded() bool {
	return s.loaded
}

// Restoring reports whether the rule is being brought up from stored
// state by Start, as opposed to being added.
func (s *State) Restoring() bool {
	return s.rt.starting
}

// Active reports the stored active flag.
func (s *State) Active() bool {
	c, ok := s.Condition()
	return ok && c.Active
}

// InEffect reports active and all trigger requirements satisfied.
func (s *State) InEffect() bool {
	return s.rt.manager.InEffect(Category, s.ID)
}

// CustomData returns the live configuration, nil if the rule is not stored.
func (s *State) CustomData() ir.Object {
	obj, _ := s.data()[KeyCustomData].(ir.Object)
	return obj
}

// InternalData returns the rule's working memory, nil if unset.
func (s *State) InternalData() ir.Value {
	return s.data()[KeyInternalData]
}

// SetInternalData replaces the working memory and requests a sync. It is
// a no-op for rules that are not stored.
func (s *State) SetInternalData(v ir.Value) {
	data := s.data()
	if data == nil {
		return
	}
	if ir.Equal(data[KeyInternalData], v) {
		return
	}
	data[KeyInternalData] = v
	s.rt.manager.Store().RequestSync()
}

func (s *State) flag(key string) bool {
	v, ok := s.data().Bool(key)
	return !ok || v
}

// IsEnforced reports whether the rule is in effect and enforcement is on.
func (s *State) IsEnforced() bool {
	if !s.InEffect() {
		return false
	}
	return !s.Def.Enforceable || s.flag(KeyEnforce)
}

// IsLogged reports whether triggers are written to the log.
func (s *State) IsLogged() bool {
	return s.Def.Loggable && s.flag(KeyLog)
}

// EnforcedAgainst reports whether the rule stops actor. Rules with a
// minimumPermittedRole field exempt actors at that role or better.
func (s *State) EnforcedAgainst(actor int64) bool {
	if !s.IsEnforced() {
		return false
	}
	role, ok := s.CustomData().Int(FieldMinimumPermittedRole)
	if !ok {
		return true
	}
	return int64(s.rt.host.AccessLevel(actor)) > role
}

// Permitted reports whether actor holds at least the rule's
// minimumPermittedRole. Rules without the field permit nobody.
func (s *State) Permitted(actor int64) bool {
	role, ok := s.CustomData().Int(FieldMinimumPermittedRole)
	return ok && int64(s.rt.host.AccessLevel(actor)) <= role
}

// Trigger reports an enforced outcome. subs are substituted into the
// rule's trigger texts alongside PLAYER_NAME.
func (s *State) Trigger(subs map[string]string) {
	t := s.Def.Triggers
	s.emit(TriggerKindTrigger, t.Log, t.Announce, t.InfoBeep, subs)
}

// TriggerAttempt reports an attempt the rule blocked.
func (s *State) TriggerAttempt(subs map[string]string) {
	t := s.Def.Triggers
	s.emit(TriggerKindAttempt, t.AttemptLog, t.AttemptAnnounce, t.AttemptInfoBeep, subs)
}

func (s *State) emit(kind TriggerKind, logText, announce, beep string, subs map[string]string) {
	s.triggered = true
	all := map[string]string{PlayerNameKey: s.rt.host.Name()}
	for k, v := range subs {
		all[k] = v
	}

	ev := TriggerEvent{RuleID: s.ID, Kind: kind, At: s.rt.now()}
	if s.IsLogged() {
		ev.Message = Substitute(logText, all)
	}
	s.rt.sink.Trigger(ev)

	if announce != "" {
		s.rt.host.Announce(Substitute(announce, all))
	}
	if beep != "" {
		s.rt.host.InfoBeep(Substitute(beep, all))
	}
}

// After runs fn after d unless the rule unloads first.
func (s *State) After(d time.Duration, fn func()) (cancel func()) {
	return s.rt.scheduler.After(s.ID, d, func() {
		if !s.loaded {
			return
		}
		s.rt.safely(s, "delayed callback", func() { fn() })
	})
}

// Intercept installs h on a host operation, owned by this rule. While the
// rule is unloaded the hook passes calls straight through. A panicking
// hook is logged and the call continues down the chain.
func (s *State) Intercept(op string, priority int, h hook.Handler) {
	s.rt.hooks.Intercept(op, priority, func(args hook.Args, next hook.Next) (result any) {
		if !s.loaded {
			return next(args)
		}
		var (
			called bool
			out    any
		)
		guarded := func(a hook.Args) any {
			called = true
			out = next(a)
			return out
		}
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("rule hook panicked", "operation", op, "panic", p)
				if called {
					result = out
				} else {
					result = next(args)
				}
			}
		}()
		return h(args, guarded)
	}, hook.WithOwner(s.ID))
}

// RegisterCommand adds a whisper command owned by this rule.
func (s *State) RegisterCommand(name string, h commands.Handler) {
	if s.rt.commands == nil {
		s.logger.Warn("no command registry; command not registered", "command", name)
		return
	}
	if err := s.rt.commands.Register(commands.Command{Name: name, Owner: s.ID, Handler: h}); err != nil {
		s.logger.Error("register command", "command", name, "error", err)
	}
}

// Host returns the host collaborators.
func (s *State) Host() host.Host {
	return s.rt.host
}

// Now returns the runtime's wall clock.
func (s *State) Now() time.Time {
	return s.rt.now()
}

// Logger returns a logger tagged with the rule id.
func (s *State) Logger() *slog.Logger {
	return s.logger
}
