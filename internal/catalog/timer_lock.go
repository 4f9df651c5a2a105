package catalog

import (
	"time"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/hook"
	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/schema"
)

// lockTimer is one remembered timer lock. Remaining counts down only while
// the rule is in effect.
type lockTimer struct {
	Asset     string
	Group     string
	Remaining time.Duration
}

func decodeTimers(v ir.Value) ([]lockTimer, bool) {
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, false
	}
	out := make([]lockTimer, 0, len(arr))
	for _, elem := range arr {
		obj, ok := elem.(ir.Object)
		if !ok {
			return nil, false
		}
		asset, ok1 := obj.String("asset_name")
		group, ok2 := obj.String("group_name")
		ms, ok3 := obj.Int("remove_timer")
		if !ok1 || !ok2 || !ok3 {
			return nil, false
		}
		out = append(out, lockTimer{Asset: asset, Group: group, Remaining: time.Duration(ms) * time.Millisecond})
	}
	return out, true
}

func encodeTimers(timers []lockTimer) ir.Array {
	out := make(ir.Array, len(timers))
	for i, t := range timers {
		out[i] = ir.Object{
			"asset_name":   ir.String(t.Asset),
			"group_name":   ir.String(t.Group),
			"remove_timer": ir.Int(t.Remaining.Milliseconds()),
		}
	}
	return out
}

// timerLock freezes timer locks while the rule is not in effect and vetoes
// timer changes by actors below minimumPermittedRole.
type timerLock struct {
	lastUpdate time.Time
}

// elapse counts down every remembered timer by the time since the last
// update.
func (r *timerLock) elapse(s *rules.State) {
	timers, ok := decodeTimers(s.InternalData())
	if !ok {
		return
	}
	now := s.Now()
	change := now.Sub(r.lastUpdate)
	r.lastUpdate = now
	for i := range timers {
		timers[i].Remaining -= change
	}
	s.SetInternalData(encodeTimers(timers))
}

// reapply pushes remembered timers back onto worn items, forgets items
// that are gone and adopts newly timed ones.
func (r *timerLock) reapply(s *rules.State) {
	timers, ok := decodeTimers(s.InternalData())
	if !ok {
		return
	}
	h := s.Host()
	now := s.Now()
	worn := make(map[string]host.TimedItem)
	for _, it := range h.TimedItems() {
		worn[it.Group] = it
	}

	kept := timers[:0]
	for _, t := range timers {
		it, ok := worn[t.Group]
		if !ok || it.Asset != t.Asset {
			continue
		}
		remaining := t.Remaining
		if it.MaxDuration > 0 && remaining > it.MaxDuration {
			remaining = it.MaxDuration
		}
		h.SetRemoveTimer(t.Group, now.Add(remaining))
		kept = append(kept, t)
		delete(worn, t.Group)
	}
	for _, it := range h.TimedItems() {
		if _, fresh := worn[it.Group]; fresh {
			kept = append(kept, lockTimer{Asset: it.Asset, Group: it.Group, Remaining: it.RemoveAt.Sub(now)})
		}
	}
	s.SetInternalData(encodeTimers(kept))
}

func (r *timerLock) record(s *rules.State, mod LockModification) {
	timers, ok := decodeTimers(s.InternalData())
	if !ok {
		return
	}
	remaining := mod.RemoveAt.Sub(s.Now())
	found := false
	for i := range timers {
		if timers[i].Group == mod.Group {
			timers[i].Remaining = remaining
			found = true
		}
	}
	if !found {
		timers = append(timers, lockTimer{Asset: mod.Asset, Group: mod.Group, Remaining: remaining})
	}
	s.SetInternalData(encodeTimers(timers))
}

func (r *timerLock) definition() *rules.Definition {
	return &rules.Definition{
		Name:            "Advanced timer lock",
		Kind:            rules.KindOther,
		LongDescription: "This rule changes default behavior of all timer locks on PLAYER_NAME.",
		DefaultLimit:    conditions.LimitBlocked,
		DataDefinition: []schema.Field{
			{
				Name:        rules.FieldMinimumPermittedRole,
				Type:        schema.RoleSelector,
				Default:     ir.Int(int64(host.LevelPublic)),
				Description: "Minimum role able to modify remaining time:",
			},
		},
		InternalDataDefault: func(*rules.State) ir.Value { return ir.Array{} },
		InternalDataValidate: func(v ir.Value) bool {
			_, ok := decodeTimers(v)
			return ok
		},
		Load: func(s *rules.State) {
			r.lastUpdate = s.Now()
			s.Intercept(OpTimerInventoryRemove, 5, func(args hook.Args, next hook.Next) any {
				if s.Active() {
					r.reapply(s)
				}
				return next(args)
			})
			s.Intercept(OpResolveLockModification, 1, func(args hook.Args, next hook.Next) any {
				mod, ok := lockArg(args)
				if !ok || !s.Active() || mod.RemoveAt.Equal(mod.Previous) {
					return next(args)
				}
				if !s.Permitted(mod.Actor) {
					s.Logger().Info("timer change vetoed", "group", mod.Group, "actor", mod.Actor)
					mod.RemoveAt = mod.Previous
					next(hook.Args{mod})
					return false
				}
				r.record(s, mod)
				return next(args)
			})
		},
		Tick: func(s *rules.State) bool {
			if s.InEffect() {
				r.elapse(s)
			}
			return false
		},
		StateChange: func(s *rules.State, inEffect bool) {
			if inEffect {
				r.lastUpdate = s.Now()
				return
			}
			r.elapse(s)
		},
	}
}
