package catalog

import (
	"time"

	"github.com/roach88/warden/internal/hook"
	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/track"
)

// Host operations the catalogue intercepts.
const (
	// OpPlayerActivity fires on any input from the subject.
	OpPlayerActivity = "PlayerActivity"
	// OpOrgasmStart and OpOrgasmStop take an Orgasm argument.
	OpOrgasmStart = "ActivityOrgasmStart"
	OpOrgasmStop  = "ActivityOrgasmStop"
	// OpTimerInventoryRemove runs when the host expires timer locks.
	OpTimerInventoryRemove = "TimerInventoryRemove"
	// OpResolveLockModification takes a LockModification and returns
	// whether the change is accepted.
	OpResolveLockModification = "ValidationResolveLockModification"
)

// Orgasm is the argument of OpOrgasmStart and OpOrgasmStop.
type Orgasm struct {
	Member int64
	Ruined bool
	Event  track.OrgasmEvent
}

// LockModification is a requested change to a timer lock.
type LockModification struct {
	Group    string
	Asset    string
	Previous time.Time
	RemoveAt time.Time
	Actor    int64
}

// DefineOperations installs default implementations for every operation
// the catalogue intercepts. Accepted lock modifications are written to the
// host inventory.
func DefineOperations(hooks *hook.Layer, h host.Host) {
	noop := func(hook.Args) any { return nil }
	hooks.Define(OpPlayerActivity, noop, "")
	hooks.Define(OpOrgasmStart, noop, "")
	hooks.Define(OpOrgasmStop, noop, "")
	hooks.Define(OpTimerInventoryRemove, noop, "")
	hooks.Define(OpResolveLockModification, func(args hook.Args) any {
		mod, ok := lockArg(args)
		if !ok {
			return false
		}
		return h.SetRemoveTimer(mod.Group, mod.RemoveAt)
	}, "")
}

func orgasmArg(args hook.Args) (Orgasm, bool) {
	if len(args) == 0 {
		return Orgasm{}, false
	}
	o, ok := args[0].(Orgasm)
	return o, ok
}

func lockArg(args hook.Args) (LockModification, bool) {
	if len(args) == 0 {
		return LockModification{}, false
	}
	m, ok := args[0].(LockModification)
	return m, ok
}
