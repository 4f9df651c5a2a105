package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/testutil"
)

func removeAt(t *testing.T, f *fixture, group string) time.Time {
	t.Helper()
	for _, it := range f.host.TimedItems() {
		if it.Group == group {
			return it.RemoveAt
		}
	}
	t.Fatalf("no timed item in %s", group)
	return time.Time{}
}

func timers(asset, group string, ms int64) ir.Array {
	return ir.Array{ir.Object{
		"asset_name":   ir.String(asset),
		"group_name":   ir.String(group),
		"remove_timer": ir.Int(ms),
	}}
}

func TestTimerLock(t *testing.T) {
	epoch := testutil.Epoch
	f := newFixture(t, "", nil)
	f.host.Wear(host.TimedItem{Group: "ItemArms", Asset: "Cuffs", RemoveAt: epoch.Add(10 * time.Minute), MaxDuration: time.Hour})
	st := f.add(t, "other_timer_lock")
	f.host.SetAccess(2000, host.LevelOwner)
	require.NoError(t, f.runtime.Configure("other_timer_lock", rules.Update{
		CustomData: ir.Object{rules.FieldMinimumPermittedRole: ir.Int(int64(host.LevelLover))},
	}))

	f.call(t, OpTimerInventoryRemove)
	assert.Equal(t, timers("Cuffs", "ItemArms", 600_000), st.InternalData(), "worn timers are adopted")

	mod := LockModification{
		Group:    "ItemArms",
		Asset:    "Cuffs",
		Previous: epoch.Add(10 * time.Minute),
		RemoveAt: epoch.Add(20 * time.Minute),
		Actor:    3000,
	}
	assert.Equal(t, false, f.call(t, OpResolveLockModification, mod))
	assert.Equal(t, epoch.Add(10*time.Minute), removeAt(t, f, "ItemArms"))

	mod.Actor = 2000
	assert.Equal(t, true, f.call(t, OpResolveLockModification, mod))
	assert.Equal(t, epoch.Add(20*time.Minute), removeAt(t, f, "ItemArms"))
	assert.Equal(t, timers("Cuffs", "ItemArms", 1_200_000), st.InternalData())

	f.clock.Advance(time.Minute)
	f.sweep(t)
	assert.Equal(t, timers("Cuffs", "ItemArms", 1_140_000), st.InternalData())

	require.NoError(t, f.runtime.SetActive("other_timer_lock", false))
	f.clock.Advance(30 * time.Minute)
	f.call(t, OpTimerInventoryRemove)
	assert.Equal(t, timers("Cuffs", "ItemArms", 1_140_000), st.InternalData(), "frozen while inactive")

	require.NoError(t, f.runtime.SetActive("other_timer_lock", true))
	f.call(t, OpTimerInventoryRemove)
	assert.Equal(t, f.clock.Now().Add(19*time.Minute), removeAt(t, f, "ItemArms"))

	f.host.Remove("ItemArms")
	f.call(t, OpTimerInventoryRemove)
	assert.Equal(t, ir.Array{}, st.InternalData())
}

func TestTimerLock_CapsAtMaxDuration(t *testing.T) {
	f := newFixture(t, "", nil)
	st := f.add(t, "other_timer_lock")
	st.SetInternalData(timers("Cuffs", "ItemArms", int64(3*time.Hour/time.Millisecond)))
	f.host.Wear(host.TimedItem{Group: "ItemArms", Asset: "Cuffs", RemoveAt: testutil.Epoch.Add(time.Minute), MaxDuration: time.Hour})

	f.call(t, OpTimerInventoryRemove)
	assert.Equal(t, testutil.Epoch.Add(time.Hour), removeAt(t, f, "ItemArms"))
}
