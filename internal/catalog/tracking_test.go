package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/testutil"
	"github.com/roach88/warden/internal/track"
)

func TestTrackTime(t *testing.T) {
	f := newFixture(t, "", nil)
	st := f.add(t, "other_track_time")
	f.host.SetAccess(2000, host.LevelLover)

	f.clock.Advance(30 * time.Second)
	f.sweep(t)
	assert.Equal(t, ir.Int(0), st.InternalData(), "less than a minute is buffered")

	f.clock.Advance(40 * time.Second)
	f.sweep(t)
	assert.Equal(t, ir.Int(70_000), st.InternalData())

	f.clock.Advance(5 * time.Second)
	f.commands.Dispatch(2000, "!ruletime")
	f.commands.Dispatch(3000, "!ruletime")
	assert.Equal(t, []testutil.Message{
		{Kind: "whisper", Target: 2000, Text: "Since the time tracking rule was added, 1m 15s were counted, where all trigger conditions were true."},
		{Kind: "whisper", Target: 3000, Text: "Unknown command: ruletime"},
	}, f.host.TakeMessages())

	require.NoError(t, f.runtime.SetActive("other_track_time", false))
	assert.Equal(t, ir.Int(75_000), st.InternalData(), "leaving effect folds the remainder in")

	f.clock.Advance(10 * time.Minute)
	require.NoError(t, f.runtime.SetActive("other_track_time", true))
	f.commands.Dispatch(2000, "!ruletime")
	assert.Equal(t, []testutil.Message{
		{Kind: "whisper", Target: 2000, Text: "Since the time tracking rule was added, 1m 15s were counted, where all trigger conditions were true."},
	}, f.host.TakeMessages())
}

func TestTrackStatus(t *testing.T) {
	f := newFixture(t, "", nil)
	st := f.add(t, "other_track_status")
	f.host.SetArousal(50)
	f.host.SetAccess(2000, host.LevelOwner)

	ev := track.OrgasmEvent{Source: 2000, Target: 1000, Activity: "Kiss", Zone: "ItemMouth", At: 5}
	f.call(t, OpOrgasmStart, Orgasm{Member: 1000, Event: ev})
	f.call(t, OpOrgasmStart, Orgasm{Member: 1000, Ruined: true})
	f.call(t, OpOrgasmStart, Orgasm{Member: 2000})
	f.sweep(t)

	total, err := track.Decode(st.InternalData())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total.OrgasmCount)
	require.NotNil(t, total.LastOrgasm)
	assert.Equal(t, ev, *total.LastOrgasm)

	f.call(t, OpOrgasmStop, Orgasm{Member: 1000, Ruined: true})
	f.call(t, OpOrgasmStop, Orgasm{Member: 2000, Ruined: true})
	f.call(t, OpOrgasmStop, Orgasm{Member: 1000})
	f.sweep(t)
	total, err = track.Decode(st.InternalData())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total.RuinedCount)

	f.clock.Advance(90 * time.Second)
	f.commands.Dispatch(2000, "!track")
	f.commands.Dispatch(2000, "!track chat")
	f.commands.Dispatch(3000, "!track")
	report := "Reporting to my owner: Alice has gone 1m 30s without an orgasm. In the last 1m 30s, Alice " +
		"had 1 orgasms and 1 ruined ones, and spent 0s on the edge."
	assert.Equal(t, []testutil.Message{
		{Kind: "whisper", Target: 2000, Text: report},
		{Kind: "announce", Text: report},
		{Kind: "whisper", Target: 3000, Text: "Unknown command: track"},
	}, f.host.TakeMessages())
}

func TestTrackStatus_OutOfEffectIgnored(t *testing.T) {
	f := newFixture(t, "", nil)
	st := f.add(t, "other_track_status")
	require.NoError(t, f.runtime.SetActive("other_track_status", false))

	f.call(t, OpOrgasmStart, Orgasm{Member: 1000})
	require.NoError(t, f.runtime.SetActive("other_track_status", true))
	f.sweep(t)

	total, err := track.Decode(st.InternalData())
	require.NoError(t, err)
	assert.Zero(t, total.OrgasmCount)
}
