package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/ir"
)

func TestMerge_NoActivityResetsOnOrgasm(t *testing.T) {
	total := Data{ActiveTime: 1000, NoActiveTime: 900, NoRuinedCount: 2, LastArousal: 40}
	ev := &OrgasmEvent{Source: 1, Target: 2, Zone: "ItemVulva", At: 5}

	out := Merge(total, Data{ActiveTime: 100, NoActiveTime: 30, OrgasmCount: 1, LastArousal: -1, LastOrgasm: ev})
	assert.Equal(t, int64(1100), out.ActiveTime)
	assert.Equal(t, int64(30), out.NoActiveTime)
	assert.Equal(t, int64(0), out.NoRuinedCount)
	assert.Equal(t, int64(40), out.LastArousal, "unobserved arousal keeps the old sample")
	require.NotNil(t, out.LastOrgasm)
	assert.Equal(t, "ItemVulva", out.LastOrgasm.Zone)

	out2 := Merge(out, Data{ActiveTime: 50, NoActiveTime: 50, LastArousal: 10})
	assert.Equal(t, int64(80), out2.NoActiveTime)
	assert.Equal(t, int64(10), out2.LastArousal)
	assert.Same(t, out.LastOrgasm, out2.LastOrgasm, "snapshot not overwritten without an event")
}

func TestDataCodec(t *testing.T) {
	d := Data{
		ActiveTime:  120000,
		OrgasmCount: 2,
		LastArousal: 93,
		LastOrgasm:  &OrgasmEvent{Source: 10, Target: 20, Activity: "Caress", Zone: "ItemBreast", Item: "Feather", At: 77},
	}

	back, err := Decode(d.Value())
	require.NoError(t, err)
	assert.Equal(t, d, back)

	blob, err := ir.MarshalCanonical(Zero().Value())
	require.NoError(t, err)
	assert.Equal(t,
		`{"active_time":0,"edged_time":0,"last_arousal":-1,"no_active_time":0,"no_edged_time":0,"no_ruined_count":0,"orgasm_count":0,"ruined_count":0}`,
		string(blob))
}

func TestDecode_Defaults(t *testing.T) {
	d, err := Decode(ir.Object{"orgasm_count": ir.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.OrgasmCount)
	assert.Equal(t, int64(-1), d.LastArousal)
	assert.Nil(t, d.LastOrgasm)
}

func TestDecode_Rejects(t *testing.T) {
	for _, v := range []ir.Value{
		ir.Int(0),
		ir.Object{"active_time": ir.String("1h")},
		ir.Object{"orgasm_count": ir.Int(-2)},
		ir.Object{"last_orgasm_data": ir.Int(1)},
	} {
		_, err := Decode(v)
		assert.Error(t, err, ir.Format(v))
	}
}
