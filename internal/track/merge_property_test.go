package track

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func genEvent() gopter.Gen {
	return gopter.CombineGens(
		gen.Int64Range(1, 99999),
		gen.OneConstOf("ItemVulva", "ItemBreast", "ItemMouth"),
		gen.Int64Range(0, 1<<40),
	).Map(func(vals []interface{}) OrgasmEvent {
		return OrgasmEvent{
			Source: vals[0].(int64),
			Target: vals[0].(int64),
			Zone:   vals[1].(string),
			At:     vals[2].(int64),
		}
	})
}

func genData() gopter.Gen {
	n := gen.Int64Range(0, 1_000_000)
	return gopter.CombineGens(
		n, n, gen.Int64Range(0, 3), gen.Int64Range(0, 3),
		n, n, gen.Int64Range(0, 3),
		gen.Int64Range(-1, 100),
		gen.Bool(),
		genEvent(),
	).Map(func(vals []interface{}) Data {
		d := Data{
			ActiveTime:    vals[0].(int64),
			EdgedTime:     vals[1].(int64),
			OrgasmCount:   vals[2].(int64),
			RuinedCount:   vals[3].(int64),
			NoActiveTime:  vals[4].(int64),
			NoEdgedTime:   vals[5].(int64),
			NoRuinedCount: vals[6].(int64),
			LastArousal:   vals[7].(int64),
		}
		if vals[8].(bool) {
			ev := vals[9].(OrgasmEvent)
			d.LastOrgasm = &ev
		}
		return d
	})
}

func TestMergeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("empty diff leaves the total unchanged", prop.ForAll(
		func(total Data) bool {
			return assert.ObjectsAreEqual(total, Merge(total, Zero()))
		},
		genData(),
	))

	properties.Property("merging d1 then d2 equals merging their combination", prop.ForAll(
		func(total, d1, d2 Data) bool {
			stepwise := Merge(Merge(total, d1), d2)
			combined := Merge(total, Combine(d1, d2))
			return assert.ObjectsAreEqual(stepwise, combined)
		},
		genData(), genData(), genData(),
	))

	properties.Property("counters never decrease", prop.ForAll(
		func(total, diff Data) bool {
			out := Merge(total, diff)
			return out.ActiveTime >= total.ActiveTime &&
				out.EdgedTime >= total.EdgedTime &&
				out.OrgasmCount >= total.OrgasmCount &&
				out.RuinedCount >= total.RuinedCount
		},
		genData(), genData(),
	))

	properties.TestingRun(t)
}
