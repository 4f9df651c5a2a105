package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/warden/internal/ir"
)

// TraceSnapshot is the golden form of a run.
type TraceSnapshot struct {
	ScenarioName string
	Pass         bool
	Trace        []TraceEvent
	Errors       []string
}

// Canonical renders the snapshot as canonical JSON. Empty trace fields
// are left out.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	trace := make(ir.Array, len(s.Trace))
	for i, ev := range s.Trace {
		obj := ir.Object{
			"seq":  ir.Int(ev.Seq),
			"type": ir.String(ev.Type),
		}
		putString(obj, "step", ev.Step)
		putString(obj, "detail", ev.Detail)
		putString(obj, "error", ev.Error)
		putString(obj, "rule", ev.Rule)
		putString(obj, "kind", ev.Kind)
		putString(obj, "text", ev.Text)
		if ev.Target != 0 {
			obj["target"] = ir.Int(ev.Target)
		}
		if ev.At != 0 {
			obj["at"] = ir.Int(ev.At)
		}
		trace[i] = obj
	}
	root := ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"pass":          ir.Bool(s.Pass),
		"trace":         trace,
	}
	if len(s.Errors) > 0 {
		root["errors"] = ir.StringList(s.Errors...)
	}
	return ir.MarshalCanonical(root)
}

func putString(obj ir.Object, key, value string) {
	if value != "" {
		obj[key] = ir.String(value)
	}
}

// RunWithGolden runs scenario and compares its trace against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: name,
		Pass:         result.Pass,
		Trace:        result.Trace,
		Errors:       result.Errors,
	}
	data, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
