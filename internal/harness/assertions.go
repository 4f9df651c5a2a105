package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/warden/internal/engine"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/testutil"
)

// AssertionContext gives assertions access to live state.
type AssertionContext struct {
	Engine *engine.Engine
	Host   *testutil.Host
}

// AssertionError is a failed assertion with the trace for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		switch ev.Type {
		case EventStep:
			fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Step, ev.Detail)
		case EventTrigger:
			fmt.Fprintf(&buf, "  [%d]   %s %s: %s\n", ev.Seq, ev.Kind, ev.Rule, ev.Text)
		case EventMessage:
			fmt.Fprintf(&buf, "  [%d]   %s: %s\n", ev.Seq, ev.Kind, ev.Text)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failures.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTriggerCount:
		return assertTriggerCount(result, a)
	case AssertTriggerContains:
		return assertTriggerContains(result, a)
	case AssertTriggerOrder:
		return assertTriggerOrder(result, a)
	case AssertMessageContains:
		return assertMessageContains(result, a)
	case AssertRuleState:
		return assertRuleState(result, a, actx)
	case AssertSetting:
		return assertSetting(result, a, actx)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertTriggerCount(result *Result, a Assertion) error {
	count := 0
	for _, rec := range result.Triggers {
		if (a.Rule == "" || rec.RuleID == a.Rule) && (a.Kind == "" || rec.Kind == a.Kind) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTriggerCount,
			Expected: fmt.Sprintf("%d triggers of %s", *a.Count, orAny(a.Rule)),
			Actual:   fmt.Sprintf("%d triggers", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertTriggerContains(result *Result, a Assertion) error {
	for _, rec := range result.Triggers {
		if rec.RuleID == a.Rule && rec.Message == a.Text && (a.Kind == "" || rec.Kind == a.Kind) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTriggerContains,
		Expected: fmt.Sprintf("trigger of %s with text %q", a.Rule, a.Text),
		Actual:   "not found",
		Trace:    result.Trace,
	}
}

// assertTriggerOrder checks that each rule's first trigger comes after the
// previous rule's first trigger.
func assertTriggerOrder(result *Result, a Assertion) error {
	positions := make(map[string]int)
	for i, rec := range result.Triggers {
		if _, seen := positions[rec.RuleID]; !seen {
			positions[rec.RuleID] = i + 1
		}
	}
	for _, rule := range a.Rules {
		if positions[rule] == 0 {
			return &AssertionError{
				Type:     AssertTriggerOrder,
				Expected: fmt.Sprintf("all rules triggered: %v", a.Rules),
				Actual:   fmt.Sprintf("missing rule: %s", rule),
				Trace:    result.Trace,
			}
		}
	}
	for i := 1; i < len(a.Rules); i++ {
		prev, curr := a.Rules[i-1], a.Rules[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTriggerOrder,
				Expected: fmt.Sprintf("rules in order: %v", a.Rules),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: result.Trace,
			}
		}
	}
	return nil
}

func assertMessageContains(result *Result, a Assertion) error {
	for _, msg := range result.Messages {
		if msg.Kind == a.Kind && msg.Text == a.Text {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertMessageContains,
		Expected: fmt.Sprintf("%s message %q", a.Kind, a.Text),
		Actual:   "not found",
		Trace:    result.Trace,
	}
}

func assertRuleState(result *Result, a Assertion, actx *AssertionContext) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertRuleState, Expected: expected, Actual: actual, Trace: result.Trace}
	}
	st, ok := actx.Engine.Rules().State(a.Rule)
	if !ok {
		return fail("registered rule "+a.Rule, "unknown rule")
	}
	if _, stored := st.Condition(); !stored {
		return fail("stored rule "+a.Rule, "not stored")
	}
	if a.Active != nil && st.Active() != *a.Active {
		return fail(fmt.Sprintf("%s active=%t", a.Rule, *a.Active), fmt.Sprintf("active=%t", st.Active()))
	}
	if a.InEffect != nil && st.InEffect() != *a.InEffect {
		return fail(fmt.Sprintf("%s in_effect=%t", a.Rule, *a.InEffect), fmt.Sprintf("in_effect=%t", st.InEffect()))
	}
	if a.CustomData != nil {
		custom := st.CustomData()
		for key, raw := range a.CustomData {
			want, err := ir.FromAny(raw)
			if err != nil {
				return fmt.Errorf("custom_data[%s]: %w", key, err)
			}
			if !ir.Equal(custom[key], want) {
				return fail(fmt.Sprintf("%s custom_data.%s=%s", a.Rule, key, ir.Format(want)), ir.Format(custom[key]))
			}
		}
	}
	if a.InternalData != nil {
		want, err := ir.FromAny(a.InternalData)
		if err != nil {
			return fmt.Errorf("internal_data: %w", err)
		}
		if got := st.InternalData(); !ir.Equal(got, want) {
			return fail(fmt.Sprintf("%s internal_data=%s", a.Rule, ir.Format(want)), ir.Format(got))
		}
	}
	return nil
}

func assertSetting(result *Result, a Assertion, actx *AssertionContext) error {
	var actual string
	switch want := a.Value.(type) {
	case bool:
		got, ok := actx.Host.Bool(a.Key)
		if ok && got == want {
			return nil
		}
		actual = fmt.Sprintf("%t (known=%t)", got, ok)
	case int:
		got, ok := actx.Host.Int(a.Key)
		if ok && got == int64(want) {
			return nil
		}
		actual = fmt.Sprintf("%d (known=%t)", got, ok)
	default:
		return fmt.Errorf("setting %s: unsupported value %T", a.Key, a.Value)
	}
	return &AssertionError{
		Type:     AssertSetting,
		Expected: fmt.Sprintf("%s=%v", a.Key, a.Value),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func orAny(rule string) string {
	if rule == "" {
		return "any rule"
	}
	return rule
}
