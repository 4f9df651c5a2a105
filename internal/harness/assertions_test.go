package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/store"
	"github.com/roach88/warden/internal/testutil"
)

func intPtr(n int) *int { return &n }

func sampleResult() *Result {
	r := NewResult()
	r.Triggers = []store.TriggerRecord{
		{RuleID: "other_log_money", Kind: "trigger", Message: "Alice spent money: 5 $ | new balance: 5 $"},
		{RuleID: "other_forbid_afk", Kind: "trigger", Message: "Alice became inactive, which was forbidden"},
		{RuleID: "other_log_money", Kind: "trigger", Message: "Alice spent money: 5 $ | new balance: 0 $"},
	}
	r.Messages = []testutil.Message{
		{Kind: "infobeep", Text: "A BCX rule has logged this financial transaction!"},
		{Kind: "whisper", Target: 2000, Text: "Unknown command: track"},
	}
	return r
}

func TestEvaluateAssertions_Triggers(t *testing.T) {
	result := sampleResult()

	tests := []struct {
		name      string
		assertion Assertion
		ok        bool
	}{
		{"count all", Assertion{Type: AssertTriggerCount, Count: intPtr(3)}, true},
		{"count by rule", Assertion{Type: AssertTriggerCount, Rule: "other_log_money", Count: intPtr(2)}, true},
		{"count mismatch", Assertion{Type: AssertTriggerCount, Rule: "other_forbid_afk", Count: intPtr(2)}, false},
		{"count by kind", Assertion{Type: AssertTriggerCount, Kind: "attempt", Count: intPtr(0)}, true},
		{"contains", Assertion{Type: AssertTriggerContains, Rule: "other_forbid_afk", Text: "Alice became inactive, which was forbidden"}, true},
		{"contains wrong rule", Assertion{Type: AssertTriggerContains, Rule: "other_log_money", Text: "Alice became inactive, which was forbidden"}, false},
		{"order", Assertion{Type: AssertTriggerOrder, Rules: []string{"other_log_money", "other_forbid_afk"}}, true},
		{"order reversed", Assertion{Type: AssertTriggerOrder, Rules: []string{"other_forbid_afk", "other_log_money"}}, false},
		{"order missing rule", Assertion{Type: AssertTriggerOrder, Rules: []string{"other_log_money", "other_track_time"}}, false},
		{"message", Assertion{Type: AssertMessageContains, Kind: "whisper", Text: "Unknown command: track"}, true},
		{"message wrong kind", Assertion{Type: AssertMessageContains, Kind: "local", Text: "Unknown command: track"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.assertion}, &AssertionContext{})
			if tt.ok {
				assert.Empty(t, errs)
			} else {
				assert.Len(t, errs, 1)
			}
		})
	}
}

func TestEvaluateAssertions_Setting(t *testing.T) {
	h := testutil.NewHost(1000, "Alice")
	h.SetBool("OnlineSettings.EnableAfkTimer", true)
	h.SetInt("ItemPermission", 3)
	actx := &AssertionContext{Host: h}

	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertSetting, Key: "OnlineSettings.EnableAfkTimer", Value: true},
		{Type: AssertSetting, Key: "ItemPermission", Value: 3},
		{Type: AssertSetting, Key: "ItemPermission", Value: 1},
		{Type: AssertSetting, Key: "GameplaySettings.EnableSafeword", Value: false},
	}, actx)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertions[2]")
	assert.Contains(t, errs[0], "Actual: 3 (known=true)")
	assert.Contains(t, errs[1], "assertions[3]")
	assert.Contains(t, errs[1], "known=false")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTriggerCount,
		Expected: "1 triggers of any rule",
		Actual:   "0 triggers",
		Trace: []TraceEvent{
			{Seq: 1, Type: EventStep, Step: "sweep", Detail: "1"},
			{Seq: 2, Type: EventTrigger, Kind: "trigger", Rule: "other_forbid_afk", Text: "Alice became inactive"},
			{Seq: 3, Type: EventMessage, Kind: "local", Text: "logged"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trigger_count")
	assert.Contains(t, msg, "[1] sweep 1")
	assert.Contains(t, msg, "[2]   trigger other_forbid_afk: Alice became inactive")
	assert.Contains(t, msg, "[3]   local: logged")
}
