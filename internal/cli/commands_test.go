package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/store"
)

const scenarioDir = "../harness/testdata/scenarios"

// decode unwraps a JSON success response into data.
func decode(t *testing.T, out string, data any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, data))
}

func listStored(t *testing.T, db string) map[string]RuleView {
	t.Helper()
	out, err := execute(t, "rules", "list", "--stored", "--db", db, "--subject", "1000", "--format", "json")
	require.NoError(t, err)
	var views []RuleView
	decode(t, out, &views)
	byID := make(map[string]RuleView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}
	return byID
}

func TestRules_AddListRemove(t *testing.T) {
	db := testDB(t)

	out, err := execute(t, "rules", "add", "other_log_money", "--db", db, "--subject", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ other_log_money added")

	stored := listStored(t, db)
	require.Contains(t, stored, "other_log_money")
	assert.True(t, stored["other_log_money"].Stored)
	assert.True(t, stored["other_log_money"].Active)
	assert.Equal(t, "normal", stored["other_log_money"].Limit)
	assert.Len(t, stored, 1)

	_, err = execute(t, "rules", "add", "other_log_money", "--db", db, "--subject", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "rules", "remove", "other_log_money", "--db", db, "--subject", "1000")
	require.NoError(t, err)
	assert.Empty(t, listStored(t, db))
}

func TestRules_ListAll(t *testing.T) {
	out, err := execute(t, "rules", "list", "--db", testDB(t), "--subject", "1000", "--format", "json")
	require.NoError(t, err)

	var views []RuleView
	decode(t, out, &views)
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
		assert.False(t, v.Stored)
	}
	assert.Contains(t, ids, "other_forbid_afk")
	assert.Contains(t, ids, "other_track_time")
}

func TestRules_UnknownRule(t *testing.T) {
	_, err := execute(t, "rules", "add", "no_such_rule", "--db", testDB(t), "--subject", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "rule no_such_rule not added")
}

func TestRules_ListDoesNotWrite(t *testing.T) {
	db := testDB(t)
	_, err := execute(t, "rules", "list", "--db", db, "--subject", "1000")
	require.NoError(t, err)

	_, err = execute(t, "state", "show", "--db", db, "--subject", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "a read-only session stores nothing")
}

func TestRules_Apply(t *testing.T) {
	db := testDB(t)
	preset := writeFile(t, t.TempDir(), "p.cue", `
rules: {
	other_forbid_afk: {
		active: false
		data: minutesBeforeAfk: 15
	}
	other_log_money: data: logEarnings: true
}
`)
	_, err := execute(t, "rules", "add", "other_log_money", "--db", db, "--subject", "1000")
	require.NoError(t, err)

	out, err := execute(t, "rules", "apply", preset, "--db", db, "--subject", "1000", "--format", "json")
	require.NoError(t, err)
	var applied []AppliedRule
	decode(t, out, &applied)
	assert.Equal(t, []AppliedRule{
		{ID: "other_forbid_afk", Added: true, Active: false},
		{ID: "other_log_money", Added: false, Active: true},
	}, applied)

	stored := listStored(t, db)
	assert.Len(t, stored, 2)
	assert.False(t, stored["other_forbid_afk"].Active)

	out, err = execute(t, "conditions", "get", "rules", "--db", db, "--subject", "1000", "--format", "json")
	require.NoError(t, err)
	var data map[string]any
	decode(t, out, &data)
	assert.Contains(t, data, "other_forbid_afk")
	assert.Contains(t, data, "other_log_money")
}

func TestRules_ApplyRejectsWholePreset(t *testing.T) {
	db := testDB(t)
	preset := writeFile(t, t.TempDir(), "p.cue", `
rules: {
	other_log_money: active: true
	other_forbid_afk: data: minutesBeforeAfk: "ten"
	no_such_rule: active: true
}
`)
	out, err := execute(t, "rules", "apply", preset, "--db", db, "--subject", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ preset has 2 problem(s)")
	assert.Contains(t, out, "no_such_rule: unknown rule")

	_, err = execute(t, "state", "show", "--db", db, "--subject", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "nothing is written")
}

func TestRules_Validate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.cue", "rules: other_forbid_afk: data: minutesBeforeAfk: 20\n")
	bad := writeFile(t, dir, "bad.cue", "rules: other_log_money: enforce: true\n")

	out, err := execute(t, "rules", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ preset valid (1 rules)")

	out, err = execute(t, "rules", "validate", bad, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidData, resp.Error.Code)

	_, err = execute(t, "rules", "validate", filepath.Join(dir, "missing.cue"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestState_ShowAndList(t *testing.T) {
	db := testDB(t)

	out, err := execute(t, "state", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No stored state.")

	out, err = execute(t, "state", "show", "--db", db, "--subject", "1000")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E201]: no state stored for subject 1000")

	_, err = execute(t, "rules", "add", "other_forbid_afk", "--db", db, "--subject", "1000")
	require.NoError(t, err)

	out, err = execute(t, "state", "show", "--db", db, "--subject", "1000", "--format", "json")
	require.NoError(t, err)
	var view StateView
	decode(t, out, &view)
	assert.Equal(t, "1000", view.Subject)
	assert.Positive(t, view.Revision)
	assert.NotEmpty(t, view.Digest)
	assert.Contains(t, view.State, "conditions")

	out, err = execute(t, "state", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "1000\n", out)
}

func TestState_Migrate(t *testing.T) {
	db := testDB(t)

	out, err := execute(t, "state", "migrate", "--db", db, "--subject", "1000", "--format", "json")
	require.NoError(t, err)
	var result MigrateResult
	decode(t, out, &result)
	assert.Equal(t, "1000", result.Subject)
	assert.Positive(t, result.SchemaVersion)

	out, err = execute(t, "state", "migrate", "--db", db, "--subject", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to change")
}

func TestState_MigratePrunesLegacy(t *testing.T) {
	db := testDB(t)
	s, err := store.Open(db)
	require.NoError(t, err)
	_, err = s.SaveBlob(context.Background(), "1000",
		[]byte(`{"conditions":{"rules":{"no_such_rule":{"active":true,"data":{"customData":{}}}}},"version":1}`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out, err := execute(t, "state", "migrate", "--db", db, "--subject", "1000", "--format", "json")
	require.NoError(t, err)
	var result MigrateResult
	decode(t, out, &result)
	require.Len(t, result.Pruned, 1)
	assert.Contains(t, result.Pruned[0], "no_such_rule")
}

func TestConditions_SetActive(t *testing.T) {
	db := testDB(t)
	_, err := execute(t, "rules", "add", "other_forbid_afk", "--db", db, "--subject", "1000")
	require.NoError(t, err)

	out, err := execute(t, "conditions", "set-active", "rules", "other_forbid_afk", "false", "--db", db, "--subject", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ rules/other_forbid_afk active=false")
	assert.False(t, listStored(t, db)["other_forbid_afk"].Active)

	_, err = execute(t, "conditions", "set-active", "rules", "other_forbid_afk", "maybe", "--db", db, "--subject", "1000")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "conditions", "set-active", "rules", "other_log_money", "true", "--db", db, "--subject", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "rule is not stored")
}

func TestConditions_GetUnknownCategory(t *testing.T) {
	_, err := execute(t, "conditions", "get", "nope", "--db", testDB(t), "--subject", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "category nope")
}

func TestTriggers(t *testing.T) {
	db := testDB(t)
	s, err := store.Open(db)
	require.NoError(t, err)
	ctx := context.Background()
	for i, rule := range []string{"other_log_money", "other_forbid_afk", "other_log_money"} {
		require.NoError(t, s.AppendTrigger(ctx, store.TriggerRecord{
			ID:        "t" + string(rune('a'+i)),
			Subject:   "1000",
			RuleID:    rule,
			Kind:      "log",
			Message:   "entry " + rule,
			Seq:       int64(i + 1),
			CreatedAt: 1700000000000 + int64(i),
		}))
	}
	require.NoError(t, s.Close())

	out, err := execute(t, "triggers", "--db", db, "--subject", "1000", "--format", "json")
	require.NoError(t, err)
	var result TriggersResult
	decode(t, out, &result)
	require.Len(t, result.Triggers, 3)
	assert.Equal(t, int64(1), result.Triggers[0].Seq)
	assert.Equal(t, "other_forbid_afk", result.Triggers[1].RuleID)

	out, err = execute(t, "triggers", "--db", db, "--subject", "1000", "--rule", "other_log_money")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] 2023-11-14T22:13:20Z other_log_money log      entry other_log_money")
	assert.NotContains(t, out, "other_forbid_afk")

	out, err = execute(t, "triggers", "--db", db, "--subject", "2000")
	require.NoError(t, err)
	assert.Contains(t, out, "No triggers logged.")
}

func TestScenario_Directory(t *testing.T) {
	out, err := execute(t, "scenario", scenarioDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ forbid_afk")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestScenario_FilterAndJSON(t *testing.T) {
	out, err := execute(t, "scenario", scenarioDir, "--filter", "log_*", "--format", "json")
	require.NoError(t, err)
	var summary ScenarioSummary
	decode(t, out, &summary)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, "log_money", summary.Scenarios[0].Name)
	assert.True(t, summary.Scenarios[0].Pass)
}

func TestScenario_Failing(t *testing.T) {
	path := writeFile(t, t.TempDir(), "failing.yaml", `
name: failing
description: "expects a trigger that never comes"
host:
  member: 1000
  name: Alice
steps:
  - add_rule: other_forbid_afk
assertions:
  - type: trigger_count
    count: 1
`)
	out, err := execute(t, "scenario", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "Scenario Summary: 0 passed, 1 failed, 1 total")
}

func TestScenario_Golden(t *testing.T) {
	golden := t.TempDir()
	file := filepath.Join(scenarioDir, "log_money.yaml")

	_, err := execute(t, "scenario", file, "--update")
	assert.Equal(t, ExitCommandError, GetExitCode(err), "--update needs --golden")

	_, err = execute(t, "scenario", file, "--golden", golden, "--update")
	require.NoError(t, err)
	path := filepath.Join(golden, "log_money.golden")
	require.FileExists(t, path)

	_, err = execute(t, "scenario", file, "--golden", golden)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	out, err := execute(t, "scenario", file, "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match")
}

func TestScenario_MissingPath(t *testing.T) {
	_, err := execute(t, "scenario", filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
