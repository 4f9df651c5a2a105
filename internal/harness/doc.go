// Package harness runs scripted scenarios against a real engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: forbid_afk
//	description: "Inactivity is logged once per stretch"
//	host:
//	  member: 1000
//	  name: Alice
//	  money: 100
//	  access: { 2000: owner }
//	stored:            # optional persisted state to start from
//	  conditions: { rules: { ... } }
//	steps:
//	  - add_rule: other_forbid_afk
//	  - advance: 11m
//	  - sweep: 1
//	  - call: { op: PlayerActivity }
//	  - whisper: { from: 2000, text: "!track" }
//	assertions:
//	  - type: trigger_count
//	    rule: other_forbid_afk
//	    count: 1
//
// Each step sets exactly one action. A step that fails fails the scenario
// unless it carries expect: error.
//
// # Assertion Types
//
//   - trigger_count: number of triggers, optionally for one rule and kind
//   - trigger_contains: a trigger of rule with the exact log text
//   - trigger_order: rules triggered in this order (gaps allowed)
//   - message_contains: a notification of kind with the exact text
//   - rule_state: stored flags and data of one rule
//   - setting: a host setting value
//
// # Determinism
//
// Every scenario runs on a fresh in-memory SQLite store with a fake wall
// clock starting at testutil.Epoch, sequential trigger ids and a seeded
// random source. Traces are therefore stable and compared against golden
// files with RunWithGolden.
package harness
