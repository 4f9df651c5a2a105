package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new temp-file store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithNow(func() time.Time { return time.UnixMilli(1_700_000_000_000) }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTrigger creates a trigger record with minimal required fields.
func createTestTrigger(id, ruleID string, seq int64) TriggerRecord {
	return TriggerRecord{
		ID:      id,
		Subject: "1234",
		RuleID:  ruleID,
		Kind:    "log",
		Message: "rule " + ruleID + " triggered",
		Seq:     seq,
	}
}
