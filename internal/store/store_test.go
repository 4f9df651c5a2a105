package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Driver() != "sqlite3" {
		t.Errorf("Driver() = %q, want sqlite3", s.Driver())
	}
}

func TestOpen_SQLiteURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "url.db")

	s, err := Open("sqlite://" + path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created at URL path")
	}
}

func TestOpen_RejectsUnknownScheme(t *testing.T) {
	if _, err := Open("mysql://localhost/warden"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		in         string
		driver     string
		dataSource string
	}{
		{"warden.db", "sqlite3", "warden.db"},
		{"sqlite://data/warden.db", "sqlite3", "data/warden.db"},
		{"sqlite:///var/lib/warden.db", "sqlite3", "/var/lib/warden.db"},
		{"postgres://u:p@localhost:5432/warden?sslmode=disable", "postgres", "postgres://u:p@localhost:5432/warden?sslmode=disable"},
	}
	for _, tt := range tests {
		driver, ds, err := parseURL(tt.in)
		if err != nil {
			t.Fatalf("parseURL(%q) failed: %v", tt.in, err)
		}
		if driver != tt.driver || ds != tt.dataSource {
			t.Errorf("parseURL(%q) = (%q, %q), want (%q, %q)", tt.in, driver, ds, tt.driver, tt.dataSource)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"warden_meta", "state_blobs", "trigger_log"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, want := range checks {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	version, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", version, currentSchemaVersion)
	}

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_trigger_log_subject_seq'",
	).Scan(&name)
	if err != nil {
		t.Errorf("v1 index missing: %v", err)
	}

	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate() on current schema failed: %v", err)
	}
}
