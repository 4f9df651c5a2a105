package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Zero(t, cfg.Subject)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, 3500*time.Millisecond, cfg.LoginGrace)
	assert.Equal(t, time.Minute, cfg.Track.MergeThreshold)
	assert.Equal(t, int64(90), cfg.Track.EdgeThreshold)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database: postgres://warden@localhost/warden
subject: 1000
player_name: Alice
tick_interval: 500ms
track:
  merge_threshold: 30s
  edge_threshold: 80
log:
  level: DEBUG
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://warden@localhost/warden", cfg.Database)
	assert.Equal(t, int64(1000), cfg.Subject)
	assert.Equal(t, "Alice", cfg.PlayerName)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.Track.MergeThreshold)
	assert.Equal(t, int64(80), cfg.Track.EdgeThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "subject: 1000\nlog:\n  level: warn\n")
	t.Setenv("WARDEN_SUBJECT", "2000")
	t.Setenv("WARDEN_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), cfg.Subject)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"negative subject", "subject: -1", "subject must not be negative"},
		{"zero tick", "tick_interval: 0s", "tick_interval must be positive"},
		{"edge out of range", "track:\n  edge_threshold: 120", "track.edge_threshold must be between 0 and 100"},
		{"bad level", "log:\n  level: loud", "log.level must be"},
		{"bad format", "log:\n  format: xml", "log.format must be text or json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCatalogOptions(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	opts := cfg.CatalogOptions()
	assert.Equal(t, cfg.LoginGrace, opts.LoginGrace)
	assert.Len(t, opts.Track, 2)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf, true).Debug("shown", "rule", "other_forbid_afk")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"rule":"other_forbid_afk"`)
}
