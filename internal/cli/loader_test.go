package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/ir"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const strictPreset = `
rules: {
	other_log_money: data: logEarnings: true
	other_forbid_afk: {
		active:  true
		enforce: true
		data: minutesBeforeAfk: 15
	}
}
`

func TestLoadPreset_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "strict.cue", strictPreset)

	preset, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, 1, preset.FileCount)
	require.Len(t, preset.Rules, 2)

	afk := preset.Rules[0]
	assert.Equal(t, "other_forbid_afk", afk.ID, "rules are sorted by id")
	require.NotNil(t, afk.Active)
	assert.True(t, *afk.Active)
	require.NotNil(t, afk.Enforce)
	assert.Nil(t, afk.Log)
	assert.True(t, ir.Equal(ir.Int(15), afk.Data["minutesBeforeAfk"]))
	assert.True(t, afk.Pos.IsValid())

	money := preset.Rules[1]
	assert.Equal(t, "other_log_money", money.ID)
	assert.Nil(t, money.Active)
	assert.True(t, ir.Equal(ir.Bool(true), money.Data["logEarnings"]))
}

func TestLoadPreset_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "package preset\n\nrules: other_log_money: active: true\n")
	writeFile(t, dir, "b.cue", "package preset\n\nrules: other_track_time: active: false\n")

	preset, err := LoadPreset(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, preset.FileCount)
	require.Len(t, preset.Rules, 2)
	assert.Equal(t, "other_log_money", preset.Rules[0].ID)
	assert.Equal(t, "other_track_time", preset.Rules[1].ID)
}

func TestLoadPreset_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
		msg     string
	}{
		{"no rules", "other: 1\n", ErrCodeInvalidPreset, "no rules field"},
		{"empty rules", "rules: {}\n", ErrCodeInvalidPreset, "configures no rules"},
		{"unknown field", "rules: other_log_money: colour: \"red\"\n", ErrCodeInvalidPreset, "rules.other_log_money.colour: unknown field"},
		{"non-bool active", "rules: other_log_money: active: 1\n", ErrCodeInvalidPreset, "must be a bool"},
		{"data not struct", "rules: other_log_money: data: [1]\n", ErrCodeInvalidPreset, "must be a struct"},
		{"syntax", "rules: {\n", ErrCodeBuildFailed, "building CUE value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "p.cue", tt.content)
			_, err := LoadPreset(path)
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.code, le.Code)
			assert.Contains(t, le.Error(), tt.msg)
		})
	}
}

func TestLoadPreset_Missing(t *testing.T) {
	_, err := LoadPreset(filepath.Join(t.TempDir(), "nope.cue"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)

	_, err = LoadPreset(t.TempDir())
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "")
	writeFile(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	writeFile(t, filepath.Join(dir, "sub"), "b.cue", "")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "sub", "b.cue")}, files)
}
