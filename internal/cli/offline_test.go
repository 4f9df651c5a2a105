package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/warden/internal/host"
)

func TestOfflineHost(t *testing.T) {
	var buf bytes.Buffer
	h := newOfflineHost(1000, "", slog.New(slog.NewTextHandler(&buf, nil)))

	assert.Equal(t, "the subject", h.Name())
	assert.Equal(t, host.LevelSelf, h.AccessLevel(1000))
	assert.Equal(t, host.LevelPublic, h.AccessLevel(2000))
	assert.True(t, h.LoadedBeforeLogin())

	_, known := h.Money()
	assert.False(t, known)
	_, known = h.Bool("OnlineSharedSettings.DisablePickingLocksOnSelf")
	assert.False(t, known)

	markers := []string{"warden"}
	h.SetMarkers(markers)
	markers[0] = "changed"
	assert.Equal(t, []string{"warden"}, h.Markers())

	h.InfoBeep("Rule changed your setting")
	assert.Contains(t, buf.String(), "kind=infobeep")
	assert.Contains(t, buf.String(), `text="Rule changed your setting"`)
}
