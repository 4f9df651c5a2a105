package cli

import (
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/warden/internal/host"
)

// offlineHost stands in for the client when state is administered from
// the command line. Live settings, money and the room are unknown, so rules
// skip work that needs them. Notifications are logged.
type offlineHost struct {
	member  int64
	name    string
	logger  *slog.Logger
	markers []string
}

var _ host.Host = (*offlineHost)(nil)

func newOfflineHost(member int64, name string, logger *slog.Logger) *offlineHost {
	if name == "" {
		name = "the subject"
	}
	return &offlineHost{member: member, name: name, logger: logger}
}

func (h *offlineHost) Bool(string) (bool, bool) { return false, false }
func (h *offlineHost) SetBool(string, bool) {}
func (h *offlineHost) Int(string) (int64, bool) { return 0, false }
func (h *offlineHost) SetInt(string, int64) {}
func (h *offlineHost) Sync() {}
func (h *offlineHost) InChatRoom() bool { return false }
func (h *offlineHost) RoomName() string { return "" }
func (h *offlineHost) RoomPublic() bool { return false }
func (h *offlineHost) RoomMembers() []int64 { return nil }
func (h *offlineHost) MemberNumber() int64 { return h.member }
func (h *offlineHost) Name() string { return h.name }
func (h *offlineHost) Money() (int64, bool) { return 0, false }
func (h *offlineHost) ArousalProgress() (int64, bool) { return 0, false }

// LoadedBeforeLogin is true: an administrative session is not a login.
func (h *offlineHost) LoadedBeforeLogin() bool { return true }

func (h *offlineHost) LoginMarkers() []string { return slices.Clone(h.markers) }
func (h *offlineHost) Markers() []string { return slices.Clone(h.markers) }
func (h *offlineHost) SetMarkers(m []string) { h.markers = slices.Clone(m) }

func (h *offlineHost) TimedItems() []host.TimedItem { return nil }
func (h *offlineHost) SetRemoveTimer(string, time.Time) bool { return false }

// AccessLevel treats the operator as the subject.
func (h *offlineHost) AccessLevel(member int64) host.AccessLevel {
	if member == h.member {
		return host.LevelSelf
	}
	return host.LevelPublic
}

func (h *offlineHost) Local(message string) { h.notify("local", message) }
func (h *offlineHost) Announce(message string) { h.notify("announce", message) }
func (h *offlineHost) InfoBeep(message string) { h.notify("infobeep", message) }

func (h *offlineHost) Whisper(member int64, message string) {
	h.logger.Info("notification", "kind", "whisper", "target", member, "text", message)
}

func (h *offlineHost) notify(kind, message string) {
	h.logger.Info("notification", "kind", kind, "text", message)
}
