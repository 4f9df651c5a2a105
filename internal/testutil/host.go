package testutil

import (
	"slices"
	"sync"
	"time"

	"github.com/roach88/warden/internal/host"
)

// Message is one notification captured by Host.
type Message struct {
	Kind   string `json:"kind" yaml:"kind"`
	Target int64  `json:"target,omitempty" yaml:"target,omitempty"`
	Text   string `json:"text" yaml:"text"`
}

// Host is an in-memory host.Host. Unset settings, money and arousal read
// as unknown. Every member other than the subject is public unless given a
// level with SetAccess.
type Host struct {
	mu sync.Mutex

	settings map[string]any
	syncs    int

	access map[int64]host.AccessLevel

	inRoom     bool
	roomName   string
	roomPublic bool
	members    []int64

	member  int64
	name    string
	money   *int64
	arousal *int64

	loadedBeforeLogin bool
	loginMarkers      []string
	markers           []string

	items map[string]host.TimedItem

	messages []Message
}

var _ host.Host = (*Host)(nil)

// NewHost creates a host for subject member with the given name.
func NewHost(member int64, name string) *Host {
	return &Host{
		settings: make(map[string]any),
		access:   make(map[int64]host.AccessLevel),
		member:   member,
		name:     name,
		items:    make(map[string]host.TimedItem),
	}
}

// Bool implements host.Settings.
func (h *Host) Bool(key string) (bool, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.settings[key].(bool)
	return v, ok
}

// SetBool implements host.Settings.
func (h *Host) SetBool(key string, value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings[key] = value
}

// Int implements host.Settings.
func (h *Host) Int(key string) (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.settings[key].(int64)
	return v, ok
}

// SetInt implements host.Settings.
func (h *Host) SetInt(key string, value int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings[key] = value
}

// Sync implements host.Settings.
func (h *Host) Sync() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.syncs++
}

// Syncs returns how many times Sync was called.
func (h *Host) Syncs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.syncs
}

// Unset makes a setting unknown again.
func (h *Host) Unset(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.settings, key)
}

// SetAccess assigns member's access level.
func (h *Host) SetAccess(member int64, level host.AccessLevel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.access[member] = level
}

// AccessLevel implements host.Access.
func (h *Host) AccessLevel(member int64) host.AccessLevel {
	h.mu.Lock()
	defer h.mu.Unlock()
	if member == h.member {
		return host.LevelSelf
	}
	if level, ok := h.access[member]; ok {
		return level
	}
	return host.LevelPublic
}

// EnterRoom places the subject in a room with members.
func (h *Host) EnterRoom(name string, public bool, members ...int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inRoom = true
	h.roomName = name
	h.roomPublic = public
	h.members = append([]int64{h.member}, members...)
}

// LeaveRoom takes the subject out of any room.
func (h *Host) LeaveRoom() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inRoom = false
	h.roomName = ""
	h.roomPublic = false
	h.members = nil
}

// InChatRoom implements host.Room.
func (h *Host) InChatRoom() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inRoom
}

// RoomName implements host.Room.
func (h *Host) RoomName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.roomName
}

// RoomPublic implements host.Room.
func (h *Host) RoomPublic() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.roomPublic
}

// RoomMembers implements host.Room.
func (h *Host) RoomMembers() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.members)
}

// MemberNumber implements host.Player.
func (h *Host) MemberNumber() int64 {
	return h.member
}

// Name implements host.Player.
func (h *Host) Name() string {
	return h.name
}

// SetMoney sets the balance and makes it known.
func (h *Host) SetMoney(amount int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.money = &amount
}

// Money implements host.Player.
func (h *Host) Money() (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.money == nil {
		return 0, false
	}
	return *h.money, true
}

// SetArousal sets arousal progress and makes it known.
func (h *Host) SetArousal(progress int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.arousal = &progress
}

// ArousalProgress implements host.Player.
func (h *Host) ArousalProgress() (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.arousal == nil {
		return 0, false
	}
	return *h.arousal, true
}

// SetLogin sets login-time session facts.
func (h *Host) SetLogin(loadedBeforeLogin bool, markers ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadedBeforeLogin = loadedBeforeLogin
	h.loginMarkers = slices.Clone(markers)
	h.markers = slices.Clone(markers)
}

// LoadedBeforeLogin implements host.Session.
func (h *Host) LoadedBeforeLogin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadedBeforeLogin
}

// LoginMarkers implements host.Session.
func (h *Host) LoginMarkers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.loginMarkers)
}

// Markers implements host.Session.
func (h *Host) Markers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.markers)
}

// SetMarkers implements host.Session.
func (h *Host) SetMarkers(markers []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.markers = slices.Clone(markers)
}

// Wear adds or replaces a timed item.
func (h *Host) Wear(item host.TimedItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items[item.Group] = item
}

// Remove takes off the item in group.
func (h *Host) Remove(group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.items, group)
}

// TimedItems implements host.Inventory, sorted by group.
func (h *Host) TimedItems() []host.TimedItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.TimedItem, 0, len(h.items))
	for _, it := range h.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b host.TimedItem) int {
		switch {
		case a.Group < b.Group:
			return -1
		case a.Group > b.Group:
			return 1
		}
		return 0
	})
	return out
}

// SetRemoveTimer implements host.Inventory.
func (h *Host) SetRemoveTimer(group string, at time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	it, ok := h.items[group]
	if !ok {
		return false
	}
	it.RemoveAt = at
	h.items[group] = it
	return true
}

func (h *Host) record(kind string, target int64, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, Message{Kind: kind, Target: target, Text: text})
}

// Local implements host.Notifier.
func (h *Host) Local(message string) { h.record("local", 0, message) }

// Announce implements host.Notifier.
func (h *Host) Announce(message string) { h.record("announce", 0, message) }

// InfoBeep implements host.Notifier.
func (h *Host) InfoBeep(message string) { h.record("infobeep", 0, message) }

// Whisper implements host.Notifier.
func (h *Host) Whisper(member int64, message string) { h.record("whisper", member, message) }

// Messages returns every captured notification.
func (h *Host) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.messages)
}

// TakeMessages returns and clears captured notifications.
func (h *Host) TakeMessages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.messages
	h.messages = nil
	return out
}
