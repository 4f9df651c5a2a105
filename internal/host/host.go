// Package host declares the collaborator interfaces through which the
// runtime reaches the application it overlays. Nothing in this module
// implements them for a real client; testutil provides in-memory fakes.
package host

import (
	"fmt"
	"time"
)

// AccessLevel ranks an actor's relationship to the subject. Lower is more
// privileged.
type AccessLevel int

const (
	LevelSelf AccessLevel = iota
	LevelClubOwner
	LevelOwner
	LevelLover
	LevelMistress
	LevelWhitelist
	LevelFriend
	LevelPublic
)

func (l AccessLevel) String() string {
	switch l {
	case LevelSelf:
		return "self"
	case LevelClubOwner:
		return "clubowner"
	case LevelOwner:
		return "owner"
	case LevelLover:
		return "lover"
	case LevelMistress:
		return "mistress"
	case LevelWhitelist:
		return "whitelist"
	case LevelFriend:
		return "friend"
	case LevelPublic:
		return "public"
	}
	return "unknown"
}

// ParseAccessLevel is the inverse of AccessLevel.String.
func ParseAccessLevel(s string) (AccessLevel, error) {
	for l := LevelSelf; l <= LevelPublic; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return LevelPublic, fmt.Errorf("unknown access level %q", s)
}

// Settings reads and writes host settings by key. The second return value
// of a getter is false while the host has not initialized that setting.
type Settings interface {
	Bool(key string) (bool, bool)
	SetBool(key string, value bool)
	Int(key string) (int64, bool)
	SetInt(key string, value int64)
	// Sync pushes changed preferences to the host's account storage.
	Sync()
}

// Access resolves an actor's access level.
type Access interface {
	AccessLevel(member int64) AccessLevel
}

// Room describes where the subject currently is.
type Room interface {
	InChatRoom() bool
	RoomName() string
	RoomPublic() bool
	RoomMembers() []int64
}

// Player exposes the subject's own state.
type Player interface {
	MemberNumber() int64
	Name() string
	// Money returns false when the balance is not loaded yet.
	Money() (int64, bool)
	// ArousalProgress returns 0..100, false if arousal is disabled.
	ArousalProgress() (int64, bool)
}

// Session carries login-time facts and persistent client markers.
type Session interface {
	// LoadedBeforeLogin reports whether the runtime was active before the
	// host completed its login.
	LoadedBeforeLogin() bool
	// LoginMarkers are the markers the account held at login.
	LoginMarkers() []string
	Markers() []string
	SetMarkers(markers []string)
}

// TimedItem is a worn item with a removal timer.
type TimedItem struct {
	Group       string
	Asset       string
	RemoveAt    time.Time
	MaxDuration time.Duration
}

// Inventory exposes timer-locked items.
type Inventory interface {
	TimedItems() []TimedItem
	SetRemoveTimer(group string, at time.Time) bool
}

// Notifier delivers user-visible messages.
type Notifier interface {
	// Local shows a message only the subject sees.
	Local(message string)
	// Announce posts an action message to the current room.
	Announce(message string)
	// InfoBeep shows a transient notification.
	InfoBeep(message string)
	// Whisper replies privately to a member.
	Whisper(member int64, message string)
}

// Host bundles every collaborator.
type Host interface {
	Settings
	Access
	Room
	Player
	Session
	Inventory
	Notifier
}
