package conditions

import (
	"fmt"

	"github.com/roach88/warden/internal/host"
)

// Limit restricts who may change a condition.
type Limit int

const (
	LimitNormal Limit = iota
	LimitLimited
	LimitBlocked
)

func (l Limit) String() string {
	switch l {
	case LimitNormal:
		return "normal"
	case LimitLimited:
		return "limited"
	case LimitBlocked:
		return "blocked"
	}
	return fmt.Sprintf("Limit(%d)", int(l))
}

// ParseLimit is the inverse of String.
func ParseLimit(s string) (Limit, error) {
	switch s {
	case "normal":
		return LimitNormal, nil
	case "limited":
		return LimitLimited, nil
	case "blocked":
		return LimitBlocked, nil
	}
	return 0, fmt.Errorf("unknown limit %q", s)
}

// Permissions decides whether actor may modify a condition under limit.
type Permissions interface {
	Allowed(actor int64, category, condition string, limit Limit) bool
}

// LevelPermissions maps each limit to the least privileged access level
// still allowed to make changes. Blocked conditions can only be changed by
// the subject.
type LevelPermissions struct {
	Access  host.Access
	Normal  host.AccessLevel
	Limited host.AccessLevel
}

// DefaultPermissions allows whitelist and above for normal conditions and
// owners for limited ones.
func DefaultPermissions(access host.Access) LevelPermissions {
	return LevelPermissions{
		Access:  access,
		Normal:  host.LevelWhitelist,
		Limited: host.LevelOwner,
	}
}

// Allowed implements Permissions.
func (p LevelPermissions) Allowed(actor int64, _, _ string, limit Limit) bool {
	level := p.Access.AccessLevel(actor)
	switch limit {
	case LimitNormal:
		return level <= p.Normal
	case LimitLimited:
		return level <= p.Limited
	}
	return level == host.LevelSelf
}
