package conditions

import (
	"strings"

	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/state"
)

// Environment is what requirement evaluation reads.
type Environment interface {
	host.Room
	host.Access
	MemberNumber() int64
}

// RequirementsSatisfied evaluates the conjunction of req against env.
// nil requirements are always satisfied.
func RequirementsSatisfied(req *state.Requirements, env Environment) bool {
	if req == nil {
		return true
	}
	inRoom := env.InChatRoom()

	if r := req.Room; r != nil {
		public := inRoom && env.RoomPublic()
		ok := inRoom && (r.Type == "public") == public
		if ok == r.Inverted {
			return false
		}
	}
	if r := req.RoomName; r != nil {
		ok := inRoom && strings.EqualFold(env.RoomName(), r.Name)
		if ok == r.Inverted {
			return false
		}
	}
	if r := req.Role; r != nil {
		ok := false
		if inRoom {
			self := env.MemberNumber()
			for _, m := range env.RoomMembers() {
				if m != self && int64(env.AccessLevel(m)) <= r.Role {
					ok = true
					break
				}
			}
		}
		if ok == r.Inverted {
			return false
		}
	}
	if r := req.Player; r != nil {
		ok := false
		if inRoom {
			for _, m := range env.RoomMembers() {
				if m == r.MemberNumber {
					ok = true
					break
				}
			}
		}
		if ok == r.Inverted {
			return false
		}
	}
	return true
}
