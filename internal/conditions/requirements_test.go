package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/state"
	"github.com/roach88/warden/internal/testutil"
)

func TestRequirementsSatisfied(t *testing.T) {
	h := testutil.NewHost(1000, "Alice")
	h.SetAccess(2000, host.LevelOwner)
	h.SetAccess(3000, host.LevelFriend)

	public := &state.Requirements{Room: &state.RoomRequirement{Type: "public"}}
	notPublic := &state.Requirements{Room: &state.RoomRequirement{Type: "public", Inverted: true}}
	named := &state.Requirements{RoomName: &state.RoomNameRequirement{Name: "lounge"}}
	ownerPresent := &state.Requirements{Role: &state.RoleRequirement{Role: int64(host.LevelOwner)}}
	bobPresent := &state.Requirements{Player: &state.PlayerRequirement{MemberNumber: 3000}}
	both := &state.Requirements{
		Room:   &state.RoomRequirement{Type: "private"},
		Player: &state.PlayerRequirement{MemberNumber: 3000, Inverted: true},
	}

	assert.True(t, RequirementsSatisfied(nil, h))
	assert.False(t, RequirementsSatisfied(public, h))
	assert.True(t, RequirementsSatisfied(notPublic, h), "inverted holds outside any room")

	h.EnterRoom("Lounge", true, 3000)
	assert.True(t, RequirementsSatisfied(public, h))
	assert.False(t, RequirementsSatisfied(notPublic, h))
	assert.True(t, RequirementsSatisfied(named, h), "room names compare case-insensitively")
	assert.False(t, RequirementsSatisfied(ownerPresent, h), "a friend is not an owner")
	assert.True(t, RequirementsSatisfied(bobPresent, h))

	h.EnterRoom("Dungeon", false, 2000)
	assert.False(t, RequirementsSatisfied(named, h))
	assert.True(t, RequirementsSatisfied(ownerPresent, h))
	assert.True(t, RequirementsSatisfied(both, h))

	h.EnterRoom("Dungeon", false, 2000, 3000)
	assert.False(t, RequirementsSatisfied(both, h))
}

func TestRequirements_SelfDoesNotCountForRole(t *testing.T) {
	h := testutil.NewHost(1000, "Alice")
	h.EnterRoom("Solo", false)
	req := &state.Requirements{Role: &state.RoleRequirement{Role: int64(host.LevelPublic)}}
	assert.False(t, RequirementsSatisfied(req, h))
}

func TestLimitStrings(t *testing.T) {
	for _, l := range []Limit{LimitNormal, LimitLimited, LimitBlocked} {
		parsed, err := ParseLimit(l.String())
		assert.NoError(t, err)
		assert.Equal(t, l, parsed)
	}
	_, err := ParseLimit("open")
	assert.Error(t, err)
}
