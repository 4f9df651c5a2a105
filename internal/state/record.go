package state

import (
	"fmt"

	"github.com/roach88/warden/internal/ir"
)

// Condition is one persisted condition (or rule) record.
type Condition struct {
	Active bool
	// Data is the category-specific payload. nil means undefined.
	Data         ir.Value
	Requirements *Requirements
	// Timer is a unix-millisecond expiry; 0 means none.
	Timer int64
	// TimerRemove removes the condition on expiry instead of deactivating it.
	TimerRemove bool
}

// Requirements are trigger prerequisites. All present requirements must
// hold for the condition to be in effect.
type Requirements struct {
	Room     *RoomRequirement
	RoomName *RoomNameRequirement
	Role     *RoleRequirement
	Player   *PlayerRequirement
}

// RoomRequirement matches the room visibility ("public" or "private").
type RoomRequirement struct {
	Type     string
	Inverted bool
}

// RoomNameRequirement matches the room name, case-insensitively.
type RoomNameRequirement struct {
	Name     string
	Inverted bool
}

// RoleRequirement is satisfied when a room member holds at least Role.
type RoleRequirement struct {
	Role     int64
	Inverted bool
}

// PlayerRequirement is satisfied when MemberNumber is in the room.
type PlayerRequirement struct {
	MemberNumber int64
	Inverted     bool
}

// Clone returns a deep copy.
func (c *Condition) Clone() *Condition {
	if c == nil {
		return nil
	}
	out := *c
	out.Data = ir.Clone(c.Data)
	if c.Requirements != nil {
		req := *c.Requirements
		if req.Room != nil {
			r := *req.Room
			req.Room = &r
		}
		if req.RoomName != nil {
			r := *req.RoomName
			req.RoomName = &r
		}
		if req.Role != nil {
			r := *req.Role
			req.Role = &r
		}
		if req.Player != nil {
			r := *req.Player
			req.Player = &r
		}
		out.Requirements = &req
	}
	return &out
}

// Value encodes the record into its persisted shape. The result shares no
// maps with the record.
func (c *Condition) Value() ir.Object {
	obj := ir.Object{"active": ir.Bool(c.Active)}
	if c.Data != nil {
		obj["data"] = ir.Clone(c.Data)
	}
	if c.Requirements != nil {
		obj["requirements"] = c.Requirements.value()
	}
	if c.Timer > 0 {
		obj["timer"] = ir.Int(c.Timer)
		if c.TimerRemove {
			obj["timerRemove"] = ir.Bool(true)
		}
	}
	return obj
}

func (r *Requirements) value() ir.Object {
	obj := ir.Object{}
	if r.Room != nil {
		obj["room"] = ir.Object{"type": ir.String(r.Room.Type), "inverted": ir.Bool(r.Room.Inverted)}
	}
	if r.RoomName != nil {
		obj["roomName"] = ir.Object{"name": ir.String(r.RoomName.Name), "inverted": ir.Bool(r.RoomName.Inverted)}
	}
	if r.Role != nil {
		obj["role"] = ir.Object{"role": ir.Int(r.Role.Role), "inverted": ir.Bool(r.Role.Inverted)}
	}
	if r.Player != nil {
		obj["player"] = ir.Object{"memberNumber": ir.Int(r.Player.MemberNumber), "inverted": ir.Bool(r.Player.Inverted)}
	}
	return obj
}

// DecodeCondition parses a persisted record. It rejects anything that is
// not an object with a boolean "active".
func DecodeCondition(v ir.Value) (*Condition, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("condition must be an object, got %s", ir.Kind(v))
	}
	active, ok := obj.Bool("active")
	if !ok {
		return nil, fmt.Errorf("condition.active must be a boolean")
	}
	c := &Condition{Active: active, Data: obj["data"]}

	if raw, present := obj["requirements"]; present {
		req, err := decodeRequirements(raw)
		if err != nil {
			return nil, err
		}
		c.Requirements = req
	}
	if raw, present := obj["timer"]; present {
		timer, ok := raw.(ir.Int)
		if !ok || timer < 0 {
			return nil, fmt.Errorf("condition.timer must be a non-negative integer")
		}
		c.Timer = int64(timer)
		c.TimerRemove, _ = obj.Bool("timerRemove")
	}
	return c, nil
}

func decodeRequirements(v ir.Value) (*Requirements, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("requirements must be an object")
	}
	req := &Requirements{}
	for _, key := range obj.SortedKeys() {
		sub, ok := obj[key].(ir.Object)
		if !ok {
			return nil, fmt.Errorf("requirements.%s must be an object", key)
		}
		inverted, _ := sub.Bool("inverted")
		switch key {
		case "room":
			typ, ok := sub.String("type")
			if !ok || (typ != "public" && typ != "private") {
				return nil, fmt.Errorf("requirements.room.type must be public or private")
			}
			req.Room = &RoomRequirement{Type: typ, Inverted: inverted}
		case "roomName":
			name, ok := sub.String("name")
			if !ok {
				return nil, fmt.Errorf("requirements.roomName.name must be a string")
			}
			req.RoomName = &RoomNameRequirement{Name: name, Inverted: inverted}
		case "role":
			role, ok := sub.Int("role")
			if !ok {
				return nil, fmt.Errorf("requirements.role.role must be an integer")
			}
			req.Role = &RoleRequirement{Role: role, Inverted: inverted}
		case "player":
			member, ok := sub.Int("memberNumber")
			if !ok {
				return nil, fmt.Errorf("requirements.player.memberNumber must be an integer")
			}
			req.Player = &PlayerRequirement{MemberNumber: member, Inverted: inverted}
		default:
			return nil, fmt.Errorf("unknown requirement %q", key)
		}
	}
	return req, nil
}
