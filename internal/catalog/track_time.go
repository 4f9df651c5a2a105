package catalog

import (
	"fmt"
	"time"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/schema"
	"github.com/roach88/warden/internal/track"
)

// trackTimeMerge is the smallest span folded into the stored total.
const trackTimeMerge = time.Minute

// trackTime counts milliseconds spent in effect. The stored total lags the
// live one by less than trackTimeMerge.
type trackTime struct {
	lastUpdate time.Time
}

func (r *trackTime) pending(s *rules.State) time.Duration {
	return s.Now().Sub(r.lastUpdate)
}

func (r *trackTime) add(s *rules.State, d time.Duration) {
	total, ok := s.InternalData().(ir.Int)
	if !ok {
		return
	}
	s.SetInternalData(total + ir.Int(d.Milliseconds()))
	r.lastUpdate = s.Now()
}

func (r *trackTime) definition() *rules.Definition {
	return &rules.Definition{
		Name:             "Track rule effect time",
		Kind:             rules.KindOther,
		ShortDescription: "counts the time this rule's trigger conditions were fulfilled",
		LongDescription: "This rule shows the amount of time that PLAYER_NAME spent (online) in the club, since the rule was added, " +
			"while all of the rule's trigger conditions were fulfilled. The currently tracked time can be inquired by whispering " +
			"'!ruletime' to PLAYER_NAME. To reset the counter, remove and add the rule again.",
		DefaultLimit: conditions.LimitBlocked,
		DataDefinition: []schema.Field{
			{
				Name:        rules.FieldMinimumPermittedRole,
				Type:        schema.RoleSelector,
				Default:     ir.Int(int64(host.LevelLover)),
				Description: "Minimum role able to request counted time:",
			},
		},
		InternalDataDefault: func(*rules.State) ir.Value { return ir.Int(0) },
		InternalDataValidate: func(v ir.Value) bool {
			_, ok := v.(ir.Int)
			return ok
		},
		Init: func(s *rules.State) {
			s.RegisterCommand("ruletime", func(sender int64, _ []string, respond func(string)) bool {
				total, ok := s.InternalData().(ir.Int)
				if !ok || !s.Permitted(sender) {
					return false
				}
				counted := time.Duration(total) * time.Millisecond
				if s.InEffect() {
					counted += r.pending(s)
				}
				respond(fmt.Sprintf("Since the time tracking rule was added, %s were counted, where all trigger conditions were true.",
					track.FormatInterval(counted)))
				return true
			})
		},
		Load: func(s *rules.State) {
			r.lastUpdate = s.Now()
		},
		Tick: func(s *rules.State) bool {
			if !s.InEffect() {
				return false
			}
			if change := r.pending(s); change >= trackTimeMerge {
				r.add(s, change)
			}
			return false
		},
		StateChange: func(s *rules.State, inEffect bool) {
			if inEffect {
				r.lastUpdate = s.Now()
				return
			}
			r.add(s, r.pending(s))
		},
	}
}
