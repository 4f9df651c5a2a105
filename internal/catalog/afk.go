package catalog

import (
	"time"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/hook"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/schema"
)

const afkWarning = "You broke a BCX rule by being inactive for too long. The transgression was logged."

// afk triggers once per inactive stretch.
type afk struct {
	lastAction time.Time
	triggered  bool
}

func (r *afk) reset(now time.Time) {
	r.lastAction = now
	r.triggered = false
}

func (r *afk) definition() *rules.Definition {
	return &rules.Definition{
		Name:             "Forbid going afk",
		Kind:             rules.KindOther,
		Loggable:         true,
		ShortDescription: "logs whenever PLAYER_NAME is inactive",
		LongDescription:  "This rule forbids PLAYER_NAME to go afk and logs when the allowed inactivity threshold is overstepped.",
		DefaultLimit:     conditions.LimitBlocked,
		Triggers: rules.TriggerTexts{
			Log: "PLAYER_NAME became inactive, which was forbidden",
		},
		DataDefinition: []schema.Field{
			{
				Name:        "minutesBeforeAfk",
				Type:        schema.Number,
				Default:     ir.Int(10),
				Min:         schema.Bound(1),
				Description: "Amount of minutes, before being considered inactive:",
			},
		},
		Load: func(s *rules.State) {
			r.reset(s.Now())
			s.Intercept(OpPlayerActivity, 0, func(args hook.Args, next hook.Next) any {
				r.reset(s.Now())
				return next(args)
			})
		},
		Tick: func(s *rules.State) bool {
			if r.triggered || !s.InEffect() {
				return false
			}
			minutes, ok := s.CustomData().Int("minutesBeforeAfk")
			if !ok {
				return false
			}
			if s.Now().Before(r.lastAction.Add(time.Duration(minutes) * time.Minute)) {
				return false
			}
			r.triggered = true
			s.Trigger(nil)
			s.Host().Local(afkWarning)
			return true
		},
	}
}
