package catalog

import (
	"strings"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/hook"
	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/schema"
	"github.com/roach88/warden/internal/track"
)

const (
	trackReport = "PLAYER_NAME has gone {no_active_time} without an orgasm. In the last {active_time}, PLAYER_NAME " +
		"had {orgasm_count} orgasms and {ruined_count} ruined ones, and spent {edged_time} on the edge."
	trackOwnerReport = "Reporting to my owner: " + trackReport
)

// trackStatus keeps running totals in internalData and buffers changes in
// an accumulator between merges.
type trackStatus struct {
	opts []track.Option
	acc  *track.Accumulator
}

// update folds the buffer into the stored total when due or forced.
func (r *trackStatus) update(s *rules.State, force bool) (track.Data, bool) {
	total, err := track.Decode(s.InternalData())
	if err != nil {
		s.Logger().Warn("tracking data unreadable", "error", err)
		return track.Data{}, false
	}
	arousal, known := s.Host().ArousalProgress()
	merged, ok := r.acc.Update(total, arousal, known, force)
	if ok {
		s.SetInternalData(merged.Value())
	}
	return merged, true
}

func (r *trackStatus) self(s *rules.State, o Orgasm) bool {
	return o.Member == s.Host().MemberNumber()
}

func (r *trackStatus) definition() *rules.Definition {
	return &rules.Definition{
		Name: "Track status",
		Kind: rules.KindOther,
		LongDescription: "This rule tracks specified status of PLAYER_NAME, since the rule was added, while all of the rule's " +
			"trigger conditions were fulfilled. The currently tracked data can be inquired by whispering '!track' to PLAYER_NAME. " +
			"To reset the counter, remove and add the rule again.",
		DefaultLimit: conditions.LimitBlocked,
		DataDefinition: []schema.Field{
			{
				Name:        rules.FieldMinimumPermittedRole,
				Type:        schema.RoleSelector,
				Default:     ir.Int(int64(host.LevelOwner)),
				Description: "Minimum role able to request tracking data:",
			},
		},
		InternalDataDefault: func(*rules.State) ir.Value { return track.Zero().Value() },
		InternalDataValidate: func(v ir.Value) bool {
			_, err := track.Decode(v)
			return err == nil
		},
		Init: func(s *rules.State) {
			r.acc = track.NewAccumulator(s.Now, r.opts...)
			s.RegisterCommand("track", func(sender int64, args []string, respond func(string)) bool {
				if !s.InEffect() || !s.Permitted(sender) {
					return false
				}
				data, ok := r.update(s, true)
				if !ok {
					return false
				}
				template := trackReport
				if level := s.Host().AccessLevel(sender); level == host.LevelOwner || level == host.LevelClubOwner {
					template = trackOwnerReport
				}
				msg := rules.Substitute(track.Render(template, data), map[string]string{rules.PlayerNameKey: s.Host().Name()})
				if len(args) > 0 && strings.EqualFold(args[0], "chat") {
					s.Host().Announce(msg)
				} else {
					respond(msg)
				}
				return true
			})
		},
		Load: func(s *rules.State) {
			s.Intercept(OpOrgasmStart, 0, func(args hook.Args, next hook.Next) any {
				if o, ok := orgasmArg(args); ok && !o.Ruined && s.InEffect() && r.self(s, o) {
					arousal, known := s.Host().ArousalProgress()
					r.acc.RecordOrgasm(o.Event, arousal, known)
				}
				return next(args)
			})
			s.Intercept(OpOrgasmStop, 0, func(args hook.Args, next hook.Next) any {
				if o, ok := orgasmArg(args); ok && o.Ruined && s.InEffect() && r.self(s, o) {
					r.acc.RecordRuined()
				}
				return next(args)
			})
			r.acc.Start()
		},
		Tick: func(s *rules.State) bool {
			if s.InEffect() {
				r.update(s, false)
			}
			return false
		},
		StateChange: func(s *rules.State, inEffect bool) {
			if inEffect {
				r.acc.Start()
				return
			}
			r.update(s, true)
		},
	}
}
