package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
)

const (
	markerPrefix = "GoodGirl"
	tokenRange   = 1_000_000

	// a tick with the marker present still rotates one time in rotateOdds
	rotateOdds = 100
)

func marker(token int64) string {
	return fmt.Sprintf("%s%d", markerPrefix, token)
}

// activation detects logins made while the runtime was not running. A
// random token is kept both in internalData and as a session marker; a
// login whose markers lack the current token was made without us.
type activation struct {
	grace time.Duration
	rand  func(n int) int
}

// rotate issues a fresh token and replaces any previous marker.
func (r *activation) rotate(s *rules.State) {
	token := int64(r.rand(tokenRange))
	s.SetInternalData(ir.Int(token))
	markers := clearMarkers(s.Host().Markers())
	s.Host().SetMarkers(append(markers, marker(token)))
}

func clearMarkers(markers []string) []string {
	return slices.DeleteFunc(markers, func(m string) bool {
		return strings.HasPrefix(m, markerPrefix)
	})
}

func (r *activation) definition() *rules.Definition {
	return &rules.Definition{
		Name:             "Track BCX activation",
		Kind:             rules.KindOther,
		Loggable:         true,
		ShortDescription: "logs if PLAYER_NAME enters the club without BCX",
		LongDescription:  "This rule observes PLAYER_NAME, logging it as a rule violation if the club was previously entered at least once without BCX active.",
		DefaultLimit:     conditions.LimitBlocked,
		Triggers: rules.TriggerTexts{
			InfoBeep: "You logged in without starting BCX beforehand!",
			Log:      "PLAYER_NAME logged in without starting BCX beforehand at least once",
		},
		InternalDataDefault: func(*rules.State) ir.Value { return ir.Int(r.rand(tokenRange)) },
		InternalDataValidate: func(v ir.Value) bool {
			_, ok := v.(ir.Int)
			return ok
		},
		Load: func(s *rules.State) {
			token, ok := s.InternalData().(ir.Int)
			if !ok || !s.InEffect() || !s.Restoring() {
				return
			}
			h := s.Host()
			if h.LoadedBeforeLogin() && slices.Contains(h.LoginMarkers(), marker(int64(token))) {
				r.rotate(s)
				return
			}
			s.After(r.grace, func() {
				s.Trigger(nil)
				r.rotate(s)
			})
		},
		StateChange: func(s *rules.State, inEffect bool) {
			if inEffect {
				r.rotate(s)
				return
			}
			s.Host().SetMarkers(clearMarkers(s.Host().Markers()))
		},
		Tick: func(s *rules.State) bool {
			token, ok := s.InternalData().(ir.Int)
			if !ok || !s.InEffect() {
				return false
			}
			if !slices.Contains(s.Host().Markers(), marker(int64(token))) || r.rand(rotateOdds) == 0 {
				r.rotate(s)
			}
			return false
		},
	}
}
