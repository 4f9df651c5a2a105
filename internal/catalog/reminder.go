package catalog

import (
	"time"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/schema"
)

// reminder shows a random configured sentence every reminderFrequency
// minutes while the subject is in a chat room.
type reminder struct {
	rand func(n int) int
	last time.Time
}

func (r *reminder) definition() *rules.Definition {
	return &rules.Definition{
		Name:             "Listen to my voice",
		Kind:             rules.KindOther,
		ShortDescription: "regularly show configurable sentences to PLAYER_NAME",
		LongDescription: "This rule reminds or tells PLAYER_NAME one of the recorded sentences at random in a settable interval. " +
			"Only PLAYER_NAME can see the set message and it is only shown if in a chat room.",
		DefaultLimit: conditions.LimitLimited,
		DataDefinition: []schema.Field{
			{
				Name:        "reminderText",
				Type:        schema.StringList,
				Default:     ir.StringList(),
				Description: "The sentences that will be shown at random:",
			},
			{
				Name:        "reminderFrequency",
				Type:        schema.Number,
				Default:     ir.Int(15),
				Min:         schema.Bound(1),
				Description: "Frequency of a sentence being shown (in minutes):",
			},
		},
		Tick: func(s *rules.State) bool {
			if !s.InEffect() || !s.Host().InChatRoom() {
				return false
			}
			texts, _ := s.CustomData().Strings("reminderText")
			minutes, ok := s.CustomData().Int("reminderFrequency")
			if len(texts) == 0 || !ok {
				return false
			}
			now := s.Now()
			if !r.last.IsZero() && !now.After(r.last.Add(time.Duration(minutes)*time.Minute)) {
				return false
			}
			r.last = now
			s.Host().Local("[Voice] " + texts[r.rand(len(texts))])
			return true
		},
	}
}
