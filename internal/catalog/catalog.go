package catalog

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/track"
)

// Options tunes the catalogue.
type Options struct {
	// LoginGrace delays the activation check after login.
	LoginGrace time.Duration
	// Track configures the status-tracking accumulator.
	Track []track.Option
	// Rand returns a value in [0, n). Defaults to math/rand.
	Rand func(n int) int
}

// DefaultLoginGrace is how long the activation check waits after login.
const DefaultLoginGrace = 3500 * time.Millisecond

func (o Options) withDefaults() Options {
	if o.LoginGrace <= 0 {
		o.LoginGrace = DefaultLoginGrace
	}
	if o.Rand == nil {
		o.Rand = rand.IntN
	}
	return o
}

type entry struct {
	id  string
	def *rules.Definition
}

// Register adds every built-in rule to rt. It must run during init.
func Register(rt *rules.Runtime, opts Options) error {
	opts = opts.withDefaults()

	var defs []entry
	for _, s := range toggleSettings {
		defs = append(defs, entry{s.id, s.setting.Definition()})
	}
	defs = append(defs,
		entry{"setting_item_permission", itemPermission.Definition()},
		entry{"other_forbid_afk", (&afk{}).definition()},
		entry{"other_track_time", (&trackTime{}).definition()},
		entry{"other_constant_reminder", (&reminder{rand: opts.Rand}).definition()},
		entry{"other_log_money", logMoney()},
		entry{"other_track_BCX_activation", (&activation{grace: opts.LoginGrace, rand: opts.Rand}).definition()},
		entry{"other_track_status", (&trackStatus{opts: opts.Track}).definition()},
		entry{"other_timer_lock", (&timerLock{}).definition()},
	)

	for _, d := range defs {
		if err := rt.RegisterRule(d.id, d.def); err != nil {
			return fmt.Errorf("register %s: %w", d.id, err)
		}
	}
	return nil
}
