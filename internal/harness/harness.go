package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/roach88/warden/internal/catalog"
	"github.com/roach88/warden/internal/engine"
	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/store"
	"github.com/roach88/warden/internal/testutil"
	"github.com/roach88/warden/internal/track"
)

// Harness drives one scenario.
type Harness struct {
	host   *testutil.Host
	clock  *testutil.FakeClock
	seq    *testutil.DeterministicClock
	engine *engine.Engine
	db     *store.Store
	result *Result
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sends engine logs to logger. Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Run executes a scenario against a fresh engine and evaluates its
// assertions. The returned error covers setup failures only; step and
// assertion failures are recorded in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer db.Close()

	h := &Harness{
		host:   testutil.NewHost(scenario.Host.Member, scenario.Host.Name),
		clock:  testutil.NewFakeClock(),
		seq:    testutil.NewDeterministicClock(),
		db:     db,
		result: NewResult(),
	}
	if err := h.setupHost(scenario.Host); err != nil {
		return nil, fmt.Errorf("failed to set up host: %w", err)
	}

	ctx := context.Background()
	subject := strconv.FormatInt(scenario.Host.Member, 10)
	if scenario.Stored != nil {
		blob, err := encodeStored(scenario.Stored)
		if err != nil {
			return nil, fmt.Errorf("failed to encode stored state: %w", err)
		}
		if _, err := db.SaveBlob(ctx, subject, blob); err != nil {
			return nil, fmt.Errorf("failed to seed stored state: %w", err)
		}
	}

	random := rand.New(rand.NewPCG(1, 2))
	eng, err := engine.New(h.host,
		engine.WithLogger(o.logger),
		engine.WithClock(h.clock),
		engine.WithStore(db),
		engine.WithSubject(subject),
		engine.WithIDs(testutil.NewSequentialIDs("trigger")),
		engine.WithCatalog(catalog.Options{Rand: random.IntN}),
		engine.WithTriggerObserver(h.observe),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.engine = eng
	if _, err := eng.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load engine: %w", err)
	}
	eng.Drain()
	h.collectMessages()

	for i, step := range scenario.Steps {
		h.runStep(ctx, i, step)
	}

	actx := &AssertionContext{Engine: eng, Host: h.host}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}
	if err := eng.Close(ctx); err != nil {
		return nil, fmt.Errorf("failed to close engine: %w", err)
	}
	return h.result, nil
}

func encodeStored(stored map[string]any) ([]byte, error) {
	v, err := ir.FromAny(stored)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

func (h *Harness) setupHost(setup HostSetup) error {
	if setup.Money != nil {
		h.host.SetMoney(*setup.Money)
	}
	if setup.Arousal != nil {
		h.host.SetArousal(*setup.Arousal)
	}
	h.host.SetLogin(setup.LoadedBeforeLogin, setup.Markers...)
	for member, name := range setup.Access {
		level, err := host.ParseAccessLevel(name)
		if err != nil {
			return err
		}
		h.host.SetAccess(member, level)
	}
	if setup.Room != nil {
		h.host.EnterRoom(setup.Room.Name, setup.Room.Public, setup.Room.Members...)
	}
	for key, value := range setup.Settings {
		if err := h.applySetting(key, value); err != nil {
			return err
		}
	}
	for _, item := range setup.Items {
		h.wear(item)
	}
	return nil
}

func (h *Harness) applySetting(key string, value any) error {
	switch v := value.(type) {
	case bool:
		h.host.SetBool(key, v)
	case int:
		h.host.SetInt(key, int64(v))
	default:
		return fmt.Errorf("setting %s: unsupported value %T", key, value)
	}
	return nil
}

func (h *Harness) wear(item ItemStep) {
	removeIn, _ := time.ParseDuration(item.RemoveIn)
	maxDuration, _ := time.ParseDuration(item.MaxDuration)
	h.host.Wear(host.TimedItem{
		Group:       item.Group,
		Asset:       item.Asset,
		RemoveAt:    h.clock.Now().Add(removeIn),
		MaxDuration: maxDuration,
	})
}

// elapsed is milliseconds since the scenario started.
func (h *Harness) elapsed(t time.Time) int64 {
	return t.Sub(testutil.Epoch).Milliseconds()
}

func (h *Harness) observe(rec store.TriggerRecord) {
	h.result.Triggers = append(h.result.Triggers, rec)
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Seq:  h.seq.Next(),
		Type: EventTrigger,
		Rule: rec.RuleID,
		Kind: rec.Kind,
		Text: rec.Message,
		At:   h.elapsed(time.UnixMilli(rec.CreatedAt)),
	})
}

func (h *Harness) collectMessages() {
	at := h.elapsed(h.clock.Now())
	for _, msg := range h.host.TakeMessages() {
		h.result.Messages = append(h.result.Messages, msg)
		h.result.Trace = append(h.result.Trace, TraceEvent{
			Seq:    h.seq.Next(),
			Type:   EventMessage,
			Kind:   msg.Kind,
			Target: msg.Target,
			Text:   msg.Text,
			At:     at,
		})
	}
}

func (h *Harness) runStep(ctx context.Context, index int, step Step) {
	kind := step.kind()
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Seq:    h.seq.Next(),
		Type:   EventStep,
		Step:   kind,
		Detail: describe(step),
		At:     h.elapsed(h.clock.Now()),
	})
	stepEvent := len(h.result.Trace) - 1

	err := h.execute(ctx, step)
	h.engine.Drain()
	h.collectMessages()

	if err != nil {
		h.result.Trace[stepEvent].Error = err.Error()
	}
	switch {
	case err != nil && step.Expect != "error":
		h.result.AddError(fmt.Sprintf("steps[%d] %s: %v", index, kind, err))
	case err == nil && step.Expect == "error":
		h.result.AddError(fmt.Sprintf("steps[%d] %s: expected an error", index, kind))
	}
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	eng := h.engine
	switch step.kind() {
	case "add_rule":
		return eng.Rules().AddRule(step.AddRule)
	case "remove_rule":
		return eng.Rules().RemoveRule(step.RemoveRule)
	case "set_active":
		s := step.SetActive
		if s.Actor == nil {
			return eng.Rules().SetActive(s.Rule, s.Active)
		}
		ok, err := eng.Conditions().QuerySetActive(*s.Actor, rules.Category, s.Rule, s.Active)
		if err == nil && !ok {
			err = fmt.Errorf("%w: %s", rules.ErrRuleNotStored, s.Rule)
		}
		return err
	case "configure":
		return h.configure(step.Configure)
	case "advance":
		d, _ := time.ParseDuration(step.Advance)
		h.clock.Advance(d)
		return nil
	case "sweep":
		for range step.Sweep {
			if _, err := eng.Sweep(ctx); err != nil {
				return err
			}
			eng.Drain()
		}
		return nil
	case "call":
		return h.call(step.Call)
	case "whisper":
		if !eng.Whisper(step.Whisper.From, step.Whisper.Text) {
			return fmt.Errorf("whisper %q is not a command", step.Whisper.Text)
		}
		return nil
	case "money":
		h.host.SetMoney(*step.Money)
		return nil
	case "arousal":
		h.host.SetArousal(*step.Arousal)
		return nil
	case "room":
		h.host.EnterRoom(step.Room.Name, step.Room.Public, step.Room.Members...)
		return nil
	case "leave_room":
		h.host.LeaveRoom()
		return nil
	case "wear":
		h.wear(*step.Wear)
		return nil
	case "remove":
		h.host.Remove(step.Remove)
		return nil
	case "setting":
		return h.applySetting(step.Setting.Key, step.Setting.Value)
	}
	return fmt.Errorf("unsupported step")
}

func (h *Harness) configure(c *ConfigureStep) error {
	u := rules.Update{Enforce: c.Enforce, Log: c.Log}
	if c.Data != nil {
		data, err := ir.FromAny(c.Data)
		if err != nil {
			return fmt.Errorf("configure %s: %w", c.Rule, err)
		}
		u.CustomData = data
	}
	return h.engine.Rules().Configure(c.Rule, u)
}

func (h *Harness) call(c *CallStep) error {
	var args []any
	switch c.Op {
	case catalog.OpOrgasmStart, catalog.OpOrgasmStop:
		member := c.Member
		if member == 0 {
			member = h.host.MemberNumber()
		}
		args = append(args, catalog.Orgasm{
			Member: member,
			Ruined: c.Ruined,
			Event:  track.OrgasmEvent{Source: member, Target: member, At: h.clock.Now().UnixMilli()},
		})
	case catalog.OpResolveLockModification:
		removeIn, _ := time.ParseDuration(c.RemoveIn)
		previous := time.Time{}
		for _, it := range h.host.TimedItems() {
			if it.Group == c.Group {
				previous = it.RemoveAt
			}
		}
		args = append(args, catalog.LockModification{
			Group:    c.Group,
			Asset:    c.Asset,
			Previous: previous,
			RemoveAt: h.clock.Now().Add(removeIn),
			Actor:    c.Actor,
		})
	}
	out, err := h.engine.Call(c.Op, args...)
	if err != nil {
		return err
	}
	if accepted, ok := out.(bool); ok && !accepted {
		return fmt.Errorf("%s rejected", c.Op)
	}
	return nil
}

// describe renders the argument of a step for the trace.
func describe(step Step) string {
	switch step.kind() {
	case "add_rule":
		return step.AddRule
	case "remove_rule":
		return step.RemoveRule
	case "set_active":
		s := fmt.Sprintf("%s=%t", step.SetActive.Rule, step.SetActive.Active)
		if step.SetActive.Actor != nil {
			s += fmt.Sprintf(" by %d", *step.SetActive.Actor)
		}
		return s
	case "configure":
		return step.Configure.Rule
	case "advance":
		d, _ := time.ParseDuration(step.Advance)
		return d.String()
	case "sweep":
		return strconv.Itoa(step.Sweep)
	case "call":
		return step.Call.Op
	case "whisper":
		return fmt.Sprintf("%d: %s", step.Whisper.From, step.Whisper.Text)
	case "money":
		return strconv.FormatInt(*step.Money, 10)
	case "arousal":
		return strconv.FormatInt(*step.Arousal, 10)
	case "room":
		return step.Room.Name
	case "wear":
		return step.Wear.Group
	case "remove":
		return step.Remove
	case "setting":
		return fmt.Sprintf("%s=%v", step.Setting.Key, step.Setting.Value)
	}
	return ""
}
