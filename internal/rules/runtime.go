package rules

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/warden/internal/commands"
	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/hook"
	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/registry"
	"github.com/roach88/warden/internal/schema"
	"github.com/roach88/warden/internal/state"
)

// Category is the conditions category rules are stored under.
const Category = "rules"

// Runtime owns rule definitions and drives their lifecycle. It is the
// conditions.Handler of the rules category.
type Runtime struct {
	defs      *registry.Registry[*Definition]
	manager   *conditions.Manager
	host      host.Host
	hooks     *hook.Layer
	commands  *commands.Registry
	scheduler Scheduler
	sink      TriggerSink
	now       func() time.Time
	logger    *slog.Logger

	states   map[string]*State
	filled   bool
	starting bool
}

var (
	_ conditions.Handler        = (*Runtime)(nil)
	_ conditions.EffectHandler  = (*Runtime)(nil)
	_ conditions.RemovalHandler = (*Runtime)(nil)
	_ conditions.Limiter        = (*Runtime)(nil)
	_ conditions.Orderer        = (*Runtime)(nil)
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithScheduler sets where delayed callbacks run.
func WithScheduler(s Scheduler) Option {
	return func(r *Runtime) {
		r.scheduler = s
	}
}

// WithTriggerSink sets where triggers go. The default logs them.
func WithTriggerSink(sink TriggerSink) Option {
	return func(r *Runtime) {
		r.sink = sink
	}
}

// WithCommands lets rules register whisper commands.
func WithCommands(c *commands.Registry) Option {
	return func(r *Runtime) {
		r.commands = c
	}
}

// WithNow sets the wall clock.
func WithNow(now func() time.Time) Option {
	return func(r *Runtime) {
		r.now = now
	}
}

// NewRuntime creates the runtime and registers it as the rules category.
// Like every registration it must happen during init.
func NewRuntime(phase registry.Phaser, manager *conditions.Manager, h host.Host, hooks *hook.Layer, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		defs:    registry.New[*Definition]("rules", phase),
		manager: manager,
		host:    h,
		hooks:   hooks,
		now:     time.Now,
		logger:  slog.Default(),
		states:  make(map[string]*State),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scheduler == nil {
		r.scheduler = NewClockScheduler(host.SystemClock{})
	}
	if r.sink == nil {
		r.sink = logSink{logger: r.logger}
	}
	if err := manager.RegisterCategory(Category, r); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterRule adds a definition. Only legal during init.
func (r *Runtime) RegisterRule(id string, def *Definition) error {
	return r.defs.Register(id, def)
}

// Definition returns the definition registered under id.
func (r *Runtime) Definition(id string) (*Definition, bool) {
	return r.defs.Get(id)
}

// IDs lists registered rules in registration order.
func (r *Runtime) IDs() []string {
	return r.defs.IDs()
}

// State returns the live handle for a registered rule.
func (r *Runtime) State(id string) (*State, bool) {
	if !r.defs.Has(id) {
		return nil, false
	}
	return r.state(id), true
}

func (r *Runtime) state(id string) *State {
	if st, ok := r.states[id]; ok {
		return st
	}
	def, _ := r.defs.Get(id)
	st := &State{ID: id, Def: def, rt: r, logger: r.logger.With("rule", id)}
	r.states[id] = st
	return st
}

// Start brings up every stored rule: init on first use, then load, then
// the current effect is delivered. Call after the store has loaded.
func (r *Runtime) Start() {
	r.starting = true
	defer func() { r.starting = false }()
	for _, id := range r.defs.IDs() {
		if _, ok := r.manager.Condition(Category, id); ok {
			r.bringUp(r.state(id))
		}
	}
	if r.filled {
		r.filled = false
		r.manager.Store().RequestSync()
	}
}

// Stop unloads every loaded rule without touching stored state.
func (r *Runtime) Stop() {
	for _, id := range r.defs.IDs() {
		if st, ok := r.states[id]; ok {
			r.takeDown(st)
		}
	}
}

func (r *Runtime) bringUp(st *State) {
	if !st.inited {
		st.inited = true
		if st.Def.Init != nil {
			r.safely(st, "init", func() { st.Def.Init(st) })
		}
	}
	if !st.loaded {
		st.loaded = true
		if st.Def.Load != nil {
			r.safely(st, "load", func() { st.Def.Load(st) })
		}
		st.logger.Info("rule loaded")
	}
	r.manager.RefreshEffect(Category, st.ID)
}

func (r *Runtime) takeDown(st *State) {
	if !st.loaded {
		return
	}
	if st.Def.Unload != nil {
		r.safely(st, "unload", func() { st.Def.Unload(st) })
	}
	st.loaded = false
	r.scheduler.CancelAll(st.ID)
	st.logger.Info("rule unloaded")
}

// safely runs one callback, logging a panic instead of propagating it.
func (r *Runtime) safely(st *State, what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			st.logger.Error("rule callback panicked", "callback", what, "panic", p)
		}
	}()
	fn()
}

func (r *Runtime) definition(id string) (*Definition, error) {
	def, ok := r.defs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, id)
	}
	return def, nil
}

// AddRule stores a rule with default configuration, active, and brings it
// up.
func (r *Runtime) AddRule(id string) error {
	def, err := r.definition(id)
	if err != nil {
		return err
	}
	if !r.manager.Enabled(Category) {
		return ErrDisabled
	}
	if _, ok := r.manager.Condition(Category, id); ok {
		return fmt.Errorf("%w: %s", ErrRuleExists, id)
	}

	st := r.state(id)
	data := ir.Object{KeyCustomData: def.schema.Defaults()}
	if def.InternalDataDefault != nil {
		data[KeyInternalData] = def.InternalDataDefault(st)
	}
	r.manager.Store().SetCondition(Category, id, &state.Condition{Active: true, Data: data})
	st.logger.Info("rule added")
	r.bringUp(st)
	return nil
}

// RemoveRule deletes a stored rule. It leaves effect and unloads first.
func (r *Runtime) RemoveRule(id string) error {
	if _, err := r.definition(id); err != nil {
		return err
	}
	if !r.manager.RemoveConditions(Category, id) {
		return fmt.Errorf("%w: %s", ErrRuleNotStored, id)
	}
	return nil
}

// SetActive toggles a stored rule.
func (r *Runtime) SetActive(id string, active bool) error {
	if _, err := r.definition(id); err != nil {
		return err
	}
	if !r.manager.SetActive(Category, id, active) {
		return fmt.Errorf("%w: %s", ErrRuleNotStored, id)
	}
	return nil
}

// Update is a configuration write. nil fields are left unchanged.
type Update struct {
	CustomData ir.Value
	Enforce    *bool
	Log        *bool
}

// Configure validates u as a whole and then applies it. A rejected update
// changes nothing. Rules with a Reload callback are reloaded when their
// customData changed.
func (r *Runtime) Configure(id string, u Update) error {
	def, err := r.definition(id)
	if err != nil {
		return err
	}
	st := r.state(id)
	data := st.data()
	if data == nil {
		return fmt.Errorf("%w: %s", ErrRuleNotStored, id)
	}

	if u.CustomData != nil {
		if err := def.schema.Validate(u.CustomData); err != nil {
			return fmt.Errorf("configure %s: %w", id, err)
		}
	}
	if u.Enforce != nil && !def.Enforceable {
		return fmt.Errorf("configure %s: %w: rule is not enforceable", id, schema.ErrValidation)
	}
	if u.Log != nil && !def.Loggable {
		return fmt.Errorf("configure %s: %w: rule is not loggable", id, schema.ErrValidation)
	}

	changed := false
	reload := false
	if u.CustomData != nil && !ir.Equal(data[KeyCustomData], u.CustomData) {
		data[KeyCustomData] = ir.Clone(u.CustomData)
		changed, reload = true, true
	}
	for key, v := range map[string]*bool{KeyEnforce: u.Enforce, KeyLog: u.Log} {
		if v != nil && !ir.Equal(data[key], ir.Bool(*v)) {
			data[key] = ir.Bool(*v)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	r.manager.Store().RequestSync()
	st.logger.Info("rule configured")
	if reload && st.loaded && def.Reload != nil {
		r.safely(st, "reload", func() { def.Reload(st) })
	}
	return nil
}

// LoadValidateCondition implements conditions.Handler. Missing or unknown
// customData fields are completed or dropped before validation; invalid
// internalData is reset to the default.
func (r *Runtime) LoadValidateCondition(id string, c *state.Condition) bool {
	def, ok := r.defs.Get(id)
	if !ok {
		r.logger.Warn("dropping unknown rule", "rule", id)
		return false
	}
	logger := r.logger.With("rule", id)

	if c.Data == nil {
		c.Data = ir.Object{}
	}
	data, ok := c.Data.(ir.Object)
	if !ok {
		logger.Warn("dropping rule with invalid data", "kind", ir.Kind(c.Data))
		return false
	}

	switch custom := data[KeyCustomData].(type) {
	case nil:
		data[KeyCustomData] = def.schema.Defaults()
		r.filled = true
	case ir.Object:
		for _, f := range def.schema.Fields() {
			if _, present := custom[f.Name]; !present {
				custom[f.Name] = ir.Clone(f.Default)
				r.filled = true
			}
		}
		for key := range custom {
			if !def.hasField(key) {
				logger.Warn("dropping unknown customData field", "field", key)
				delete(custom, key)
				r.filled = true
			}
		}
		if err := def.schema.Validate(custom); err != nil {
			logger.Warn("dropping rule with invalid customData", "error", err)
			return false
		}
	default:
		logger.Warn("dropping rule with invalid customData", "kind", ir.Kind(custom))
		return false
	}

	internal, present := data[KeyInternalData]
	switch {
	case def.InternalDataValidate != nil && (!present || !def.InternalDataValidate(internal)):
		if present {
			logger.Warn("resetting invalid internalData")
		}
		data[KeyInternalData] = def.InternalDataDefault(r.state(id))
		r.filled = true
	case def.InternalDataValidate == nil && !present && def.InternalDataDefault != nil:
		data[KeyInternalData] = def.InternalDataDefault(r.state(id))
		r.filled = true
	}

	for _, key := range []string{KeyEnforce, KeyLog} {
		if v, present := data[key]; present {
			if _, ok := v.(ir.Bool); !ok {
				delete(data, key)
				r.filled = true
			}
		}
	}
	return true
}

// TickHandler implements conditions.Handler.
func (r *Runtime) TickHandler(id string, c *state.Condition) bool {
	st, ok := r.states[id]
	if !ok || !st.loaded || st.Def.Tick == nil {
		return false
	}
	st.triggered = false
	changed := st.Def.Tick(st)
	return changed || st.triggered
}

// MakePublicData implements conditions.Handler.
func (r *Runtime) MakePublicData(id string, c *state.Condition) ir.Value {
	def, ok := r.defs.Get(id)
	if !ok {
		return nil
	}
	data, _ := c.Data.(ir.Object)
	out := ir.Object{}
	if custom, ok := data[KeyCustomData]; ok {
		out[KeyCustomData] = ir.Clone(custom)
	}
	if def.Enforceable {
		v, ok := data.Bool(KeyEnforce)
		out[KeyEnforce] = ir.Bool(!ok || v)
	}
	if def.Loggable {
		v, ok := data.Bool(KeyLog)
		out[KeyLog] = ir.Bool(!ok || v)
	}
	return out
}

// ValidatePublicData implements conditions.Handler.
func (r *Runtime) ValidatePublicData(id string, v ir.Value) bool {
	def, ok := r.defs.Get(id)
	if !ok {
		return false
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return false
	}
	if custom, present := obj[KeyCustomData]; present {
		if err := def.schema.Validate(custom); err != nil {
			return false
		}
	}
	for _, key := range []string{KeyEnforce, KeyLog} {
		if raw, present := obj[key]; present {
			if _, ok := raw.(ir.Bool); !ok {
				return false
			}
		}
	}
	return true
}

// EffectChanged implements conditions.EffectHandler.
func (r *Runtime) EffectChanged(id string, c *state.Condition, inEffect bool) {
	st, ok := r.states[id]
	if !ok || !st.loaded {
		return
	}
	st.logger.Info("rule effect changed", "in_effect", inEffect)
	if st.Def.StateChange != nil {
		r.safely(st, "stateChange", func() { st.Def.StateChange(st, inEffect) })
	}
}

// ConditionRemoved implements conditions.RemovalHandler.
func (r *Runtime) ConditionRemoved(id string, c *state.Condition) {
	if st, ok := r.states[id]; ok {
		r.takeDown(st)
	}
}

// Limit implements conditions.Limiter.
func (r *Runtime) Limit(id string) conditions.Limit {
	if def, ok := r.defs.Get(id); ok {
		return def.DefaultLimit
	}
	return conditions.LimitBlocked
}

// Order implements conditions.Orderer: registration order.
func (r *Runtime) Order(ids []string) []string {
	slices.SortStableFunc(ids, func(a, b string) int {
		return r.defs.Index(a) - r.defs.Index(b)
	})
	return ids
}
