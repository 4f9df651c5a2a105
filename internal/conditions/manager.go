package conditions

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/registry"
	"github.com/roach88/warden/internal/state"
)

// Handler owns one category of conditions.
type Handler interface {
	// LoadValidateCondition checks a stored record during load. It may
	// fill missing fields with defaults. Returning false prunes the record.
	LoadValidateCondition(id string, c *state.Condition) bool
	// TickHandler runs once per sweep for every active condition and
	// reports whether it changed observable state.
	TickHandler(id string, c *state.Condition) bool
	// MakePublicData renders the data shown to peers and the UI.
	MakePublicData(id string, c *state.Condition) ir.Value
	// ValidatePublicData checks data submitted by a peer.
	ValidatePublicData(id string, data ir.Value) bool
}

// EffectHandler is notified when a condition's in-effect flag flips.
type EffectHandler interface {
	EffectChanged(id string, c *state.Condition, inEffect bool)
}

// RemovalHandler is notified after a condition is removed.
type RemovalHandler interface {
	ConditionRemoved(id string, c *state.Condition)
}

// Limiter reports the permission limit of a condition.
type Limiter interface {
	Limit(id string) Limit
}

// Orderer sorts condition ids for the sweep. Without it ids are visited
// in lexical order.
type Orderer interface {
	Order(ids []string) []string
}

// Category is a registered handler.
type Category struct {
	Name    string
	Handler Handler
}

// Validate implements registry.Validator.
func (c Category) Validate() error {
	if c.Handler == nil {
		return fmt.Errorf("category %q has no handler", c.Name)
	}
	return nil
}

// Manager owns the registered categories and their runtime effect state.
type Manager struct {
	categories  *registry.Registry[Category]
	env         Environment
	permissions Permissions
	now         func() time.Time
	logger      *slog.Logger

	store    *state.Store
	disabled map[string]bool
	effects  map[string]map[string]bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPermissions overrides the permission policy for remote writes.
func WithPermissions(p Permissions) Option {
	return func(m *Manager) {
		m.permissions = p
	}
}

// WithNow sets the wall clock used for condition timers.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager. Categories register while phase is init.
func NewManager(phase registry.Phaser, env Environment, opts ...Option) *Manager {
	m := &Manager{
		categories:  registry.New[Category]("conditions", phase),
		env:         env,
		permissions: DefaultPermissions(env),
		now:         time.Now,
		logger:      slog.Default(),
		disabled:    make(map[string]bool),
		effects:     make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterCategory adds a handler. Only legal during init.
func (m *Manager) RegisterCategory(name string, h Handler) error {
	return m.categories.Register(name, Category{Name: name, Handler: h})
}

// UseStore attaches the store. The store must have been created with this
// Manager as its Validator.
func (m *Manager) UseStore(s *state.Store) {
	m.store = s
}

// Store returns the attached store.
func (m *Manager) Store() *state.Store {
	return m.store
}

// Categories lists registered categories in registration order.
func (m *Manager) Categories() []string {
	return m.categories.IDs()
}

// CategoryStatus implements state.Validator.
func (m *Manager) CategoryStatus(category string) (known, enabled bool) {
	if !m.categories.Has(category) {
		return false, false
	}
	return true, !m.disabled[category]
}

// ValidateCondition implements state.Validator.
func (m *Manager) ValidateCondition(category, id string, c *state.Condition) bool {
	cat, ok := m.categories.Get(category)
	if !ok {
		return false
	}
	return cat.Handler.LoadValidateCondition(id, c)
}

// EnabledCategories implements state.Validator.
func (m *Manager) EnabledCategories() []string {
	var out []string
	for _, name := range m.categories.IDs() {
		if !m.disabled[name] {
			out = append(out, name)
		}
	}
	return out
}

// Enabled reports whether category is registered and enabled.
func (m *Manager) Enabled(category string) bool {
	known, enabled := m.CategoryStatus(category)
	return known && enabled
}

// SetEnabled toggles a category. Disabling ends the effect of every
// condition in it and drops its stored records; enabling recreates the
// category empty.
func (m *Manager) SetEnabled(category string, enabled bool) error {
	cat, ok := m.categories.Get(category)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if m.disabled[category] == !enabled {
		return nil
	}
	if m.store == nil {
		m.disabled[category] = !enabled
		return nil
	}
	if enabled {
		delete(m.disabled, category)
		m.store.EnsureCategory(category)
		m.logger.Info("conditions category enabled", "category", category)
		return nil
	}

	dirty := m.store.Batch(func() {
		for _, id := range m.store.ConditionIDs(category) {
			c, _ := m.store.Condition(category, id)
			m.setEffect(cat, id, c, false)
			m.notifyRemoved(cat, id, c)
		}
		m.store.DropCategory(category)
	})
	m.disabled[category] = true
	delete(m.effects, category)
	if dirty {
		m.store.RequestSync()
	}
	m.logger.Info("conditions category disabled", "category", category)
	return nil
}

func (m *Manager) category(name string) (Category, error) {
	cat, ok := m.categories.Get(name)
	if !ok {
		return Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	if m.store == nil {
		return Category{}, ErrNotReady
	}
	return cat, nil
}

// CategoryData returns deep copies of every record in category.
func (m *Manager) CategoryData(category string) (map[string]*state.Condition, error) {
	if _, err := m.category(category); err != nil {
		return nil, err
	}
	out := make(map[string]*state.Condition)
	for _, id := range m.store.ConditionIDs(category) {
		c, _ := m.store.Condition(category, id)
		out[id] = c.Clone()
	}
	return out, nil
}

// Condition returns the live record. Callers that mutate it must go
// through SetCondition or request a sync.
func (m *Manager) Condition(category, id string) (*state.Condition, bool) {
	if m.store == nil {
		return nil, false
	}
	return m.store.Condition(category, id)
}

// PublicData renders {id: {active, data}} for category.
func (m *Manager) PublicData(category string) (ir.Object, error) {
	cat, err := m.category(category)
	if err != nil {
		return nil, err
	}
	out := ir.Object{}
	for _, id := range m.store.ConditionIDs(category) {
		c, _ := m.store.Condition(category, id)
		entry := ir.Object{"active": ir.Bool(c.Active)}
		if data := cat.Handler.MakePublicData(id, c); data != nil {
			entry["data"] = data
		}
		out[id] = entry
	}
	return out, nil
}

// ValidatePublicData checks a peer-submitted {active, data} record.
func (m *Manager) ValidatePublicData(category, id string, data ir.Value) bool {
	cat, ok := m.categories.Get(category)
	if !ok {
		return false
	}
	obj, ok := data.(ir.Object)
	if !ok {
		return false
	}
	if _, ok := obj.Bool("active"); !ok {
		return false
	}
	return cat.Handler.ValidatePublicData(id, obj["data"])
}

// SetCondition stores c. Writes to a disabled category are ignored.
// The effect flag is re-evaluated immediately.
func (m *Manager) SetCondition(category, id string, c *state.Condition) error {
	cat, err := m.category(category)
	if err != nil {
		return err
	}
	if m.disabled[category] {
		m.logger.Debug("ignoring write to disabled category", "category", category, "condition", id)
		return nil
	}
	m.store.Batch(func() {
		m.store.SetCondition(category, id, c)
		m.updateEffect(cat, id, c)
	})
	m.store.RequestSync()
	return nil
}

// RemoveConditions deletes the named conditions. Each one leaves effect
// before it is removed. It reports whether anything was removed.
func (m *Manager) RemoveConditions(category string, ids ...string) bool {
	cat, err := m.category(category)
	if err != nil {
		return false
	}
	removed := false
	m.store.Batch(func() {
		for _, id := range ids {
			c, ok := m.store.Condition(category, id)
			if !ok {
				continue
			}
			m.setEffect(cat, id, c, false)
			m.store.RemoveCondition(category, id)
			delete(m.effects[category], id)
			m.notifyRemoved(cat, id, c)
			removed = true
		}
	})
	if removed {
		m.store.RequestSync()
	}
	return removed
}

// SetActive toggles a condition. It reports false if the condition does
// not exist. Effect changes are delivered before it returns.
func (m *Manager) SetActive(category, id string, active bool) bool {
	cat, err := m.category(category)
	if err != nil {
		return false
	}
	c, ok := m.store.Condition(category, id)
	if !ok {
		return false
	}
	if c.Active == active {
		return true
	}
	m.store.Batch(func() {
		c.Active = active
		m.updateEffect(cat, id, c)
	})
	m.store.RequestSync()
	return true
}

// QueryGet serves a peer's request for a category's public data.
func (m *Manager) QueryGet(category string) (ir.Object, error) {
	return m.PublicData(category)
}

// QuerySetActive serves a peer's request to toggle a condition, subject to
// the condition's permission limit.
func (m *Manager) QuerySetActive(actor int64, category, id string, active bool) (bool, error) {
	cat, err := m.category(category)
	if err != nil {
		return false, err
	}
	if _, ok := m.store.Condition(category, id); !ok {
		return false, fmt.Errorf("%w: %s/%s", ErrUnknownCondition, category, id)
	}
	limit := LimitNormal
	if l, ok := cat.Handler.(Limiter); ok {
		limit = l.Limit(id)
	}
	if !m.permissions.Allowed(actor, category, id, limit) {
		return false, fmt.Errorf("%w: member %d may not change %s/%s (%s)", ErrPermissionDenied, actor, category, id, limit)
	}
	return m.SetActive(category, id, active), nil
}

// RefreshEffect re-evaluates one condition now and delivers a flip.
func (m *Manager) RefreshEffect(category, id string) {
	cat, err := m.category(category)
	if err != nil || m.disabled[category] {
		return
	}
	if c, ok := m.store.Condition(category, id); ok {
		m.updateEffect(cat, id, c)
	}
}

// InEffect evaluates a condition live: active and all requirements hold.
func (m *Manager) InEffect(category, id string) bool {
	if !m.Enabled(category) {
		return false
	}
	c, ok := m.Condition(category, id)
	if !ok {
		return false
	}
	return m.inEffect(c)
}

func (m *Manager) inEffect(c *state.Condition) bool {
	return c.Active && RequirementsSatisfied(c.Requirements, m.env)
}

// updateEffect re-evaluates c and delivers a flip.
func (m *Manager) updateEffect(cat Category, id string, c *state.Condition) {
	m.setEffect(cat, id, c, m.inEffect(c))
}

func (m *Manager) setEffect(cat Category, id string, c *state.Condition, inEffect bool) {
	effects, ok := m.effects[cat.Name]
	if !ok {
		effects = make(map[string]bool)
		m.effects[cat.Name] = effects
	}
	if effects[id] == inEffect {
		return
	}
	effects[id] = inEffect
	m.logger.Debug("condition effect changed", "category", cat.Name, "condition", id, "in_effect", inEffect)
	if h, ok := cat.Handler.(EffectHandler); ok {
		h.EffectChanged(id, c, inEffect)
	}
}

func (m *Manager) notifyRemoved(cat Category, id string, c *state.Condition) {
	if h, ok := cat.Handler.(RemovalHandler); ok {
		h.ConditionRemoved(id, c)
	}
}

func (m *Manager) order(cat Category, ids []string) []string {
	if o, ok := cat.Handler.(Orderer); ok {
		return o.Order(ids)
	}
	slices.Sort(ids)
	return ids
}
