package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/warden/internal/ir"
)

// Version is the blob layout version written by this package.
const Version = 1

const (
	keyVersion     = "version"
	keyConditions  = "conditions"
	keyLegacyCurse = "cursedItems"

	// CategoryCurses receives migrated legacy curse entries.
	CategoryCurses = "curses"
)

// Validator lets the owners of each category judge stored entries.
type Validator interface {
	// CategoryStatus reports whether category has a registered handler and
	// whether its module is currently enabled.
	CategoryStatus(category string) (known, enabled bool)
	// ValidateCondition checks, and may complete with defaults, a decoded
	// record. Returning false prunes it.
	ValidateCondition(category, condition string, c *Condition) bool
	// EnabledCategories lists categories that must exist after Load.
	EnabledCategories() []string
}

// Change is delivered to observers after each successful flush.
type Change struct {
	Digest string
	Flush  int
}

// Observer is notified of durable changes.
type Observer func(Change)

// Dispatcher schedules fn to run later on the runtime's own loop.
type Dispatcher func(fn func())

// LoadReport summarizes what Load changed.
type LoadReport struct {
	Migrated bool
	Pruned   []*OrphanError
	Created  []string
}

// Changed reports whether Load altered the stored data.
func (r *LoadReport) Changed() bool {
	return r.Migrated || len(r.Pruned) > 0 || len(r.Created) > 0
}

// Store is the single owner of persisted condition records.
type Store struct {
	backend   Backend
	validator Validator
	logger    *slog.Logger
	dispatch  Dispatcher

	conditions map[string]map[string]*Condition
	extra      ir.Object

	pending    bool
	batchDepth int
	batchDirty bool

	observers []Observer
	flushes   int
	digest    string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithDispatcher makes syncs asynchronous: writes schedule one coalesced
// flush through d instead of flushing inline.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Store) {
		s.dispatch = d
	}
}

// New creates an empty store. Call Load before use.
func New(backend Backend, validator Validator, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		validator:  validator,
		logger:     slog.Default(),
		conditions: make(map[string]map[string]*Condition),
		extra:      ir.Object{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the backend and rebuilds memory from it. Entries are pruned
// when their category is unknown or disabled, when they fail to decode, or
// when the validator rejects them. Running Load on already-clean data
// changes nothing. If Load changed anything, a sync is requested.
func (s *Store) Load(ctx context.Context) (*LoadReport, error) {
	raw, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	report := &LoadReport{}
	root := ir.Object{}
	if len(raw) > 0 {
		parsed, err := ir.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		obj, ok := parsed.(ir.Object)
		if !ok {
			s.logger.Warn("stored state is not an object; starting empty", "kind", ir.Kind(parsed))
			report.Pruned = append(report.Pruned, &OrphanError{Category: "*", Reason: "root is not an object"})
		} else {
			root = obj
		}
	}

	report.Migrated = migrateLegacyCurses(root)
	if report.Migrated {
		s.logger.Info("migrated legacy curse storage", "category", CategoryCurses)
	}

	conditions := make(map[string]map[string]*Condition)
	storedCats, _ := root[keyConditions].(ir.Object)
	if _, present := root[keyConditions]; present && storedCats == nil {
		report.Pruned = append(report.Pruned, &OrphanError{Category: "*", Reason: "conditions is not an object"})
	}

	for _, category := range storedCats.SortedKeys() {
		known, enabled := s.validator.CategoryStatus(category)
		switch {
		case !known:
			s.prune(report, &OrphanError{Category: category, Reason: "unknown category"})
			continue
		case !enabled:
			s.prune(report, &OrphanError{Category: category, Reason: "category disabled"})
			continue
		}

		entries, ok := storedCats[category].(ir.Object)
		if !ok {
			s.prune(report, &OrphanError{Category: category, Reason: "category data is not an object"})
			continue
		}

		kept := make(map[string]*Condition, len(entries))
		for _, id := range entries.SortedKeys() {
			c, err := DecodeCondition(entries[id])
			if err != nil {
				s.prune(report, &OrphanError{Category: category, Condition: id, Reason: err.Error()})
				continue
			}
			if !s.validator.ValidateCondition(category, id, c) {
				s.prune(report, &OrphanError{Category: category, Condition: id, Reason: "rejected by category validator"})
				continue
			}
			kept[id] = c
		}
		conditions[category] = kept
	}

	for _, category := range s.validator.EnabledCategories() {
		if _, ok := conditions[category]; !ok {
			conditions[category] = make(map[string]*Condition)
			if storedCats != nil || len(raw) > 0 {
				report.Created = append(report.Created, category)
			}
		}
	}

	extra := ir.Object{}
	for k, v := range root {
		if k != keyConditions && k != keyVersion {
			extra[k] = v
		}
	}

	s.conditions = conditions
	s.extra = extra

	s.logger.Info("state loaded",
		"categories", len(conditions),
		"pruned", len(report.Pruned),
		"migrated", report.Migrated,
	)

	if report.Changed() {
		s.RequestSync()
	}
	return report, nil
}

func (s *Store) prune(report *LoadReport, orphan *OrphanError) {
	report.Pruned = append(report.Pruned, orphan)
	if orphan.Reason == "category disabled" {
		s.logger.Debug("pruned stored state", "category", orphan.Category, "reason", orphan.Reason)
		return
	}
	s.logger.Warn("pruned stored state",
		"category", orphan.Category,
		"condition", orphan.Condition,
		"reason", orphan.Reason,
	)
}

// migrateLegacyCurses moves the flat cursedItems map into
// conditions.curses and deletes it. Null entries are dropped.
func migrateLegacyCurses(root ir.Object) bool {
	legacy, present := root[keyLegacyCurse]
	if !present {
		return false
	}
	delete(root, keyLegacyCurse)

	conds, ok := root[keyConditions].(ir.Object)
	if !ok {
		conds = ir.Object{}
		root[keyConditions] = conds
	}
	curses := ir.Object{}
	if items, ok := legacy.(ir.Object); ok {
		for group, data := range items {
			if _, isNull := data.(ir.Null); isNull || data == nil {
				continue
			}
			curses[group] = ir.Object{"active": ir.Bool(true), "data": data}
		}
	}
	conds[CategoryCurses] = curses
	return true
}

// Categories returns stored category names, sorted.
func (s *Store) Categories() []string {
	out := make([]string, 0, len(s.conditions))
	for k := range s.conditions {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// HasCategory reports whether category is present.
func (s *Store) HasCategory(category string) bool {
	_, ok := s.conditions[category]
	return ok
}

// ConditionIDs returns the ids stored under category, sorted.
func (s *Store) ConditionIDs(category string) []string {
	entries := s.conditions[category]
	out := make([]string, 0, len(entries))
	for id := range entries {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Condition returns the live record. Mutating it must be followed by
// RequestSync (the sweep does this via snapshot comparison).
func (s *Store) Condition(category, id string) (*Condition, bool) {
	c, ok := s.conditions[category][id]
	return c, ok
}

// SetCondition stores c under category/id and requests a sync. The
// category is created if missing.
func (s *Store) SetCondition(category, id string, c *Condition) {
	entries, ok := s.conditions[category]
	if !ok {
		entries = make(map[string]*Condition)
		s.conditions[category] = entries
	}
	entries[id] = c
	s.RequestSync()
}

// RemoveCondition deletes category/id. It reports whether anything was removed.
func (s *Store) RemoveCondition(category, id string) bool {
	entries, ok := s.conditions[category]
	if !ok {
		return false
	}
	if _, ok := entries[id]; !ok {
		return false
	}
	delete(entries, id)
	s.RequestSync()
	return true
}

// EnsureCategory creates an empty category.
func (s *Store) EnsureCategory(category string) {
	if _, ok := s.conditions[category]; ok {
		return
	}
	s.conditions[category] = make(map[string]*Condition)
	s.RequestSync()
}

// DropCategory deletes a category and all of its records.
func (s *Store) DropCategory(category string) bool {
	if _, ok := s.conditions[category]; !ok {
		return false
	}
	delete(s.conditions, category)
	s.RequestSync()
	return true
}

// Subscribe registers an observer.
func (s *Store) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// Batch runs fn with sync requests deferred. It returns whether any write
// inside fn requested a sync; the caller decides when to Flush.
func (s *Store) Batch(fn func()) (dirty bool) {
	s.batchDepth++
	defer func() {
		s.batchDepth--
		dirty = s.batchDirty
		if s.batchDepth == 0 {
			s.batchDirty = false
		}
	}()
	fn()
	return
}

// RequestSync schedules a durable save. Inside Batch it only marks the
// batch dirty. Without a dispatcher it flushes inline.
func (s *Store) RequestSync() {
	if s.batchDepth > 0 {
		s.batchDirty = true
		return
	}
	if s.dispatch == nil {
		if err := s.Flush(context.Background()); err != nil {
			s.logger.Error("state sync failed", "error", err)
		}
		return
	}
	if s.pending {
		return
	}
	s.pending = true
	s.dispatch(func() {
		if !s.pending {
			return
		}
		if err := s.Flush(context.Background()); err != nil {
			s.logger.Error("state sync failed", "error", err)
		}
	})
}

// Flush encodes and saves the blob now, then notifies observers.
func (s *Store) Flush(ctx context.Context) error {
	s.pending = false
	blob, err := s.Encode()
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, blob); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.flushes++
	s.digest = ir.DigestBytes(ir.DomainStateBlob, blob)

	change := Change{Digest: s.digest, Flush: s.flushes}
	for _, o := range s.observers {
		o(change)
	}
	return nil
}

// Flushes returns the number of completed flushes.
func (s *Store) Flushes() int {
	return s.flushes
}

// Digest returns the digest of the last flushed blob.
func (s *Store) Digest() string {
	return s.digest
}

// Value returns the full persisted shape.
func (s *Store) Value() ir.Object {
	root := ir.CloneObject(s.extra)
	if root == nil {
		root = ir.Object{}
	}
	cats := make(ir.Object, len(s.conditions))
	for category, entries := range s.conditions {
		obj := make(ir.Object, len(entries))
		for id, c := range entries {
			obj[id] = c.Value()
		}
		cats[category] = obj
	}
	root[keyConditions] = cats
	root[keyVersion] = ir.Int(Version)
	return root
}

// Encode returns the canonical JSON blob.
func (s *Store) Encode() ([]byte, error) {
	blob, err := ir.MarshalCanonical(s.Value())
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return blob, nil
}
