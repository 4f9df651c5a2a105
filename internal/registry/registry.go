package registry

import (
	"slices"
	"sync"
)

// Validator is implemented by definitions that can check themselves at
// registration time.
type Validator interface {
	Validate() error
}

// Registry maps identifiers to immutable definitions.
//
// Writes are only legal while the phaser reports PhaseInit. After that the
// table is never mutated again, so readers take no lock. The mutex only
// serializes concurrent writers during init.
type Registry[T any] struct {
	name  string
	phase Phaser

	mu      sync.Mutex
	entries map[string]T
	order   []string
}

// New creates a registry named for diagnostics.
func New[T any](name string, phase Phaser) *Registry[T] {
	return &Registry[T]{
		name:    name,
		phase:   phase,
		entries: make(map[string]T),
	}
}

// Register adds def under id. It fails with DUPLICATE_IDENTIFIER when id is
// present, INVALID_PHASE outside init, and INVALID_DEFINITION when def
// implements Validator and rejects itself.
func (r *Registry[T]) Register(id string, def T) error {
	if p := r.phase.Phase(); p != PhaseInit {
		return &Error{
			Code:     CodeInvalidPhase,
			Registry: r.name,
			ID:       id,
			Message:  "registration is only allowed during init (current phase: " + p.String() + ")",
		}
	}
	if id == "" {
		return Invalid(r.name, id, "empty identifier")
	}
	if v, ok := any(def).(Validator); ok {
		if err := v.Validate(); err != nil {
			return Invalid(r.name, id, "%v", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return &Error{
			Code:     CodeDuplicateIdentifier,
			Registry: r.name,
			ID:       id,
			Message:  "already registered",
		}
	}
	r.entries[id] = def
	r.order = append(r.order, id)
	return nil
}

// MustRegister panics on error. Intended for static catalogues.
func (r *Registry[T]) MustRegister(id string, def T) {
	if err := r.Register(id, def); err != nil {
		panic(err)
	}
}

// Get returns the definition for id.
func (r *Registry[T]) Get(id string) (T, bool) {
	def, ok := r.entries[id]
	return def, ok
}

// Has reports whether id is registered.
func (r *Registry[T]) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// IDs returns identifiers in registration order.
func (r *Registry[T]) IDs() []string {
	return slices.Clone(r.order)
}

// Index returns the registration position of id, or -1.
func (r *Registry[T]) Index(id string) int {
	return slices.Index(r.order, id)
}

// Len returns the number of definitions.
func (r *Registry[T]) Len() int {
	return len(r.order)
}
