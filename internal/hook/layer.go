package hook

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// MaxDepth bounds nested dispatch through the layer.
const MaxDepth = 32

// Args are the positional arguments of an intercepted call.
type Args []any

// Next continues the chain with (possibly modified) arguments.
type Next func(args Args) any

// Handler wraps an operation. It may observe or rewrite args, call next at
// most once, and replace the result.
type Handler func(args Args, next Next) any

// Original is the host implementation at the bottom of a chain.
type Original func(args Args) any

// Entry describes one registered interceptor.
type Entry struct {
	Priority int
	Owner    string
	Seq      uint64
}

type entry struct {
	Entry
	handler Handler
}

type operation struct {
	name     string
	original Original
	source   string
	patched  string
	defined  bool
	chain    []*entry
}

// Layer owns every interceptor chain in the process.
type Layer struct {
	mu     sync.Mutex
	ops    map[string]*operation
	seq    uint64
	depth  int
	logger *slog.Logger
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the layer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Layer) {
		l.logger = logger
	}
}

// NewLayer creates an empty interception layer.
func NewLayer(opts ...Option) *Layer {
	l := &Layer{
		ops:    make(map[string]*operation),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// InterceptOption configures a single registration.
type InterceptOption func(*entry)

// WithOwner tags the entry with an owner. A later registration by the same
// owner at the same priority replaces the handler instead of appending.
func WithOwner(owner string) InterceptOption {
	return func(e *entry) {
		e.Owner = owner
	}
}

// Define exposes a host operation. source is optional and only needed for
// Patch and VerifyChecksums. Redefining an operation swaps its original and
// keeps the chain.
func (l *Layer) Define(name string, original Original, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	op := l.operation(name)
	op.original = original
	op.source = source
	op.patched = ""
	op.defined = true
}

// Intercept registers handler for the named operation. The operation does
// not need to be defined yet.
func (l *Layer) Intercept(name string, priority int, handler Handler, opts ...InterceptOption) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := &entry{Entry: Entry{Priority: priority}, handler: handler}
	for _, opt := range opts {
		opt(e)
	}

	op := l.operation(name)
	if e.Owner != "" {
		for _, existing := range op.chain {
			if existing.Owner == e.Owner && existing.Priority == priority {
				existing.handler = handler
				return
			}
		}
	}

	l.seq++
	e.Seq = l.seq

	// Insert after every entry with priority <= ours: FIFO among equals.
	idx := len(op.chain)
	for i, existing := range op.chain {
		if existing.Priority > priority {
			idx = i
			break
		}
	}
	op.chain = slices.Insert(op.chain, idx, e)

	l.logger.Debug("interceptor registered",
		"operation", name,
		"priority", priority,
		"owner", e.Owner,
		"position", idx,
	)
}

// Chain returns the registered entries of an operation in call order.
func (l *Layer) Chain(name string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.ops[name]
	if !ok {
		return nil
	}
	out := make([]Entry, len(op.chain))
	for i, e := range op.chain {
		out[i] = e.Entry
	}
	return out
}

// Call invokes the named operation through its chain.
func (l *Layer) Call(name string, args ...any) (any, error) {
	l.mu.Lock()
	op, ok := l.ops[name]
	if !ok || !op.defined {
		l.mu.Unlock()
		return nil, fmt.Errorf("call %s: %w", name, ErrUnknownOperation)
	}
	if l.depth >= MaxDepth {
		l.mu.Unlock()
		return nil, fmt.Errorf("call %s: %w", name, ErrMaxDepth)
	}
	l.depth++
	chain := slices.Clone(op.chain)
	original := op.original
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.depth--
		l.mu.Unlock()
	}()

	return l.dispatch(name, chain, 0, original, Args(args)), nil
}

func (l *Layer) dispatch(name string, chain []*entry, i int, original Original, args Args) any {
	if i == len(chain) {
		if original == nil {
			return nil
		}
		return original(args)
	}

	e := chain[i]
	var (
		called bool
		result any
	)
	next := func(nextArgs Args) any {
		if called {
			l.logger.Warn("interceptor called next twice",
				"operation", name,
				"priority", e.Priority,
				"owner", e.Owner,
			)
			return result
		}
		called = true
		result = l.dispatch(name, chain, i+1, original, nextArgs)
		return result
	}
	return e.handler(args, next)
}

// operation returns the named operation, creating it. Caller holds mu.
func (l *Layer) operation(name string) *operation {
	op, ok := l.ops[name]
	if !ok {
		op = &operation{name: name}
		l.ops[name] = op
	}
	return op
}
