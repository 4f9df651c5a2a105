// Package commands dispatches whispered "!name args" commands to the
// handlers rules register for them.
package commands

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/registry"
)

// Prefix starts every command.
const Prefix = "!"

const registryName = "commands"

// Handler runs a command. sender is the whispering member; respond
// whispers back to them. It reports whether the command was accepted.
// A rejected command is reported to the sender as unknown, so handlers
// that refuse unauthorized senders do not reveal themselves.
type Handler func(sender int64, args []string, respond func(string)) bool

// Command is one registered command.
type Command struct {
	Name string
	// Owner is the rule that registered the command, if any.
	Owner   string
	Handler Handler
}

// Registry holds commands keyed by case-folded name. Unlike definition
// registries it stays open after init: rules register their commands the
// first time they are loaded. The caser is stateful, so folding happens
// under mu.
type Registry struct {
	mu       sync.Mutex
	fold     cases.Caser
	commands map[string]Command
	notifier host.Notifier
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry that replies through notifier.
func New(notifier host.Notifier, opts ...Option) *Registry {
	r := &Registry{
		fold:     cases.Fold(),
		commands: make(map[string]Command),
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) key(name string) string {
	return r.fold.String(strings.TrimSpace(name))
}

// Register adds a command. Names are unique regardless of case.
func (r *Registry) Register(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(cmd.Name)
	if key == "" || strings.ContainsAny(key, " \t\n") {
		return registry.Invalid(registryName, cmd.Name, "command names are single words")
	}
	if cmd.Handler == nil {
		return registry.Invalid(registryName, cmd.Name, "no handler")
	}
	if existing, ok := r.commands[key]; ok {
		return &registry.Error{
			Code:     registry.CodeDuplicateIdentifier,
			Registry: registryName,
			ID:       cmd.Name,
			Message:  "already registered by " + ownerName(existing.Owner),
		}
	}
	r.commands[key] = cmd
	r.logger.Debug("command registered", "command", cmd.Name, "owner", cmd.Owner)
	return nil
}

func ownerName(owner string) string {
	if owner == "" {
		return "the runtime"
	}
	return owner
}

// Names lists registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd.Name)
	}
	slices.Sort(out)
	return out
}

// Dispatch handles one whisper. It returns false when message is not a
// command at all, so the caller can deliver it as ordinary chat.
func (r *Registry) Dispatch(sender int64, message string) bool {
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, Prefix) {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(message, Prefix))
	if len(fields) == 0 {
		return false
	}

	r.mu.Lock()
	cmd, ok := r.commands[r.key(fields[0])]
	r.mu.Unlock()

	respond := func(text string) {
		r.notifier.Whisper(sender, text)
	}
	if !ok || !r.run(cmd, sender, fields[1:], respond) {
		respond("Unknown command: " + fields[0])
	}
	return true
}

func (r *Registry) run(cmd Command, sender int64, args []string, respond func(string)) (accepted bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("command handler panicked", "command", cmd.Name, "owner", cmd.Owner, "panic", p)
			accepted = true
			respond("Command failed: " + cmd.Name)
		}
	}()
	return cmd.Handler(sender, args, respond)
}
