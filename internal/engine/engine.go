package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/warden/internal/catalog"
	"github.com/roach88/warden/internal/commands"
	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/hook"
	"github.com/roach88/warden/internal/host"
	"github.com/roach88/warden/internal/registry"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/state"
	"github.com/roach88/warden/internal/store"
)

// DefaultTickInterval is how often Run sweeps.
const DefaultTickInterval = 2 * time.Second

// DefaultChecksumEvery is how many sweeps pass between checksum checks.
const DefaultChecksumEvery = 30

// Engine is one subject's runtime.
//
// Thread-safety model:
//   - Post and Stop: safe from any goroutine
//   - Run: from exactly one goroutine
//   - everything else: from the loop goroutine, or before Run starts
type Engine struct {
	phases   *registry.PhaseTracker
	host     host.Host
	clock    host.Clock
	seq      *Clock
	ids      IDGenerator
	hooks    *hook.Layer
	manager  *conditions.Manager
	commands *commands.Registry
	rules    *rules.Runtime
	state    *state.Store
	sched    *loopScheduler
	queue    *taskQueue
	logger   *slog.Logger

	db       *store.Store
	backend  state.Backend
	subject  string
	catalog  catalog.Options
	observer func(store.TriggerRecord)

	tickInterval  time.Duration
	checksumEvery int
	known         map[string][]string
	mismatches    []hook.Mismatch
	sweeps        int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and every component it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the wall clock and timer source.
func WithClock(clock host.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithStore persists state and triggers in db. Without it state lives in
// memory and triggers are only observed.
func WithStore(db *store.Store) Option {
	return func(e *Engine) {
		e.db = db
	}
}

// WithBackend overrides the state backend. It wins over WithStore for
// state; triggers still go to the store.
func WithBackend(b state.Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithSubject sets the key state and triggers are stored under. It
// defaults to the host's member number.
func WithSubject(subject string) Option {
	return func(e *Engine) {
		e.subject = subject
	}
}

// WithTickInterval sets the sweep period of Run.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.tickInterval = d
	}
}

// WithChecksumEvery sets how many sweeps pass between checksum checks.
func WithChecksumEvery(n int) Option {
	return func(e *Engine) {
		e.checksumEvery = n
	}
}

// WithIDs sets the trigger id generator.
func WithIDs(ids IDGenerator) Option {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithCatalog tunes the built-in rules.
func WithCatalog(opts catalog.Options) Option {
	return func(e *Engine) {
		e.catalog = opts
	}
}

// WithTriggerObserver receives every trigger after it is logged.
func WithTriggerObserver(fn func(store.TriggerRecord)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithKnownChecksums sets the accepted source checksums of host routines,
// keyed by operation.
func WithKnownChecksums(known map[string][]string) Option {
	return func(e *Engine) {
		e.known = known
	}
}

// New builds the runtime for h and registers the built-in rules. The
// engine is left in the init phase; call Load next.
func New(h host.Host, opts ...Option) (*Engine, error) {
	e := &Engine{
		phases:        registry.NewPhaseTracker(),
		host:          h,
		clock:         host.SystemClock{},
		ids:           UUIDv7Generator{},
		queue:         newTaskQueue(),
		logger:        slog.Default(),
		tickInterval:  DefaultTickInterval,
		checksumEvery: DefaultChecksumEvery,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.subject == "" {
		e.subject = strconv.FormatInt(h.MemberNumber(), 10)
	}
	e.seq = NewClock()
	e.logger = e.logger.With("subject", e.subject)

	e.hooks = hook.NewLayer(hook.WithLogger(e.logger))
	catalog.DefineOperations(e.hooks, h)

	e.manager = conditions.NewManager(e.phases, h,
		conditions.WithLogger(e.logger),
		conditions.WithNow(e.clock.Now),
	)
	e.commands = commands.New(h, commands.WithLogger(e.logger))
	e.sched = newLoopScheduler(e.clock, e.post)

	rt, err := rules.NewRuntime(e.phases, e.manager, h, e.hooks,
		rules.WithLogger(e.logger),
		rules.WithScheduler(e.sched),
		rules.WithTriggerSink(rules.TriggerSinkFunc(e.trigger)),
		rules.WithCommands(e.commands),
		rules.WithNow(e.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("create rules runtime: %w", err)
	}
	e.rules = rt
	if err := catalog.Register(rt, e.catalog); err != nil {
		return nil, err
	}

	backend := e.backend
	switch {
	case backend != nil:
	case e.db != nil:
		backend = e.db.Backend(e.subject)
	default:
		backend = state.NewMemoryBackend(nil)
	}
	e.state = state.New(backend, e.manager,
		state.WithLogger(e.logger),
		state.WithDispatcher(func(fn func()) { e.post("state sync", fn) }),
	)
	e.manager.UseStore(e.state)
	return e, nil
}

// Load restores stored state, resumes the trigger sequence and brings up
// every stored rule.
func (e *Engine) Load(ctx context.Context) (*state.LoadReport, error) {
	if err := e.phases.Advance(registry.PhaseLoad); err != nil {
		return nil, err
	}
	report, err := e.state.Load(ctx)
	if err != nil {
		return nil, &Error{Code: ErrCodeLoadFailed, Message: "restore state", Subject: e.subject, Err: err}
	}
	for _, pruned := range report.Pruned {
		e.logger.Warn("pruned stored state", "error", pruned)
	}
	if e.db != nil {
		last, err := e.db.MaxTriggerSeq(ctx, e.subject)
		if err != nil {
			return nil, &Error{Code: ErrCodeLoadFailed, Message: "resume trigger sequence", Subject: e.subject, Err: err}
		}
		e.seq = NewClockAt(last)
	}
	if err := e.phases.Advance(registry.PhaseRun); err != nil {
		return nil, err
	}
	e.rules.Start()
	e.verifyChecksums()
	e.logger.Info("engine loaded", "rules", len(e.state.ConditionIDs(rules.Category)), "seq", e.seq.Current())
	return report, nil
}

// Run serves the loop until ctx is cancelled or Stop is called. It sweeps
// every tick interval and runs posted work in between.
func (e *Engine) Run(ctx context.Context) error {
	if e.phases.Phase() != registry.PhaseRun {
		return ErrNotLoaded
	}
	e.logger.Info("engine starting", "tick", e.tickInterval)

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		e.Drain()

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.Drain()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Closed() {
				e.Drain()
				e.logger.Info("engine stopping: queue closed")
				return nil
			}

		case <-ticker.C:
			if _, err := e.Sweep(ctx); err != nil {
				e.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// Stop makes Run return after it drains queued work.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Close unloads every rule, flushes state and ends the lifecycle. Call it
// after Run has returned.
func (e *Engine) Close(ctx context.Context) error {
	if e.phases.Phase() >= registry.PhaseUnload {
		return nil
	}
	loaded := e.phases.Phase() == registry.PhaseRun
	if loaded {
		e.rules.Stop()
	}
	if err := e.phases.Advance(registry.PhaseUnload); err != nil {
		return err
	}
	e.queue.Close()
	e.Drain()

	var err error
	// Never overwrite stored state that was not loaded.
	if loaded {
		err = e.state.Flush(ctx)
	}
	if advErr := e.phases.Advance(registry.PhaseDestroyed); advErr != nil && err == nil {
		err = advErr
	}
	e.logger.Info("engine closed")
	return err
}

// Post submits work to the loop. It returns false once the engine stopped.
func (e *Engine) Post(fn func()) bool {
	return e.post("posted", fn)
}

func (e *Engine) post(name string, fn func()) bool {
	ok := e.queue.Enqueue(task{name: name, fn: fn})
	if !ok {
		e.logger.Debug("dropping work after stop", "task", name)
	}
	return ok
}

// Drain runs queued work on the calling goroutine until the queue is
// empty, including work queued while draining. It returns how many tasks
// ran.
func (e *Engine) Drain() int {
	n := 0
	for {
		t, ok := e.queue.TryDequeue()
		if !ok {
			return n
		}
		e.run(t)
		n++
	}
}

func (e *Engine) run(t task) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("loop task panicked", "task", t.name, "panic", p)
		}
	}()
	t.fn()
}

// Sweep runs one condition sweep now. Every checksumEvery sweeps the host
// routine checksums are verified again.
func (e *Engine) Sweep(ctx context.Context) (*conditions.SweepReport, error) {
	if e.phases.Phase() != registry.PhaseRun {
		return nil, ErrNotLoaded
	}
	report, err := e.manager.Sweep(ctx)
	e.sweeps++
	if e.checksumEvery > 0 && e.sweeps%e.checksumEvery == 0 {
		e.verifyChecksums()
	}
	if err != nil {
		return report, &Error{Code: ErrCodeSweepFailed, Message: "flush after sweep", Subject: e.subject, Err: err}
	}
	for _, key := range report.Failed {
		e.logger.Warn("condition failed during sweep", "condition", key)
	}
	return report, nil
}

func (e *Engine) verifyChecksums() {
	if len(e.known) == 0 {
		return
	}
	e.mismatches = e.hooks.VerifyChecksums(e.known)
}

// trigger is the rules.TriggerSink. It runs on the loop.
func (e *Engine) trigger(ev rules.TriggerEvent) {
	rec := store.TriggerRecord{
		ID:        e.ids.Generate(),
		Subject:   e.subject,
		RuleID:    ev.RuleID,
		Kind:      string(ev.Kind),
		Message:   ev.Message,
		Seq:       e.seq.Next(),
		CreatedAt: ev.At.UnixMilli(),
	}
	e.logger.Info("rule triggered", "rule", rec.RuleID, "kind", rec.Kind, "seq", rec.Seq)

	if e.db != nil && rec.Message != "" {
		if err := e.db.AppendTrigger(context.Background(), rec); err != nil {
			err = &Error{Code: ErrCodeTriggerLogFailed, Message: "append trigger", Subject: e.subject, Rule: rec.RuleID, Err: err}
			e.logger.Error("trigger log write failed", "error", err)
		}
	}
	if e.observer != nil {
		e.observer(rec)
	}
}

// Call invokes an intercepted host operation through its chain.
func (e *Engine) Call(op string, args ...any) (any, error) {
	return e.hooks.Call(op, args...)
}

// Whisper hands a whisper to the command registry. It reports whether the
// message was a command.
func (e *Engine) Whisper(sender int64, message string) bool {
	return e.commands.Dispatch(sender, message)
}

// Triggers lists logged triggers for this subject, optionally for one rule.
func (e *Engine) Triggers(ctx context.Context, rule string, limit int) ([]store.TriggerRecord, error) {
	if e.db == nil {
		return nil, errors.New("no trigger store configured")
	}
	return e.db.ListTriggers(ctx, store.TriggerFilter{Subject: e.subject, RuleID: rule, Limit: limit})
}

// Phase returns the lifecycle phase.
func (e *Engine) Phase() registry.Phase { return e.phases.Phase() }

// Subject returns the storage key of this engine.
func (e *Engine) Subject() string { return e.subject }

// Rules returns the rule runtime.
func (e *Engine) Rules() *rules.Runtime { return e.rules }

// Conditions returns the condition manager.
func (e *Engine) Conditions() *conditions.Manager { return e.manager }

// Hooks returns the interception layer.
func (e *Engine) Hooks() *hook.Layer { return e.hooks }

// Commands returns the whisper command registry.
func (e *Engine) Commands() *commands.Registry { return e.commands }

// State returns the state store.
func (e *Engine) State() *state.Store { return e.state }

// Seq returns the last trigger sequence handed out.
func (e *Engine) Seq() int64 { return e.seq.Current() }

// Mismatches returns the result of the last checksum check.
func (e *Engine) Mismatches() []hook.Mismatch { return e.mismatches }

// QueueLen returns how many tasks wait for the loop.
func (e *Engine) QueueLen() int { return e.queue.Len() }

// PendingTimers returns how many delayed callbacks rule id has waiting.
func (e *Engine) PendingTimers(id string) int { return e.sched.Pending(id) }
