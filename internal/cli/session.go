package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/warden/internal/engine"
	"github.com/roach88/warden/internal/state"
	"github.com/roach88/warden/internal/store"
)

// session is a loaded runtime over the subject's stored state.
type session struct {
	db     *store.Store
	engine *engine.Engine
	report *state.LoadReport
}

// readOnlyBackend loads the stored blob and discards saves, so inspecting
// state never rewrites it.
type readOnlyBackend struct {
	state.Backend
}

func (readOnlyBackend) Save(context.Context, []byte) error { return nil }

// openStore opens the configured database.
func openStore(opts *RootOptions) (*store.Store, error) {
	db, err := store.Open(opts.cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return db, nil
}

func subjectKey(opts *RootOptions) (string, error) {
	if opts.cfg.Subject <= 0 {
		return "", NewExitError(ExitCommandError, "subject is required (--subject or WARDEN_SUBJECT)")
	}
	return strconv.FormatInt(opts.cfg.Subject, 10), nil
}

// openSession loads the subject's state into a runtime. With readOnly the
// stored blob is left untouched when the session closes.
func openSession(ctx context.Context, opts *RootOptions, readOnly bool) (*session, error) {
	subject, err := subjectKey(opts)
	if err != nil {
		return nil, err
	}
	db, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	cfg := opts.cfg
	logger := opts.Logger()
	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithStore(db),
		engine.WithSubject(subject),
		engine.WithTickInterval(cfg.TickInterval),
		engine.WithCatalog(cfg.CatalogOptions()),
	}
	if readOnly {
		engineOpts = append(engineOpts, engine.WithBackend(readOnlyBackend{db.Backend(subject)}))
	}

	eng, err := engine.New(newOfflineHost(cfg.Subject, cfg.PlayerName, logger), engineOpts...)
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create runtime", err)
	}
	report, err := eng.Load(ctx)
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load state", err)
	}
	eng.Drain()
	return &session{db: db, engine: eng, report: report}, nil
}

// Close unloads the runtime, writing state back unless read-only, and
// closes the database.
func (s *session) Close(ctx context.Context) error {
	err := s.engine.Close(ctx)
	if cerr := s.db.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}
