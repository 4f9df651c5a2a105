package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/store"
)

// StateView is the stored blob of one subject.
type StateView struct {
	Subject   string `json:"subject"`
	Revision  int64  `json:"revision"`
	Digest    string `json:"digest"`
	UpdatedAt int64  `json:"updated_at"`
	State     any    `json:"state"`
}

// MigrateResult reports what `state migrate` changed.
type MigrateResult struct {
	Subject       string   `json:"subject"`
	SchemaVersion int      `json:"schema_version"`
	Migrated      bool     `json:"migrated"`
	Pruned        []string `json:"pruned,omitempty"`
	Created       []string `json:"created,omitempty"`
}

// NewStateCommand creates the state command group.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and migrate stored condition state",
	}
	cmd.AddCommand(newStateShowCommand(rootOpts))
	cmd.AddCommand(newStateListCommand(rootOpts))
	cmd.AddCommand(newStateMigrateCommand(rootOpts))
	return cmd
}

func newStateShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored state blob of the subject",
		Long: `Print the stored state blob of the subject as it is on disk.

Examples:
  warden state show --db ./warden.db --subject 1000
  warden state show --subject 1000 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateShow(cmd.Context(), opts, cmd)
		},
	}
}

func runStateShow(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	subject, err := subjectKey(opts)
	if err != nil {
		return err
	}
	db, err := openStore(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	out := opts.formatter(cmd)
	rec, err := db.LoadBlob(ctx, subject)
	if errors.Is(err, store.ErrNotFound) {
		msg := fmt.Sprintf("no state stored for subject %s", subject)
		if ferr := out.Error(ErrCodeNoState, msg, nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, msg)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load state", err)
	}

	parsed, err := ir.Parse([]byte(rec.Blob))
	if err != nil {
		return WrapExitError(ExitFailure, "stored state is not valid JSON", err)
	}
	view := StateView{
		Subject:   rec.Subject,
		Revision:  rec.Revision,
		Digest:    rec.Digest,
		UpdatedAt: rec.UpdatedAt,
		State:     ir.ToAny(parsed),
	}
	return out.Success(view, func(w io.Writer) {
		fmt.Fprintf(w, "Subject:  %s\n", view.Subject)
		fmt.Fprintf(w, "Revision: %d\n", view.Revision)
		fmt.Fprintf(w, "Digest:   %s\n", view.Digest)
		fmt.Fprintf(w, "Updated:  %s\n", time.UnixMilli(view.UpdatedAt).UTC().Format(time.RFC3339))
		pretty, _ := json.MarshalIndent(view.State, "", "  ")
		fmt.Fprintf(w, "%s\n", pretty)
	})
}

func newStateListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List subjects with stored state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			subjects, err := db.Subjects(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list subjects", err)
			}
			if subjects == nil {
				subjects = []string{}
			}
			return opts.formatter(cmd).Success(subjects, func(w io.Writer) {
				if len(subjects) == 0 {
					fmt.Fprintln(w, "No stored state.")
					return
				}
				for _, s := range subjects {
					fmt.Fprintln(w, s)
				}
			})
		},
	}
}

func newStateMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database and the subject's state up to date",
		Long: `Apply pending schema migrations, then load and rewrite the subject's state.

Loading converts legacy layouts and prunes entries no registered rule or
category can own. The cleaned state is written back.

Examples:
  warden state migrate --db ./warden.db --subject 1000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateMigrate(cmd.Context(), opts, cmd)
		},
	}
}

func runStateMigrate(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	sess, err := openSession(ctx, opts, false)
	if err != nil {
		return err
	}
	if err := sess.db.Migrate(); err != nil {
		sess.Close(ctx)
		return WrapExitError(ExitCommandError, "failed to migrate database", err)
	}
	version, err := sess.db.SchemaVersion(ctx)
	if err != nil {
		sess.Close(ctx)
		return WrapExitError(ExitCommandError, "failed to read schema version", err)
	}

	result := MigrateResult{
		Subject:       sess.engine.Subject(),
		SchemaVersion: version,
		Migrated:      sess.report.Migrated,
		Created:       sess.report.Created,
	}
	for _, p := range sess.report.Pruned {
		result.Pruned = append(result.Pruned, p.Error())
	}
	if err := sess.Close(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to write state", err)
	}

	out := opts.formatter(cmd)
	out.VerboseLog("schema version %d", version)
	return out.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Subject %s at schema version %d\n", result.Subject, result.SchemaVersion)
		if result.Migrated {
			fmt.Fprintln(w, "  converted legacy layout")
		}
		for _, c := range result.Created {
			fmt.Fprintf(w, "  created category %s\n", c)
		}
		for _, p := range result.Pruned {
			fmt.Fprintf(w, "  pruned %s\n", p)
		}
		if !result.Migrated && len(result.Created) == 0 && len(result.Pruned) == 0 {
			fmt.Fprintln(w, "  nothing to change")
		}
	})
}
