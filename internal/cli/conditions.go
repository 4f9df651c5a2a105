package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/ir"
)

// NewConditionsCommand creates the conditions command group. It serves the
// same queries a peer would send.
func NewConditionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conditions",
		Short: "Query and toggle conditions by category",
	}
	cmd.AddCommand(newConditionsGetCommand(rootOpts))
	cmd.AddCommand(newConditionsSetActiveCommand(rootOpts))
	return cmd
}

func newConditionsGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <category>",
		Short: "Print the public data of a condition category",
		Long: `Print the public data of a condition category.

Examples:
  warden conditions get rules --subject 1000
  warden conditions get rules --subject 1000 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, opts, true)
			if err != nil {
				return err
			}
			data, err := sess.engine.Conditions().QueryGet(args[0])
			if cerr := sess.Close(ctx); err == nil && cerr != nil {
				err = cerr
			}
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("category %s", args[0]), err)
			}
			return opts.formatter(cmd).Success(ir.ToAny(data), func(w io.Writer) {
				if len(data) == 0 {
					fmt.Fprintln(w, "No conditions.")
					return
				}
				for _, id := range data.SortedKeys() {
					fmt.Fprintf(w, "%s: %s\n", id, ir.Format(data[id]))
				}
			})
		},
	}
}

func newConditionsSetActiveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-active <category> <condition> <true|false>",
		Short: "Activate or deactivate a condition",
		Long: `Activate or deactivate a condition as the subject.

The change goes through the same permission check as a remote request.

Examples:
  warden conditions set-active rules other_forbid_afk false --subject 1000`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id := args[0], args[1]
			active, err := strconv.ParseBool(args[2])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid active value %q: want true or false", args[2]))
			}

			ctx := cmd.Context()
			sess, err := openSession(ctx, opts, false)
			if err != nil {
				return err
			}
			out := opts.formatter(cmd)
			ok, err := sess.engine.Conditions().QuerySetActive(opts.cfg.Subject, category, id, active)
			sess.engine.Drain()
			if cerr := sess.Close(ctx); err == nil && cerr != nil {
				return WrapExitError(ExitCommandError, "failed to write state", cerr)
			}
			switch {
			case errors.Is(err, conditions.ErrPermissionDenied):
				if ferr := out.Error(ErrCodeDenied, err.Error(), nil); ferr != nil {
					return ferr
				}
				return WrapExitError(ExitFailure, "change refused", err)
			case err != nil:
				return WrapExitError(ExitFailure, fmt.Sprintf("condition %s/%s", category, id), err)
			case !ok:
				return NewExitError(ExitFailure, fmt.Sprintf("condition %s/%s not changed", category, id))
			}
			return out.Success(map[string]any{"category": category, "condition": id, "active": active}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s/%s active=%t\n", category, id, active)
			})
		},
	}
}
