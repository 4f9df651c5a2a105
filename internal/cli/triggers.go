package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/warden/internal/store"
)

// TriggersOptions holds flags for the triggers command.
type TriggersOptions struct {
	*RootOptions
	Rule  string // optional - filter to one rule
	Limit int
}

// TriggersResult is the trigger log of one subject.
type TriggersResult struct {
	Subject  string                `json:"subject"`
	Triggers []store.TriggerRecord `json:"triggers"`
}

// NewTriggersCommand creates the triggers command.
func NewTriggersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TriggersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "Show the logged rule triggers of the subject",
		Long: `Show the logged rule triggers of the subject in sequence order.

Examples:
  warden triggers --subject 1000
  warden triggers --subject 1000 --rule other_log_money
  warden triggers --subject 1000 --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriggers(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rule, "rule", "", "only show triggers of this rule")
	cmd.Flags().IntVar(&opts.Limit, "limit", store.DefaultTriggerLimit, "maximum number of entries")

	return cmd
}

func runTriggers(opts *TriggersOptions, cmd *cobra.Command) error {
	subject, err := subjectKey(opts.RootOptions)
	if err != nil {
		return err
	}
	db, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer db.Close()

	recs, err := db.ListTriggers(cmd.Context(), store.TriggerFilter{
		Subject: subject,
		RuleID:  opts.Rule,
		Limit:   opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list triggers", err)
	}

	result := TriggersResult{Subject: subject, Triggers: recs}
	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		if len(recs) == 0 {
			fmt.Fprintln(w, "No triggers logged.")
			return
		}
		for _, rec := range recs {
			at := time.UnixMilli(rec.CreatedAt).UTC().Format(time.RFC3339)
			fmt.Fprintf(w, "[%d] %s %s %-8s %s\n", rec.Seq, at, rec.RuleID, rec.Kind, rec.Message)
		}
	})
}
