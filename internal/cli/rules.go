package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/warden/internal/engine"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
)

// RuleView is one row of `rules list`.
type RuleView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Limit    string `json:"limit"`
	Stored   bool   `json:"stored"`
	Active   bool   `json:"active"`
	InEffect bool   `json:"in_effect"`
}

// AppliedRule reports the outcome of one preset entry.
type AppliedRule struct {
	ID     string `json:"id"`
	Added  bool   `json:"added"`
	Active bool   `json:"active"`
}

// PresetIssue is one problem found while checking a preset.
type PresetIssue struct {
	Rule    string `json:"rule"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List, add, remove and configure rules",
	}
	cmd.AddCommand(newRulesListCommand(rootOpts))
	cmd.AddCommand(newRulesAddCommand(rootOpts))
	cmd.AddCommand(newRulesRemoveCommand(rootOpts))
	cmd.AddCommand(newRulesApplyCommand(rootOpts))
	cmd.AddCommand(newRulesValidateCommand(rootOpts))
	return cmd
}

func newRulesListCommand(opts *RootOptions) *cobra.Command {
	var storedOnly bool
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List known rules and their stored state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, opts, true)
			if err != nil {
				return err
			}
			views := listRules(sess.engine.Rules(), storedOnly)
			if err := sess.Close(ctx); err != nil {
				return WrapExitError(ExitCommandError, "failed to close session", err)
			}
			return opts.formatter(cmd).Success(views, func(w io.Writer) {
				for _, v := range views {
					status := "-"
					switch {
					case v.InEffect:
						status = "in effect"
					case v.Active:
						status = "active"
					case v.Stored:
						status = "inactive"
					}
					fmt.Fprintf(w, "%-34s %-10s %-8s %-9s %s\n", v.ID, v.Kind, v.Limit, status, v.Name)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&storedOnly, "stored", false, "only list rules the subject has")
	return cmd
}

func listRules(rt *rules.Runtime, storedOnly bool) []RuleView {
	views := []RuleView{}
	for _, id := range rt.IDs() {
		def, _ := rt.Definition(id)
		st, _ := rt.State(id)
		_, stored := st.Condition()
		if storedOnly && !stored {
			continue
		}
		views = append(views, RuleView{
			ID:       id,
			Name:     def.Name,
			Kind:     string(def.Kind),
			Limit:    rt.Limit(id).String(),
			Stored:   stored,
			Active:   st.Active(),
			InEffect: stored && st.InEffect(),
		})
	}
	return views
}

func newRulesAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <rule-id>",
		Short:         "Add a rule with its default configuration",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateRule(cmd, opts, args[0], "added", func(rt *rules.Runtime, id string) error {
				return rt.AddRule(id)
			})
		},
	}
}

func newRulesRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <rule-id>",
		Short:         "Remove a rule and its stored data",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateRule(cmd, opts, args[0], "removed", func(rt *rules.Runtime, id string) error {
				return rt.RemoveRule(id)
			})
		},
	}
}

func mutateRule(cmd *cobra.Command, opts *RootOptions, id, verb string, fn func(*rules.Runtime, string) error) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, opts, false)
	if err != nil {
		return err
	}
	if err := fn(sess.engine.Rules(), id); err != nil {
		sess.Close(ctx)
		return WrapExitError(ExitFailure, fmt.Sprintf("rule %s not %s", id, verb), err)
	}
	sess.engine.Drain()
	if err := sess.Close(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to write state", err)
	}
	return opts.formatter(cmd).Success(map[string]string{"rule": id, "result": verb}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s %s\n", id, verb)
	})
}

func newRulesApplyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <preset.cue|dir>",
		Short: "Add and configure rules from a CUE preset",
		Long: `Add and configure rules from a CUE preset.

The whole preset is checked before anything is written; one bad entry
rejects the preset. Rules the subject does not have yet are added first.

Example preset:

  rules: {
  	other_forbid_afk: {
  		active: true
  		data: minutesBeforeAfk: 15
  	}
  	other_log_money: data: logEarnings: true
  }

Examples:
  warden rules apply ./presets/strict.cue --subject 1000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesApply(cmd.Context(), opts, args[0], cmd)
		},
	}
}

func runRulesApply(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	preset, err := LoadPreset(path)
	if err != nil {
		return reportLoadError(out, err)
	}
	out.VerboseLog("loaded %d rule(s) from %d file(s)", len(preset.Rules), preset.FileCount)

	sess, err := openSession(ctx, opts, false)
	if err != nil {
		return err
	}
	rt := sess.engine.Rules()
	if issues := checkPreset(rt, preset); len(issues) > 0 {
		sess.Close(ctx)
		return reportIssues(out, issues)
	}

	applied, err := applyPreset(rt, preset)
	sess.engine.Drain()
	if err != nil {
		sess.Close(ctx)
		return WrapExitError(ExitFailure, "preset not applied", err)
	}
	if err := sess.Close(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to write state", err)
	}
	return out.Success(applied, func(w io.Writer) {
		for _, a := range applied {
			verb := "configured"
			if a.Added {
				verb = "added"
			}
			fmt.Fprintf(w, "✓ %s %s (active=%t)\n", a.ID, verb, a.Active)
		}
	})
}

func newRulesValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <preset.cue|dir>",
		Short: "Check a CUE preset without touching stored state",
		Long: `Check a CUE preset against the rule catalogue without touching stored state.

Data is checked over each rule's defaults. Exit codes:
  0 - preset is valid
  1 - preset has problems
  2 - command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			preset, err := LoadPreset(args[0])
			if err != nil {
				return reportLoadError(out, err)
			}
			eng, err := engine.New(newOfflineHost(opts.cfg.Subject, opts.cfg.PlayerName, opts.Logger()),
				engine.WithLogger(opts.Logger()),
				engine.WithCatalog(opts.cfg.CatalogOptions()),
			)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to create runtime", err)
			}
			if issues := checkPreset(eng.Rules(), preset); len(issues) > 0 {
				return reportIssues(out, issues)
			}
			return out.Success(map[string]int{"rules": len(preset.Rules)}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ preset valid (%d rules)\n", len(preset.Rules))
			})
		},
	}
}

// checkPreset validates every entry against the rule catalogue. Data is
// checked merged over the rule's current customData, or its defaults when
// the rule is not stored.
func checkPreset(rt *rules.Runtime, p *Preset) []PresetIssue {
	var issues []PresetIssue
	for _, pr := range p.Rules {
		def, ok := rt.Definition(pr.ID)
		if !ok {
			issues = append(issues, PresetIssue{Rule: pr.ID, Code: ErrCodeUnknownRule, Message: "unknown rule"})
			continue
		}
		if pr.Enforce != nil && !def.Enforceable {
			issues = append(issues, PresetIssue{Rule: pr.ID, Code: ErrCodeInvalidData, Message: "rule is not enforceable"})
		}
		if pr.Log != nil && !def.Loggable {
			issues = append(issues, PresetIssue{Rule: pr.ID, Code: ErrCodeInvalidData, Message: "rule is not loggable"})
		}
		if pr.Data != nil {
			if err := def.Schema().Validate(mergedData(rt, pr)); err != nil {
				issues = append(issues, PresetIssue{Rule: pr.ID, Code: ErrCodeInvalidData, Message: err.Error()})
			}
		}
	}
	return issues
}

func mergedData(rt *rules.Runtime, pr PresetRule) ir.Object {
	def, _ := rt.Definition(pr.ID)
	base := def.Schema().Defaults()
	if st, ok := rt.State(pr.ID); ok {
		if current := st.CustomData(); current != nil {
			base = current
		}
	}
	merged := ir.CloneObject(base)
	for k, v := range pr.Data {
		merged[k] = ir.Clone(v)
	}
	return merged
}

// applyPreset writes a checked preset.
func applyPreset(rt *rules.Runtime, p *Preset) ([]AppliedRule, error) {
	applied := make([]AppliedRule, 0, len(p.Rules))
	for _, pr := range p.Rules {
		st, _ := rt.State(pr.ID)
		_, stored := st.Condition()
		if !stored {
			if err := rt.AddRule(pr.ID); err != nil {
				return applied, err
			}
		}

		u := rules.Update{Enforce: pr.Enforce, Log: pr.Log}
		if pr.Data != nil {
			u.CustomData = mergedData(rt, pr)
		}
		if err := rt.Configure(pr.ID, u); err != nil {
			return applied, err
		}
		if pr.Active != nil {
			if err := rt.SetActive(pr.ID, *pr.Active); err != nil {
				return applied, err
			}
		}
		applied = append(applied, AppliedRule{ID: pr.ID, Added: !stored, Active: st.Active()})
	}
	return applied, nil
}

func reportLoadError(out *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var le *LoadError
	if errors.As(err, &le) {
		code = le.Code
	}
	if ferr := out.Error(code, err.Error(), nil); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitCommandError, "failed to load preset", err)
}

func reportIssues(out *OutputFormatter, issues []PresetIssue) error {
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = fmt.Sprintf("%s: %s", is.Rule, is.Message)
	}
	msg := fmt.Sprintf("preset has %d problem(s)", len(issues))
	if out.Format == "json" {
		if err := out.Error(issues[0].Code, msg, issues); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out.Writer, "✗ %s\n  %s\n", msg, strings.Join(lines, "\n  "))
	}
	return NewExitError(ExitFailure, msg)
}
