package rules

import "errors"

var (
	// ErrUnknownRule is returned for ids with no registered definition.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrRuleExists is returned when adding a rule that is already stored.
	ErrRuleExists = errors.New("rule already exists")

	// ErrRuleNotStored is returned when configuring a rule that was never added.
	ErrRuleNotStored = errors.New("rule not stored")

	// ErrDisabled is returned while the rules category is disabled.
	ErrDisabled = errors.New("rules category disabled")

	// ErrMissingLiveValue marks a tick skipped because the host has not
	// initialized the value the rule forces. It is logged, never returned
	// to callers.
	ErrMissingLiveValue = errors.New("missing live value")
)
