package rules

import (
	"fmt"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/schema"
)

// FieldMinimumPermittedRole is the conventional roleSelector field that
// exempts sufficiently privileged actors.
const FieldMinimumPermittedRole = "minimumPermittedRole"

// Kind is the closed set of rule types.
type Kind string

const (
	KindAlteration Kind = "alteration"
	KindBlock      Kind = "block"
	KindSpeech     Kind = "speech"
	KindSetting    Kind = "setting"
	KindRestraint  Kind = "restraint"
	KindOther      Kind = "other"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAlteration, KindBlock, KindSpeech, KindSetting, KindRestraint, KindOther:
		return true
	}
	return false
}

// TriggerTexts are templates rendered when a rule triggers. PLAYER_NAME and
// the caller's substitution keys are replaced. Empty texts are skipped.
type TriggerTexts struct {
	Log      string
	Announce string
	InfoBeep string

	AttemptLog      string
	AttemptAnnounce string
	AttemptInfoBeep string
}

// Definition describes one rule. Callbacks are optional.
type Definition struct {
	Name             string
	ShortDescription string
	LongDescription  string
	Kind             Kind

	// Enforceable rules honour the "enforce" flag; Loggable ones the "log" flag.
	Enforceable bool
	Loggable    bool

	DefaultLimit conditions.Limit
	Triggers     TriggerTexts

	DataDefinition []schema.Field

	// InternalDataDefault seeds internalData on add, and replaces stored
	// internalData that fails InternalDataValidate.
	InternalDataDefault  func(s *State) ir.Value
	InternalDataValidate func(v ir.Value) bool

	Init        func(s *State)
	Load        func(s *State)
	Unload      func(s *State)
	Reload      func(s *State)
	StateChange func(s *State, inEffect bool)
	// Tick runs once per sweep while the rule is active and reports whether
	// it changed observable state.
	Tick func(s *State) bool

	schema *schema.Schema
}

// Validate implements registry.Validator. It compiles the data definition.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("missing name")
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", d.Kind)
	}
	if d.InternalDataValidate != nil && d.InternalDataDefault == nil {
		return fmt.Errorf("internal data validator without a default")
	}
	s, err := schema.Compile(d.DataDefinition)
	if err != nil {
		return fmt.Errorf("data definition: %w", err)
	}
	d.schema = s
	return nil
}

// Schema returns the compiled data definition. Only valid after
// registration.
func (d *Definition) Schema() *schema.Schema {
	return d.schema
}

// hasField reports whether the data definition declares name.
func (d *Definition) hasField(name string) bool {
	_, ok := d.schema.Field(name)
	return ok
}
