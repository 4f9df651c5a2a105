package rules

import (
	"fmt"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/schema"
)

// ToggleSetting describes a boolean host setting a rule forces.
type ToggleSetting struct {
	// Setting is the human-readable setting name.
	Setting          string
	Key              string
	ShortDescription string
	DefaultValue     bool
	DefaultLimit     conditions.Limit
}

func settingDefinition(setting, short string, limit conditions.Limit) *Definition {
	if short == "" {
		short = "Existing setting"
	}
	return &Definition{
		Name:             fmt.Sprintf("Force '%s'", setting),
		Kind:             KindSetting,
		Enforceable:      true,
		Loggable:         false,
		ShortDescription: short,
		LongDescription:  fmt.Sprintf("This rule forces PLAYER_NAME's setting '%s' to a configurable value and prevents changing it.", setting),
		DefaultLimit:     limit,
		Triggers: TriggerTexts{
			InfoBeep: fmt.Sprintf("Rule changed your '%s' setting", setting),
		},
	}
}

// Definition builds the rule. On entering effect the live value is saved
// in internalData; on leaving effect it is written back when "restore" is
// set. While enforced, each tick corrects drift and triggers. A setting the
// host has not initialized yet is left alone for that tick.
func (t ToggleSetting) Definition() *Definition {
	key := t.Key
	def := settingDefinition(t.Setting, t.ShortDescription, t.DefaultLimit)
	def.LongDescription += " Optionally the previous value is restored when the rule ends."
	def.DataDefinition = []schema.Field{
		{Name: "value", Type: schema.Toggle, Default: ir.Bool(t.DefaultValue), Description: t.Setting},
		{Name: "restore", Type: schema.Toggle, Default: ir.Bool(true), Description: "Restore previous value when rule ends"},
	}
	def.InternalDataValidate = func(v ir.Value) bool {
		_, ok := v.(ir.Bool)
		return ok
	}
	def.InternalDataDefault = func(s *State) ir.Value {
		v, _ := s.Host().Bool(key)
		return ir.Bool(v)
	}
	def.StateChange = func(s *State, inEffect bool) {
		if inEffect {
			if current, ok := s.Host().Bool(key); ok {
				s.SetInternalData(ir.Bool(current))
			}
			return
		}
		if restore, _ := s.CustomData().Bool("restore"); !restore {
			return
		}
		if old, ok := s.InternalData().(ir.Bool); ok {
			s.Host().SetBool(key, bool(old))
			s.Host().Sync()
		}
	}
	def.Tick = func(s *State) bool {
		if !s.IsEnforced() {
			return false
		}
		want, ok := s.CustomData().Bool("value")
		if !ok {
			return false
		}
		current, ok := s.Host().Bool(key)
		if !ok {
			s.Logger().Warn("skipping tick", "setting", key, "error", ErrMissingLiveValue)
			return false
		}
		if current == want {
			return false
		}
		s.Host().SetBool(key, want)
		s.Trigger(nil)
		s.Host().Sync()
		return true
	}
	return def
}

// SelectSetting forces an integer host setting chosen from a list.
type SelectSetting struct {
	Setting      string
	Key          string
	DefaultLimit conditions.Limit
	Options      []schema.Option
	Default      string
	// Values maps option values to the host's integer encoding. Options
	// missing from Values map to 0.
	Values map[string]int64
}

// Definition builds the rule.
func (t SelectSetting) Definition() *Definition {
	key := t.Key
	values := t.Values
	def := settingDefinition(t.Setting, "", t.DefaultLimit)
	def.DataDefinition = []schema.Field{
		{Name: "value", Type: schema.ListSelect, Default: ir.String(t.Default), Options: t.Options, Description: t.Setting},
	}
	def.Tick = func(s *State) bool {
		if !s.IsEnforced() {
			return false
		}
		choice, ok := s.CustomData().String("value")
		if !ok {
			return false
		}
		want := values[choice]
		current, ok := s.Host().Int(key)
		if !ok {
			s.Logger().Warn("skipping tick", "setting", key, "error", ErrMissingLiveValue)
			return false
		}
		if current == want {
			return false
		}
		s.Host().SetInt(key, want)
		s.Trigger(nil)
		s.Host().Sync()
		return true
	}
	return def
}
