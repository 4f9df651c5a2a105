package schema

import (
	"fmt"

	"github.com/roach88/warden/internal/ir"
)

// FieldType is the closed set of configurable field kinds.
type FieldType string

const (
	Toggle           FieldType = "toggle"
	Number           FieldType = "number"
	String           FieldType = "string"
	TextArea         FieldType = "textArea"
	ListSelect       FieldType = "listSelect"
	StringList       FieldType = "stringList"
	MemberNumberList FieldType = "memberNumberList"
	RoleSelector     FieldType = "roleSelector"
)

// Role bounds accepted by RoleSelector fields (self .. public).
const (
	RoleMin = 0
	RoleMax = 7
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case Toggle, Number, String, TextArea, ListSelect, StringList, MemberNumberList, RoleSelector:
		return true
	}
	return false
}

// Option is one choice of a ListSelect field.
type Option struct {
	Value string
	Label string
}

// Field is one entry of a data definition.
type Field struct {
	Name        string
	Type        FieldType
	Default     ir.Value
	Description string

	// Options lists the choices of a ListSelect field.
	Options []Option

	// Min and Max bound Number fields when set.
	Min *int64
	Max *int64

	// Check is an optional extra validator run after the CUE check.
	Check func(ir.Value) bool
}

// Bound returns a pointer to n, for Field.Min and Field.Max.
func Bound(n int64) *int64 {
	return &n
}

func (f Field) validate() error {
	if f.Name == "" {
		return fmt.Errorf("field with empty name")
	}
	if !f.Type.Valid() {
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}
	if f.Default == nil {
		return fmt.Errorf("field %q: missing default", f.Name)
	}
	if f.Type == ListSelect && len(f.Options) == 0 {
		return fmt.Errorf("field %q: listSelect needs options", f.Name)
	}
	if f.Type != ListSelect && len(f.Options) > 0 {
		return fmt.Errorf("field %q: options are only valid on listSelect", f.Name)
	}
	if (f.Min != nil || f.Max != nil) && f.Type != Number {
		return fmt.Errorf("field %q: bounds are only valid on number", f.Name)
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("field %q: min %d exceeds max %d", f.Name, *f.Min, *f.Max)
	}
	return nil
}
