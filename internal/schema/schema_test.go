package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/ir"
)

func settingFields() []Field {
	return []Field{
		{Name: "value", Type: Toggle, Default: ir.Bool(true), Description: "Forbid picking locks"},
		{Name: "restore", Type: Toggle, Default: ir.Bool(true), Description: "Restore previous value when rule ends"},
	}
}

func TestCompile_Defaults(t *testing.T) {
	s, err := Compile(settingFields())
	require.NoError(t, err)

	assert.Equal(t, ir.Object{"value": ir.Bool(true), "restore": ir.Bool(true)}, s.Defaults())
	assert.Contains(t, s.Source(), `"value": bool`)

	// Defaults are fresh copies.
	d := s.Defaults()
	d["value"] = ir.Bool(false)
	assert.Equal(t, ir.Bool(true), s.Defaults()["value"])
}

func TestValidate(t *testing.T) {
	s := MustCompile(
		Field{Name: "minutesBeforeAfk", Type: Number, Default: ir.Int(10), Min: Bound(1), Max: Bound(1440)},
		Field{Name: "reminderText", Type: StringList, Default: ir.Array{}},
		Field{Name: "mode", Type: ListSelect, Default: ir.String("yes"), Options: []Option{{Value: "yes"}, {Value: "no"}}},
		Field{Name: "minimumPermittedRole", Type: RoleSelector, Default: ir.Int(3)},
		Field{Name: "members", Type: MemberNumberList, Default: ir.Array{}},
	)

	valid := ir.Object{
		"minutesBeforeAfk":     ir.Int(15),
		"reminderText":         ir.StringList("Be good"),
		"mode":                 ir.String("no"),
		"minimumPermittedRole": ir.Int(2),
		"members":              ir.Array{ir.Int(12345)},
	}
	require.NoError(t, s.Validate(valid))

	tests := []struct {
		name  string
		patch func(ir.Object)
	}{
		{"below minimum", func(o ir.Object) { o["minutesBeforeAfk"] = ir.Int(0) }},
		{"above maximum", func(o ir.Object) { o["minutesBeforeAfk"] = ir.Int(5000) }},
		{"wrong type", func(o ir.Object) { o["minutesBeforeAfk"] = ir.String("ten") }},
		{"list of ints", func(o ir.Object) { o["reminderText"] = ir.Array{ir.Int(1)} }},
		{"unknown option", func(o ir.Object) { o["mode"] = ir.String("maybe") }},
		{"role out of range", func(o ir.Object) { o["minimumPermittedRole"] = ir.Int(9) }},
		{"non-positive member", func(o ir.Object) { o["members"] = ir.Array{ir.Int(0)} }},
		{"missing field", func(o ir.Object) { delete(o, "mode") }},
		{"extra field", func(o ir.Object) { o["surprise"] = ir.Bool(true) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := ir.CloneObject(valid)
			tt.patch(candidate)

			err := s.Validate(candidate)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidate_NotAnObject(t *testing.T) {
	s := MustCompile(settingFields()...)

	err := s.Validate(ir.Bool(true))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, CodeValidationFailure, ve.Code)

	assert.ErrorIs(t, s.Validate(nil), ErrValidation)
}

func TestValidate_FieldCheck(t *testing.T) {
	s := MustCompile(Field{
		Name:    "reminderFrequency",
		Type:    Number,
		Default: ir.Int(15),
		Check: func(v ir.Value) bool {
			n, ok := v.(ir.Int)
			return ok && n%5 == 0
		},
	})

	require.NoError(t, s.Validate(ir.Object{"reminderFrequency": ir.Int(30)}))

	err := s.Validate(ir.Object{"reminderFrequency": ir.Int(31)})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "reminderFrequency", ve.Field)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	s := MustCompile(settingFields()...)
	candidate := ir.Object{"value": ir.Bool(false), "restore": ir.Int(1)}
	before := ir.Format(candidate)

	require.Error(t, s.Validate(candidate))
	assert.Equal(t, before, ir.Format(candidate))
}

func TestValidateField(t *testing.T) {
	s := MustCompile(settingFields()...)

	assert.NoError(t, s.ValidateField("value", ir.Bool(false)))
	assert.ErrorIs(t, s.ValidateField("value", ir.String("false")), ErrValidation)
	assert.ErrorIs(t, s.ValidateField("nope", ir.Bool(false)), ErrValidation)
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"unknown type", []Field{{Name: "x", Type: "color", Default: ir.String("red")}}},
		{"missing default", []Field{{Name: "x", Type: Toggle}}},
		{"duplicate", []Field{
			{Name: "x", Type: Toggle, Default: ir.Bool(true)},
			{Name: "x", Type: Toggle, Default: ir.Bool(false)},
		}},
		{"listSelect without options", []Field{{Name: "x", Type: ListSelect, Default: ir.String("a")}}},
		{"default outside options", []Field{{Name: "x", Type: ListSelect, Default: ir.String("c"), Options: []Option{{Value: "a"}}}}},
		{"default below bound", []Field{{Name: "x", Type: Number, Default: ir.Int(0), Min: Bound(1)}}},
		{"bounds on toggle", []Field{{Name: "x", Type: Toggle, Default: ir.Bool(true), Min: Bound(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.fields)
			assert.Error(t, err)
		})
	}
}

func TestCompile_Empty(t *testing.T) {
	s, err := Compile(nil)
	require.NoError(t, err)
	assert.NoError(t, s.Validate(ir.Object{}))
	assert.Error(t, s.Validate(ir.Object{"x": ir.Int(1)}))
}
