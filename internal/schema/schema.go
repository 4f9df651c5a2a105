package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/warden/internal/ir"
)

const definitionName = "#Data"

// Schema is a compiled data definition.
type Schema struct {
	fields []Field
	index  map[string]int
	source string

	// cue.Context is not safe for concurrent use.
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// Compile builds a schema from fields. Field order is preserved for
// presentation. Every default must itself validate.
func Compile(fields []Field) (*Schema, error) {
	s := &Schema{
		fields: append([]Field(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range s.fields {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		s.index[f.Name] = i
	}

	src, err := render(s.fields)
	if err != nil {
		return nil, err
	}
	s.source = src

	s.ctx = cuecontext.New()
	root := s.ctx.CompileString(src, cue.Filename("data_definition.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile data definition: %w", err)
	}
	s.def = root.LookupPath(cue.ParsePath(definitionName))
	if !s.def.Exists() {
		return nil, fmt.Errorf("compile data definition: %s not found", definitionName)
	}

	if err := s.Validate(s.Defaults()); err != nil {
		return nil, fmt.Errorf("defaults do not validate: %w", err)
	}
	return s, nil
}

// MustCompile panics on error. Intended for static catalogues.
func MustCompile(fields ...Field) *Schema {
	s, err := Compile(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the field list in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Source returns the generated CUE text.
func (s *Schema) Source() string {
	return s.source
}

// Defaults returns a fresh object holding every field's default.
func (s *Schema) Defaults() ir.Object {
	out := make(ir.Object, len(s.fields))
	for _, f := range s.fields {
		out[f.Name] = ir.Clone(f.Default)
	}
	return out
}

// Validate checks a whole customData object. It never mutates data.
func (s *Schema) Validate(data ir.Value) error {
	obj, ok := data.(ir.Object)
	if !ok {
		return invalid("", "customData must be an object, got %s", ir.Kind(data))
	}

	if err := s.unify(obj); err != nil {
		return err
	}

	for _, f := range s.fields {
		if f.Check != nil && !f.Check(obj[f.Name]) {
			return invalid(f.Name, "rejected by field validator")
		}
	}
	return nil
}

// ValidateField checks a single value against the named field, using the
// rest of the defaults as context.
func (s *Schema) ValidateField(name string, v ir.Value) error {
	if _, ok := s.index[name]; !ok {
		return invalid(name, "unknown field")
	}
	candidate := s.Defaults()
	candidate[name] = v
	return s.Validate(candidate)
}

func (s *Schema) unify(obj ir.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded := s.ctx.Encode(ir.ToAny(obj))
	if err := encoded.Err(); err != nil {
		return invalid("", "encode: %v", err)
	}
	unified := s.def.Unify(encoded)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fromCUE(err)
	}
	return nil
}

// fromCUE converts the first CUE error into a ValidationError.
func fromCUE(err error) *ValidationError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return invalid("", "%v", err)
	}
	first := errs[0]
	field := strings.Join(trimDefinition(first.Path()), ".")
	format, args := first.Msg()
	return invalid(field, format, args...)
}

func trimDefinition(path []string) []string {
	if len(path) > 0 && path[0] == definitionName {
		return path[1:]
	}
	return path
}

// render emits the CUE source for fields.
func render(fields []Field) (string, error) {
	var b strings.Builder
	b.WriteString(definitionName)
	b.WriteString(": {\n")
	for _, f := range fields {
		label, err := quote(f.Name)
		if err != nil {
			return "", err
		}
		constraint, err := constraintFor(f)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\t%s: %s\n", label, constraint)
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func constraintFor(f Field) (string, error) {
	switch f.Type {
	case Toggle:
		return "bool", nil
	case Number:
		parts := []string{"int"}
		if f.Min != nil {
			parts = append(parts, fmt.Sprintf(">=%d", *f.Min))
		}
		if f.Max != nil {
			parts = append(parts, fmt.Sprintf("<=%d", *f.Max))
		}
		return strings.Join(parts, " & "), nil
	case String, TextArea:
		return "string", nil
	case ListSelect:
		choices := make([]string, len(f.Options))
		for i, opt := range f.Options {
			q, err := quote(opt.Value)
			if err != nil {
				return "", err
			}
			choices[i] = q
		}
		return strings.Join(choices, " | "), nil
	case StringList:
		return "[...string]", nil
	case MemberNumberList:
		return "[...(int & >0)]", nil
	case RoleSelector:
		return fmt.Sprintf("int & >=%d & <=%d", RoleMin, RoleMax), nil
	}
	return "", fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
}

// quote renders s as a CUE string literal. JSON strings are valid CUE.
func quote(s string) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
