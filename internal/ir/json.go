package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Parse decodes JSON into a Value.
// Integral numbers (including "60000.0") become Int; fractional numbers fail.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse: trailing data after JSON value")
	}
	return FromAny(raw)
}

// FromAny converts decoded JSON or plain Go values into a Value.
// Accepted inputs: nil, Value, string, bool, signed/unsigned ints,
// json.Number, integral float64, []any, []string, map[string]any.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case json.Number:
		return numberToInt(val)
	case float64:
		return floatToInt(val)
	case []string:
		return StringList(val...), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

func numberToInt(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", n.String(), err)
	}
	return floatToInt(f)
}

func floatToInt(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f > math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("fractional numbers are not supported: %v", f)
	}
	return Int(int64(f)), nil
}

// ToAny converts a Value into plain Go values (string, int64, bool,
// []any, map[string]any, nil). Useful for YAML/CUE encoding.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			if elem == nil {
				continue
			}
			out[k] = ToAny(elem)
		}
		return out
	}
	return nil
}

// Format renders v as compact canonical JSON, or "undefined" for nil.
// Marshal errors cannot happen for well-formed trees; they render as the error text.
func Format(v Value) string {
	if v == nil {
		return "undefined"
	}
	b, err := MarshalCanonical(v)
	if err != nil {
		return "!" + strings.TrimSpace(err.Error())
	}
	return string(b)
}
