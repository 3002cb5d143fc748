package ir

import (
	"fmt"
	"slices"
	"strconv"
)

// Variable type names accepted by InitializeVariable.
const (
	TypeString  = "String"
	TypeInteger = "Integer"
	TypeFloat   = "Float"
	TypeBoolean = "Boolean"
	TypeArray   = "Array"
	TypeObject  = "Object"
)

// VariableTypes lists the declarable variable types.
var VariableTypes = []string{TypeString, TypeArray, TypeObject, TypeBoolean, TypeInteger, TypeFloat}

// IsVariableType reports whether typ can be declared.
func IsVariableType(typ string) bool {
	return slices.Contains(VariableTypes, typ)
}

// Variable is a declared workflow variable. Type is fixed at declaration.
type Variable struct {
	Name  string
	Type  string
	Value any
}

// Record returns the variable as the object recorded in step outputs.
func (v Variable) Record() map[string]any {
	return map[string]any{"name": v.Name, "type": v.Type, "value": v.Value}
}

// ZeroValue returns the value a variable of typ holds when declared without
// a value.
func ZeroValue(typ string) any {
	switch typ {
	case TypeString:
		return ""
	case TypeInteger:
		return int64(0)
	case TypeFloat:
		return float64(0)
	case TypeBoolean:
		return false
	case TypeArray:
		return []any{}
	case TypeObject:
		return map[string]any{}
	}
	return nil
}

// ConvertVariable coerces a normalized value to the declared type of the
// named variable.
//
// Integral floats become Integer, integers widen to Float, and strings are
// parsed for the scalar, Array and Object types. A nil value becomes the
// type's zero value. Anything else is TYPE_MISMATCH.
func ConvertVariable(name, typ string, v any) (any, error) {
	if !IsVariableType(typ) {
		return nil, NewInvalidInputError("", "type", fmt.Sprintf("unknown variable type '%s'", typ))
	}
	if v == nil {
		return ZeroValue(typ), nil
	}

	mismatch := NewTypeMismatchError(name, typ, TypeName(v))

	switch typ {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInteger:
		switch val := v.(type) {
		case int64:
			return val, nil
		case float64:
			if n, ok := Normalize(val).(int64); ok {
				return n, nil
			}
		case string:
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				return n, nil
			}
		}
	case TypeFloat:
		switch val := v.(type) {
		case float64:
			return val, nil
		case int64:
			return float64(val), nil
		case string:
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f, nil
			}
		}
	case TypeBoolean:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			if b, err := strconv.ParseBool(val); err == nil {
				return b, nil
			}
		}
	case TypeArray, TypeObject:
		if s, ok := v.(string); ok {
			decoded, err := DecodeValue([]byte(s))
			if err != nil {
				return nil, mismatch
			}
			v = decoded
		}
		if typ == TypeArray {
			if arr, ok := v.([]any); ok {
				return arr, nil
			}
		} else if obj, ok := v.(map[string]any); ok {
			return obj, nil
		}
	}
	return nil, mismatch
}

// AddNumber adds delta to current and keeps current's numeric type. An
// Integer only accepts integral deltas.
func AddNumber(name string, current, delta any) (any, error) {
	switch cur := current.(type) {
	case int64:
		switch d := Normalize(delta).(type) {
		case int64:
			return cur + d, nil
		default:
			return nil, NewTypeMismatchError(name, TypeInteger, TypeName(d))
		}
	case float64:
		switch d := delta.(type) {
		case int64:
			return cur + float64(d), nil
		case float64:
			return cur + d, nil
		default:
			return nil, NewTypeMismatchError(name, TypeFloat, TypeName(d))
		}
	}
	return nil, NewTypeMismatchError(name, "Integer or Float", TypeName(current))
}

// Negate returns -v for numbers.
func Negate(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return -n, nil
	case float64:
		return -n, nil
	}
	return nil, fmt.Errorf("cannot negate %s", TypeName(v))
}
