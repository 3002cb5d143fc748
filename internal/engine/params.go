package engine

import (
	"fmt"

	"github.com/roach88/logicflow/internal/ir"
)

// parameterTypes maps workflow parameter types onto variable types.
var parameterTypes = map[string]string{
	"String":       ir.TypeString,
	"SecureString": ir.TypeString,
	"Int":          ir.TypeInteger,
	"Integer":      ir.TypeInteger,
	"Float":        ir.TypeFloat,
	"Bool":         ir.TypeBoolean,
	"Boolean":      ir.TypeBoolean,
	"Array":        ir.TypeArray,
	"Object":       ir.TypeObject,
	"SecureObject": ir.TypeObject,
}

// resolveParameters merges overrides into the declared defaults. An override
// for a declared parameter is converted to the declared type, so a value
// given as text on the command line still reads as a number or object.
// Undeclared overrides are passed through unchanged.
func resolveParameters(doc *ir.Document, overrides map[string]any) (map[string]any, error) {
	params := doc.DefaultParameters()
	for name, value := range overrides {
		value = ir.Normalize(value)
		decl, declared := doc.Parameters[name]
		typ, known := parameterTypes[decl.Type]
		if declared && known {
			converted, err := ir.ConvertVariable(name, typ, value)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", name, err)
			}
			value = converted
		}
		params[name] = value
	}
	return params, nil
}
