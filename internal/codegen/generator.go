package codegen

import (
	"fmt"

	"github.com/roach88/logicflow/internal/expr"
	"github.com/roach88/logicflow/internal/ir"
)

// Shape says where a step's generated statements run.
type Shape int

const (
	Inline Shape = iota
	Method
	RemoteCall
	OutOfProcess
)

var shapeNames = map[Shape]string{
	Inline:       "inline",
	Method:       "method",
	RemoteCall:   "remote-call",
	OutOfProcess: "out-of-process",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Fragment is the generated code for one step.
//
// Statements assign the step result to expr.ResultVariableName(step.Name)
// and return (nil, err) on failure. The emitter adds the output assignment
// for inline steps and the return statement for the other shapes.
type Fragment struct {
	Statements []string
	Effects    expr.Effects
	Artifacts  Artifacts
}

// Generator produces code for one step kind.
type Generator interface {
	Shape() Shape
	Generate(step ir.Step, ctx expr.Context) (Fragment, error)
}

// Generators maps step kinds to generators. Build it once and treat it as
// read-only.
type Generators map[ir.Kind]Generator

// DefaultGenerators returns a generator for every supported step kind.
func DefaultGenerators() Generators {
	return Generators{
		ir.KindCompose:            composeGenerator{},
		ir.KindInitializeVariable: initializeVariableGenerator{},
		ir.KindIncrementVariable:  incrementVariableGenerator{sign: 1},
		ir.KindDecrementVariable:  incrementVariableGenerator{sign: -1},
		ir.KindSetVariable:        setVariableGenerator{},
		ir.KindParseJSON:          parseJSONGenerator{},
		ir.KindHTTP:               httpGenerator{},
		ir.KindAPIConnection:      apiConnectionGenerator{},
		ir.KindBinding:            bindingGenerator{},
	}
}

// Lookup returns the generator for step, or UNSUPPORTED_STEP_KIND.
func (g Generators) Lookup(step ir.Step) (Generator, error) {
	gen, ok := g[step.Kind]
	if !ok {
		return nil, ir.NewUnsupportedKindError(step.Name, step.Kind)
	}
	return gen, nil
}

// errCheck is the failure branch that follows every fallible statement.
const errCheck = "if err != nil {\n\treturn nil, err\n}"

// ifErr wraps a call returning only an error.
func ifErr(call string) string {
	return "if err := " + call + "; err != nil {\n\treturn nil, err\n}"
}

// stringField returns a required string input.
func stringField(step ir.Step, inputs map[string]any, field string) (string, error) {
	v, ok := inputs[field]
	if !ok {
		return "", ir.NewInvalidInputError(step.Name, field, "is required")
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", ir.NewInvalidInputError(step.Name, field, "must be a non-empty string")
	}
	return s, nil
}

// literalOrJSON renders node either as a Go literal, when it holds no
// expression, or as a lowered JSON template for a *JSON runtime helper.
func literalOrJSON(node any, ctx expr.Context) (code string, literal bool, effects expr.Effects, err error) {
	found, err := expr.ContainsExpression(node)
	if err != nil {
		return "", false, expr.Effects{}, ir.WithStep(err, ctx.Step)
	}
	if !found {
		lit, litErr := goLiteral(ir.Normalize(node))
		if litErr != nil {
			return "", false, expr.Effects{}, ir.NewInvalidInputError(ctx.Step, "value", litErr.Error())
		}
		return lit, true, expr.Effects{}, nil
	}

	tmpl, effects, err := expr.Emit(node, expr.ModeJSON, ctx)
	if err != nil {
		return "", false, expr.Effects{}, err
	}
	return tmpl.Lower(), false, effects, nil
}
