package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/logicflow/internal/expr"
	"github.com/roach88/logicflow/internal/ir"
)

type composeGenerator struct{}

func (composeGenerator) Shape() Shape { return Inline }

func (composeGenerator) Generate(step ir.Step, ctx expr.Context) (Fragment, error) {
	tmpl, effects, err := expr.Emit(step.Inputs, expr.ModeJSON, ctx)
	if err != nil {
		return Fragment{}, err
	}
	result := expr.ResultVariableName(step.Name)
	return Fragment{
		Statements: []string{
			fmt.Sprintf("%s, err := parseJSON(%s)", result, tmpl.Lower()),
			errCheck,
		},
		Effects: effects,
	}, nil
}

type initializeVariableGenerator struct{}

func (initializeVariableGenerator) Shape() Shape { return Inline }

func (initializeVariableGenerator) Generate(step ir.Step, ctx expr.Context) (Fragment, error) {
	decls, err := variableDeclarations(step)
	if err != nil {
		return Fragment{}, err
	}

	var frag Fragment
	records := make([]string, 0, len(decls))
	for _, d := range decls {
		name := strconv.Quote(d.name)
		typ := strconv.Quote(d.typ)

		code, literal, effects, err := literalOrJSON(d.value, ctx)
		if err != nil {
			return Fragment{}, err
		}
		frag.Effects.Merge(effects)

		if literal {
			value, err := ir.ConvertVariable(d.name, d.typ, ir.Normalize(d.value))
			if err != nil {
				return Fragment{}, ir.WithStep(err, step.Name)
			}
			if code, err = goLiteral(value); err != nil {
				return Fragment{}, ir.NewInvalidInputError(step.Name, "value", err.Error())
			}
			frag.Statements = append(frag.Statements, fmt.Sprintf("state.declare(%s, %s, %s)", name, typ, code))
		} else {
			frag.Statements = append(frag.Statements, ifErr(fmt.Sprintf("state.declareJSON(%s, %s, %s)", name, typ, code)))
		}
		records = append(records, fmt.Sprintf("state.variable(%s)", name))
	}

	frag.Statements = append(frag.Statements, fmt.Sprintf("%s := []any{%s}",
		expr.ResultVariableName(step.Name), strings.Join(records, ", ")))
	return frag, nil
}

type variableDecl struct {
	name  string
	typ   string
	value any
}

// variableDeclarations reads the "variables" list of an InitializeVariable
// step.
func variableDeclarations(step ir.Step) ([]variableDecl, error) {
	inputs := step.InputObject()
	list, ok := inputs["variables"].([]any)
	if !ok || len(list) == 0 {
		return nil, ir.NewInvalidInputError(step.Name, "variables", "must be a non-empty array")
	}

	decls := make([]variableDecl, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		field := fmt.Sprintf("variables[%d]", i)
		if !ok {
			return nil, ir.NewInvalidInputError(step.Name, field, "must be an object")
		}
		name, _ := obj["name"].(string)
		if name == "" {
			return nil, ir.NewInvalidInputError(step.Name, field+".name", "is required")
		}
		typ, _ := obj["type"].(string)
		if !ir.IsVariableType(typ) {
			return nil, ir.NewInvalidInputError(step.Name, field+".type",
				fmt.Sprintf("must be one of %s", strings.Join(ir.VariableTypes, ", ")))
		}
		decls = append(decls, variableDecl{name: name, typ: typ, value: obj["value"]})
	}
	return decls, nil
}

// incrementVariableGenerator adds (sign 1) or subtracts (sign -1) a delta.
type incrementVariableGenerator struct {
	sign int
}

func (incrementVariableGenerator) Shape() Shape { return Inline }

func (g incrementVariableGenerator) Generate(step ir.Step, ctx expr.Context) (Fragment, error) {
	inputs := step.InputObject()
	name, err := stringField(step, inputs, "name")
	if err != nil {
		return Fragment{}, err
	}

	delta, ok := inputs["value"]
	if !ok {
		delta = int64(1)
	}
	code, literal, effects, err := literalOrJSON(delta, ctx)
	if err != nil {
		return Fragment{}, err
	}

	var stmt string
	if literal {
		switch ir.Normalize(delta).(type) {
		case int64, float64:
		default:
			return Fragment{}, ir.NewInvalidInputError(step.Name, "value", "must be a number")
		}
		stmt = fmt.Sprintf("state.add(%s, %s, %d)", strconv.Quote(name), code, g.sign)
	} else {
		stmt = fmt.Sprintf("state.addJSON(%s, %s, %d)", strconv.Quote(name), code, g.sign)
	}

	return Fragment{
		Statements: []string{
			ifErr(stmt),
			fmt.Sprintf("%s := state.variable(%s)", expr.ResultVariableName(step.Name), strconv.Quote(name)),
		},
		Effects: effects,
	}, nil
}

type setVariableGenerator struct{}

func (setVariableGenerator) Shape() Shape { return Inline }

func (setVariableGenerator) Generate(step ir.Step, ctx expr.Context) (Fragment, error) {
	inputs := step.InputObject()
	name, err := stringField(step, inputs, "name")
	if err != nil {
		return Fragment{}, err
	}

	code, literal, effects, err := literalOrJSON(inputs["value"], ctx)
	if err != nil {
		return Fragment{}, err
	}
	call := "state.assignJSON"
	if literal {
		call = "state.assign"
	}

	return Fragment{
		Statements: []string{
			ifErr(fmt.Sprintf("%s(%s, %s)", call, strconv.Quote(name), code)),
			fmt.Sprintf("%s := state.variable(%s)", expr.ResultVariableName(step.Name), strconv.Quote(name)),
		},
		Effects: effects,
	}, nil
}
