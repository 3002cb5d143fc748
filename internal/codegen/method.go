package codegen

import (
	"fmt"

	"github.com/roach88/logicflow/internal/expr"
	"github.com/roach88/logicflow/internal/ir"
)

// parseJSONGenerator decodes its content. Content that is a JSON string is
// decoded a second time, so both a raw JSON text and an already structured
// value work.
type parseJSONGenerator struct{}

func (parseJSONGenerator) Shape() Shape { return Method }

func (parseJSONGenerator) Generate(step ir.Step, ctx expr.Context) (Fragment, error) {
	content, ok := step.InputObject()["content"]
	if !ok {
		return Fragment{}, ir.NewInvalidInputError(step.Name, "content", "is required")
	}

	tmpl, effects, err := expr.Emit(content, expr.ModeJSON, ctx)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{
		Statements: []string{
			fmt.Sprintf("%s, err := parseJSONContent(%s)", expr.ResultVariableName(step.Name), tmpl.Lower()),
			errCheck,
		},
		Effects: effects,
	}, nil
}
