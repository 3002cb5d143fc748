package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicflow/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateGraphValid(t *testing.T) {
	doc := &ir.Document{
		Triggers: []ir.Trigger{{
			Name:       "Recurrence",
			Kind:       ir.KindRecurrence,
			Recurrence: &ir.Recurrence{Frequency: "Minute", Interval: 1},
		}},
		Steps: []ir.Step{
			{Name: "Init", Kind: ir.KindInitializeVariable, Inputs: map[string]any{
				"variables": []any{map[string]any{"name": "x", "type": "Integer", "value": int64(5)}},
			}},
			{Name: "Call", Kind: ir.KindHTTP, Inputs: map[string]any{"method": "GET", "uri": "https://example.com"},
				Dependencies: []ir.Dependency{{Name: "Init"}}},
		},
	}

	assert.Empty(t, ValidateGraph(doc))
}

func TestValidateGraphDuplicateAndEmptyNames(t *testing.T) {
	doc := &ir.Document{Steps: []ir.Step{
		{Name: "A", Kind: ir.KindCompose},
		{Name: "A", Kind: ir.KindCompose},
		{Name: "  ", Kind: ir.KindCompose},
	}}

	errs := ValidateGraph(doc)
	assert.Equal(t, []string{ErrDuplicateName, ErrStepNameEmpty}, codes(errs))
	assert.Equal(t, "actions[1].name", errs[0].Field)
}

func TestValidateGraphDanglingEdge(t *testing.T) {
	doc := &ir.Document{Steps: []ir.Step{
		{Name: "A", Kind: ir.KindCompose, Dependencies: []ir.Dependency{{Name: "Ghost"}}},
	}}

	errs := ValidateGraph(doc)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownDependency, errs[0].Code)
	assert.Contains(t, errs[0].Message, `"Ghost"`)
	assert.Equal(t, "[E103] actions[0].runAfter.Ghost: step \"A\" depends on unknown step \"Ghost\"", errs[0].Error())
}

func TestValidateGraphUnsupportedKind(t *testing.T) {
	doc := &ir.Document{Steps: []ir.Step{{Name: "Loop", Kind: "Foreach"}}}

	errs := ValidateGraph(doc)
	assert.Equal(t, []string{ErrUnsupportedKind}, codes(errs))
}

func TestValidateGraphRequiredInputs(t *testing.T) {
	doc := &ir.Document{Steps: []ir.Step{
		{Name: "Call", Kind: ir.KindHTTP, Inputs: map[string]any{"method": "GET"}},
		{Name: "Out", Kind: ir.KindBinding, Inputs: map[string]any{"name": "q"}},
		{Name: "Parse", Kind: ir.KindParseJSON, Inputs: map[string]any{}},
	}}

	errs := ValidateGraph(doc)
	require.Len(t, errs, 3)
	assert.Equal(t, "actions[0].inputs.uri", errs[0].Field)
	assert.Equal(t, "actions[1].inputs.type", errs[1].Field)
	assert.Equal(t, "actions[2].inputs.content", errs[2].Field)
}

func TestValidateGraphVariableDeclarations(t *testing.T) {
	doc := &ir.Document{Steps: []ir.Step{
		{Name: "Empty", Kind: ir.KindInitializeVariable, Inputs: map[string]any{}},
		{Name: "Bad", Kind: ir.KindInitializeVariable, Inputs: map[string]any{
			"variables": []any{map[string]any{"name": "x", "type": "Decimal"}},
		}},
	}}

	errs := ValidateGraph(doc)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrInvalidVariable, errs[0].Code)
	assert.Equal(t, "actions[1].inputs.variables[0].type", errs[1].Field)
}

func TestValidateGraphTriggers(t *testing.T) {
	doc := &ir.Document{Triggers: []ir.Trigger{
		{Name: "", Kind: ir.KindManual},
		{Name: "Yearly", Kind: ir.KindRecurrence, Recurrence: &ir.Recurrence{Frequency: "Year", Interval: 1}},
	}}

	errs := ValidateGraph(doc)
	assert.Equal(t, []string{ErrTriggerNameEmpty, ErrInvalidRecurrence}, codes(errs))
}

func TestValidationErrorWithLine(t *testing.T) {
	err := ValidationError{Field: "actions", Message: "bad", Code: "E101", Line: 4}
	assert.Equal(t, "[E101] line 4: actions: bad", err.Error())
}
