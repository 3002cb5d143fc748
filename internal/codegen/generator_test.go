package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicflow/internal/expr"
	"github.com/roach88/logicflow/internal/ir"
)

func TestDefaultGeneratorShapes(t *testing.T) {
	gens := DefaultGenerators()

	expected := map[ir.Kind]Shape{
		ir.KindCompose:            Inline,
		ir.KindInitializeVariable: Inline,
		ir.KindIncrementVariable:  Inline,
		ir.KindDecrementVariable:  Inline,
		ir.KindSetVariable:        Inline,
		ir.KindParseJSON:          Method,
		ir.KindHTTP:               RemoteCall,
		ir.KindAPIConnection:      RemoteCall,
		ir.KindBinding:            OutOfProcess,
	}
	require.Len(t, gens, len(expected))
	for kind, shape := range expected {
		assert.Equal(t, shape, gens[kind].Shape(), "kind %s", kind)
	}
}

func TestLookupUnsupportedKind(t *testing.T) {
	_, err := DefaultGenerators().Lookup(ir.Step{Name: "Loop", Kind: "Foreach"})
	require.Error(t, err)
	assert.True(t, ir.IsUnsupportedStepKind(err))
	assert.Contains(t, err.Error(), "step=Loop")
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "out-of-process", OutOfProcess.String())
	assert.Equal(t, "Shape(9)", Shape(9).String())
}

func TestComposeStatements(t *testing.T) {
	step := ir.Step{Name: "Build", Kind: ir.KindCompose, Inputs: map[string]any{"n": int64(1)}}

	frag, err := composeGenerator{}.Generate(step, expr.Context{Step: "Build"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`resultOfBuild, err := parseJSON("{\"n\":1}")`,
		errCheck,
	}, frag.Statements)
}

func TestIncrementDefaultsToOne(t *testing.T) {
	step := ir.Step{Name: "Bump", Kind: ir.KindIncrementVariable, Inputs: map[string]any{"name": "x"}}

	frag, err := incrementVariableGenerator{sign: 1}.Generate(step, expr.Context{Step: "Bump"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		ifErr(`state.add("x", int64(1), 1)`),
		`resultOfBump := state.variable("x")`,
	}, frag.Statements)
}

func TestIncrementRejectsNonNumber(t *testing.T) {
	step := ir.Step{Name: "Bump", Kind: ir.KindIncrementVariable, Inputs: map[string]any{"name": "x", "value": "two"}}

	_, err := incrementVariableGenerator{sign: 1}.Generate(step, expr.Context{Step: "Bump"})
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeInvalidInput, ir.CodeOf(err))
}

func TestInitializeVariableErrors(t *testing.T) {
	tests := []struct {
		name   string
		inputs any
		code   ir.ErrorCode
	}{
		{"missing list", map[string]any{}, ir.ErrCodeInvalidInput},
		{"entry not object", map[string]any{"variables": []any{"x"}}, ir.ErrCodeInvalidInput},
		{"missing name", map[string]any{"variables": []any{map[string]any{"type": "String"}}}, ir.ErrCodeInvalidInput},
		{"unknown type", map[string]any{"variables": []any{map[string]any{"name": "x", "type": "Decimal"}}}, ir.ErrCodeInvalidInput},
		{"literal mismatch", map[string]any{"variables": []any{map[string]any{"name": "x", "type": "Integer", "value": "abc"}}}, ir.ErrCodeTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := ir.Step{Name: "Init", Kind: ir.KindInitializeVariable, Inputs: tt.inputs}
			_, err := initializeVariableGenerator{}.Generate(step, expr.Context{Step: "Init"})
			require.Error(t, err)
			assert.Equal(t, tt.code, ir.CodeOf(err))
			assert.Contains(t, err.Error(), "step=Init")
		})
	}
}

func TestHTTPRequiresMethodAndURI(t *testing.T) {
	step := ir.Step{Name: "Get", Kind: ir.KindHTTP, Inputs: map[string]any{"method": "GET"}}

	_, err := httpGenerator{}.Generate(step, expr.Context{Step: "Get"})
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeInvalidInput, ir.CodeOf(err))
	assert.Contains(t, err.Error(), "uri")
}

func TestBindingUnknownType(t *testing.T) {
	step := ir.Step{Name: "Out", Kind: ir.KindBinding, Inputs: map[string]any{"name": "msg", "type": "smtp"}}

	_, err := bindingGenerator{}.Generate(step, expr.Context{Step: "Out", OutOfProcess: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob, eventHub, queue, serviceBus")
}

func TestBindingConnectionSetting(t *testing.T) {
	step := ir.Step{Name: "Out", Kind: ir.KindBinding, Inputs: map[string]any{
		"name":       "msg",
		"type":       "serviceBus",
		"connection": "ServiceBusConnection",
		"content":    "hello",
	}}

	frag, err := bindingGenerator{}.Generate(step, expr.Context{Step: "Out", OutOfProcess: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"ServiceBusConnection"}, frag.Artifacts.AppSettings)
	assert.Equal(t, "v1.7.0", frag.Artifacts.Extensions["github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"])
	assert.Equal(t, `msgParam, err := parseJSON("\"hello\"")`, frag.Statements[0])
	assert.Equal(t, `resultOfOut := msgParam`, frag.Statements[2])
}

func TestPrologue(t *testing.T) {
	assert.Nil(t, prologue(nil))

	one := prologue([]expr.Param{{Type: "string", Name: "guid"}})
	assert.Equal(t, []string{"var guid string", ifErr("ctx.GetInput(&guid)")}, one)

	many := prologue([]expr.Param{{Type: "any", Name: "outputsA"}, {Type: "string", Name: "utcNow"}})
	require.Len(t, many, 5)
	assert.Equal(t, "var parameters []any", many[0])
	assert.Equal(t, "outputsA := parameters[0]", many[3])
	assert.Equal(t, "utcNow, _ := parameters[1].(string)", many[4])
}

func TestActivityCall(t *testing.T) {
	assert.Equal(t, []string{
		"var resultOfOut any",
		ifErr(`ctx.CallActivity("Out").Await(&resultOfOut)`),
	}, activityCall("Out", "resultOfOut", nil))

	lines := activityCall("Out", "resultOfOut", []expr.Param{{Name: "outputsA", Source: `state.Outputs["A"]`}})
	assert.Equal(t, ifErr(`ctx.CallActivity("Out", task.WithActivityInput(state.Outputs["A"])).Await(&resultOfOut)`), lines[1])
}
