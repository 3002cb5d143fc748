package codegen

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/logicflow/internal/expr"
	"github.com/roach88/logicflow/internal/ir"
)

// DefaultConnectionSetting is the app setting a binding uses when its inputs
// name no connection.
const DefaultConnectionSetting = "AzureWebJobsStorage"

// BindingExtension is the client module an output binding type needs.
type BindingExtension struct {
	Module  string
	Version string
}

// bindingExtensions maps binding types to the SDK module that delivers them.
var bindingExtensions = map[string]BindingExtension{
	"queue":      {Module: "github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue", Version: "v1.0.0"},
	"blob":       {Module: "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob", Version: "v1.6.1"},
	"eventHub":   {Module: "github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs", Version: "v1.2.0"},
	"serviceBus": {Module: "github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus", Version: "v1.7.0"},
}

// BindingTypes returns the supported binding types, sorted.
func BindingTypes() []string {
	return slices.Sorted(maps.Keys(bindingExtensions))
}

// LookupBindingExtension returns the extension for a binding type.
func LookupBindingExtension(bindingType string) (BindingExtension, bool) {
	ext, ok := bindingExtensions[bindingType]
	return ext, ok
}

// bindingGenerator assigns the resolved content to the binding's output
// parameter and returns it. The host delivers the returned value.
type bindingGenerator struct{}

func (bindingGenerator) Shape() Shape { return OutOfProcess }

func (bindingGenerator) Generate(step ir.Step, ctx expr.Context) (Fragment, error) {
	inputs := step.InputObject()
	name, err := stringField(step, inputs, "name")
	if err != nil {
		return Fragment{}, err
	}
	bindingType, err := stringField(step, inputs, "type")
	if err != nil {
		return Fragment{}, err
	}
	ext, ok := bindingExtensions[bindingType]
	if !ok {
		return Fragment{}, ir.NewInvalidInputError(step.Name, "type",
			fmt.Sprintf("binding type '%s' is not supported; use one of %s", bindingType, strings.Join(BindingTypes(), ", ")))
	}

	connection := DefaultConnectionSetting
	if c, ok := inputs["connection"].(string); ok && c != "" {
		connection = c
	}

	tmpl, effects, err := expr.Emit(inputs["content"], expr.ModeJSON, ctx)
	if err != nil {
		return Fragment{}, err
	}

	param := expr.ParameterVariableName(name)
	var frag Fragment
	frag.Statements = []string{
		fmt.Sprintf("%s, err := parseJSON(%s)", param, tmpl.Lower()),
		errCheck,
		fmt.Sprintf("%s := %s", expr.ResultVariableName(step.Name), param),
	}
	frag.Effects = effects
	frag.Artifacts.AddExtension(ext.Module, ext.Version)
	frag.Artifacts.AddAppSetting(connection)
	return frag, nil
}
