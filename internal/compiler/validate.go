package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/logicflow/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Step errors (E101-E109)
	ErrStepNameEmpty     = "E101" // step name is required
	ErrDuplicateName     = "E102" // duplicate step name
	ErrUnknownDependency = "E103" // runAfter names a step that does not exist
	ErrUnsupportedKind   = "E104" // step kind has no generator
	ErrInvalidVariable   = "E105" // variable declaration is malformed
	ErrInvalidStepInputs = "E106" // required input field missing

	// Trigger errors (E110-E119)
	ErrTriggerNameEmpty  = "E110" // trigger name is required
	ErrInvalidRecurrence = "E111" // recurrence cannot be scheduled
)

// ValidationError represents a structural validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// stepKinds is the closed set of step kinds the dispatchers understand.
var stepKinds = map[ir.Kind]bool{
	ir.KindCompose:            true,
	ir.KindHTTP:               true,
	ir.KindInitializeVariable: true,
	ir.KindIncrementVariable:  true,
	ir.KindDecrementVariable:  true,
	ir.KindSetVariable:        true,
	ir.KindAPIConnection:      true,
	ir.KindBinding:            true,
	ir.KindParseJSON:          true,
}

// variableTypes are the declared types InitializeVariable accepts.
var variableTypes = map[string]bool{
	"String":  true,
	"Array":   true,
	"Object":  true,
	"Boolean": true,
	"Integer": true,
	"Float":   true,
}

// ValidateGraph checks the bound document for structural problems.
// Returns all errors found (does not fail-fast). Cycles are reported
// separately by AnalyzeGraph.
func ValidateGraph(doc *ir.Document) []ValidationError {
	var errs []ValidationError

	names := make(map[string]bool, len(doc.Steps))
	for i, step := range doc.Steps {
		field := fmt.Sprintf("actions[%d]", i)

		// E101: name is required
		if strings.TrimSpace(step.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "step name is required and must be non-empty",
				Code:    ErrStepNameEmpty,
			})
		}

		// E102: duplicate step name
		if names[step.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate step name: %q", step.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[step.Name] = true

		// E104: unsupported kind
		if !stepKinds[step.Kind] {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("step %q has unsupported kind %q", step.Name, step.Kind),
				Code:    ErrUnsupportedKind,
			})
		}

		errs = append(errs, validateStepInputs(step, field)...)
	}

	// E103: dangling edges, checked once every name is known
	for i, step := range doc.Steps {
		for _, dep := range step.Dependencies {
			if !names[dep.Name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("actions[%d].runAfter.%s", i, dep.Name),
					Message: fmt.Sprintf("step %q depends on unknown step %q", step.Name, dep.Name),
					Code:    ErrUnknownDependency,
				})
			}
		}
	}

	for i, trigger := range doc.Triggers {
		field := fmt.Sprintf("triggers[%d]", i)

		// E110: name is required
		if strings.TrimSpace(trigger.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "trigger name is required and must be non-empty",
				Code:    ErrTriggerNameEmpty,
			})
		}

		// E111: recurrence must convert to a schedule
		if trigger.Kind == ir.KindRecurrence {
			if _, err := CronExpression(trigger.Recurrence); err != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".recurrence",
					Message: err.Error(),
					Code:    ErrInvalidRecurrence,
				})
			}
		}
	}

	return errs
}

// validateStepInputs checks the input fields each kind cannot run without.
func validateStepInputs(step ir.Step, field string) []ValidationError {
	var errs []ValidationError
	inputs := step.InputObject()

	missing := func(name string) {
		errs = append(errs, ValidationError{
			Field:   field + ".inputs." + name,
			Message: fmt.Sprintf("step %q requires input %q", step.Name, name),
			Code:    ErrInvalidStepInputs,
		})
	}

	switch step.Kind {
	case ir.KindHTTP:
		for _, name := range []string{"method", "uri"} {
			if _, ok := inputs[name]; !ok {
				missing(name)
			}
		}
	case ir.KindAPIConnection:
		for _, name := range []string{"method", "path"} {
			if _, ok := inputs[name]; !ok {
				missing(name)
			}
		}
	case ir.KindIncrementVariable, ir.KindDecrementVariable, ir.KindSetVariable:
		if _, ok := inputs["name"]; !ok {
			missing("name")
		}
	case ir.KindBinding:
		for _, name := range []string{"name", "type"} {
			if _, ok := inputs[name]; !ok {
				missing(name)
			}
		}
	case ir.KindParseJSON:
		if _, ok := inputs["content"]; !ok {
			missing("content")
		}
	case ir.KindInitializeVariable:
		errs = append(errs, validateVariableDeclarations(step, field)...)
	}
	return errs
}

// validateVariableDeclarations checks InitializeVariable's "variables" list.
func validateVariableDeclarations(step ir.Step, field string) []ValidationError {
	var errs []ValidationError

	vars, ok := step.InputObject()["variables"].([]any)
	if !ok || len(vars) == 0 {
		return []ValidationError{{
			Field:   field + ".inputs.variables",
			Message: fmt.Sprintf("step %q must declare at least one variable", step.Name),
			Code:    ErrInvalidVariable,
		}}
	}

	for j, v := range vars {
		decl, _ := v.(map[string]any)
		path := fmt.Sprintf("%s.inputs.variables[%d]", field, j)

		name, _ := decl["name"].(string)
		if name == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: "variable name is required",
				Code:    ErrInvalidVariable,
			})
		}

		typ, _ := decl["type"].(string)
		if !variableTypes[typ] {
			errs = append(errs, ValidationError{
				Field:   path + ".type",
				Message: fmt.Sprintf("invalid variable type %q for %q", typ, name),
				Code:    ErrInvalidVariable,
			})
		}
	}
	return errs
}
