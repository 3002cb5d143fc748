package harness

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roach88/logicflow/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Order    []string // Completed steps for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nCompleted steps:\n")
	for i, step := range e.Order {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, step)
	}

	return buf.String()
}

// evaluateAssertions runs every assertion and returns the failures in
// assertion order.
func evaluateAssertions(result *Result, assertions []Assertion) []error {
	var errs []error
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertOutput:
			err = assertOutput(result, a)
		case AssertOrder:
			err = assertOrder(result, a)
		case AssertRequest:
			err = assertRequest(result, a)
		case AssertVariable:
			err = assertVariable(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// assertOutput checks a step result, or the value at a gjson path within
// it, against the expected value.
func assertOutput(result *Result, a Assertion) error {
	output, ok := result.Outputs[a.Step]
	if !ok {
		return &AssertionError{
			Type:     AssertOutput,
			Expected: fmt.Sprintf("step %s to complete", a.Step),
			Actual:   "no output recorded",
			Order:    result.Order,
		}
	}

	actual := output
	subject := a.Step
	if a.Path != "" {
		subject = a.Step + " at " + a.Path
		data, err := ir.MarshalCanonical(output)
		if err != nil {
			return fmt.Errorf("output %s: %w", a.Step, err)
		}
		found := gjson.GetBytes(data, a.Path)
		if !found.Exists() {
			return &AssertionError{
				Type:     AssertOutput,
				Expected: fmt.Sprintf("%s to exist", subject),
				Actual:   fmt.Sprintf("path not found in %s", data),
				Order:    result.Order,
			}
		}
		actual = ir.Normalize(found.Value())
	}

	if !matchValue(a.Value, actual) {
		return &AssertionError{
			Type:     AssertOutput,
			Expected: fmt.Sprintf("%s = %s", subject, render(a.Value)),
			Actual:   render(actual),
			Order:    result.Order,
		}
	}
	return nil
}

// assertOrder checks that steps completed in the given relative order.
// Steps don't need to be consecutive (intervening steps are allowed).
func assertOrder(result *Result, a Assertion) error {
	positions := make(map[string]int, len(result.Order))
	for i, step := range result.Order {
		positions[step] = i
	}

	prev := -1
	for _, step := range a.Steps {
		pos, ok := positions[step]
		if !ok {
			return &AssertionError{
				Type:     AssertOrder,
				Expected: fmt.Sprintf("steps in order %v", a.Steps),
				Actual:   fmt.Sprintf("step %s did not complete", step),
				Order:    result.Order,
			}
		}
		if pos < prev {
			return &AssertionError{
				Type:     AssertOrder,
				Expected: fmt.Sprintf("steps in order %v", a.Steps),
				Actual:   fmt.Sprintf("step %s completed too early", step),
				Order:    result.Order,
			}
		}
		prev = pos
	}
	return nil
}

// assertRequest checks that the mock received matching requests.
func assertRequest(result *Result, a Assertion) error {
	count := 0
	for _, req := range result.Requests {
		if a.Method != "" && !strings.EqualFold(a.Method, req.Method) {
			continue
		}
		if a.URL != req.URL && a.URL != withoutQuery(req.URL) {
			continue
		}
		count++
	}

	target := strings.TrimSpace(strings.ToUpper(a.Method) + " " + a.URL)
	switch {
	case a.Count == 0 && count == 0:
		return &AssertionError{
			Type:     AssertRequest,
			Expected: fmt.Sprintf("at least one request %s", target),
			Actual:   fmt.Sprintf("none among %d requests", len(result.Requests)),
			Order:    result.Order,
		}
	case a.Count > 0 && count != a.Count:
		return &AssertionError{
			Type:     AssertRequest,
			Expected: fmt.Sprintf("%d requests %s", a.Count, target),
			Actual:   fmt.Sprintf("%d requests", count),
			Order:    result.Order,
		}
	}
	return nil
}

// assertVariable checks a variable's final value.
func assertVariable(result *Result, a Assertion) error {
	actual, ok := result.Variables[a.Variable]
	if !ok {
		return &AssertionError{
			Type:     AssertVariable,
			Expected: fmt.Sprintf("variable %s = %s", a.Variable, render(a.Value)),
			Actual:   "variable not declared",
			Order:    result.Order,
		}
	}
	if !matchValue(a.Value, actual) {
		return &AssertionError{
			Type:     AssertVariable,
			Expected: fmt.Sprintf("variable %s = %s", a.Variable, render(a.Value)),
			Actual:   render(actual),
			Order:    result.Order,
		}
	}
	return nil
}

// matchValue reports whether actual satisfies expected.
//
// Subset semantics for objects: every expected key must be present and
// match. Arrays must have the same length and match element-wise. Scalars
// must be equal after normalization, so a YAML 8 equals a stored int64(8).
func matchValue(expected, actual any) bool {
	expected = ir.Normalize(expected)
	actual = ir.Normalize(actual)

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, ok := act[k]
			if !ok || !matchValue(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(expected, actual)
	}
}

// render formats a value as canonical JSON for messages.
func render(v any) string {
	data, err := ir.MarshalCanonical(ir.Normalize(v))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func withoutQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
