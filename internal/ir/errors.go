package ir

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a fatal workflow error raised while sorting, translating,
// dispatching or interpreting a workflow.
//
// None of these are retried. They propagate unchanged (possibly wrapped) to
// the caller of the compile or run operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Step names the step being processed when the error was raised, if any.
	Step string

	// Details contains additional context (available keys, cycle path, ...).
	Details map[string]string
}

// ErrorCode categorizes workflow errors.
type ErrorCode string

const (
	// ErrCodeCyclicDependency indicates the step graph cannot be linearized.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"

	// ErrCodeUnrecognizedExpression indicates an @call outside the builtin table.
	ErrCodeUnrecognizedExpression ErrorCode = "UNRECOGNIZED_EXPRESSION"

	// ErrCodeMissingReference indicates an expression or edge names an
	// output, variable, item or step that does not exist.
	ErrCodeMissingReference ErrorCode = "MISSING_REFERENCE"

	// ErrCodeTypeMismatch indicates a typed variable read with the wrong type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnsupportedStepKind indicates no generator or action is registered.
	ErrCodeUnsupportedStepKind ErrorCode = "UNSUPPORTED_STEP_KIND"

	// ErrCodeUnsupportedTrigger indicates a trigger that cannot be emitted.
	ErrCodeUnsupportedTrigger ErrorCode = "UNSUPPORTED_TRIGGER"

	// ErrCodeInvalidInput indicates step inputs missing a required field or
	// carrying a field of the wrong shape.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s: %s (step=%s)", e.Code, e.Message, e.Step)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCyclicDependency reports whether err is a cyclic dependency error.
func IsCyclicDependency(err error) bool {
	return CodeOf(err) == ErrCodeCyclicDependency
}

// IsUnrecognizedExpression reports whether err is an unrecognized expression error.
func IsUnrecognizedExpression(err error) bool {
	return CodeOf(err) == ErrCodeUnrecognizedExpression
}

// IsMissingReference reports whether err is a missing reference error.
func IsMissingReference(err error) bool {
	return CodeOf(err) == ErrCodeMissingReference
}

// IsTypeMismatch reports whether err is a type mismatch error.
func IsTypeMismatch(err error) bool {
	return CodeOf(err) == ErrCodeTypeMismatch
}

// IsUnsupportedStepKind reports whether err is an unsupported step kind error.
func IsUnsupportedStepKind(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedStepKind
}

// NewCycleError creates an Error for a dependency cycle. The path lists the
// steps on the cycle, starting and ending with the same step.
func NewCycleError(path []string) *Error {
	return &Error{
		Code:    ErrCodeCyclicDependency,
		Message: fmt.Sprintf("cyclic dependency found: %s", strings.Join(path, " -> ")),
		Step:    path[0],
		Details: map[string]string{"path": strings.Join(path, ",")},
	}
}

// NewUnrecognizedExpressionError creates an Error for an expression that is
// not in the builtin table.
func NewUnrecognizedExpressionError(expression, reason string) *Error {
	msg := fmt.Sprintf("didn't recognize expression: %s", expression)
	if reason != "" {
		msg += " (" + reason + ")"
	}
	return &Error{
		Code:    ErrCodeUnrecognizedExpression,
		Message: msg,
		Details: map[string]string{"expression": expression},
	}
}

// NewMissingReferenceError creates an Error for a lookup of an unknown name.
// kind is the table searched ("output", "variable", "item", "step", ...).
// Available keys are listed sorted so the message is deterministic.
func NewMissingReferenceError(kind, name string, available []string) *Error {
	keys := append([]string(nil), available...)
	sort.Strings(keys)
	return &Error{
		Code:    ErrCodeMissingReference,
		Message: fmt.Sprintf("couldn't find any %s named '%s'. Existing %ss: %s", kind, name, kind, strings.Join(keys, ", ")),
		Details: map[string]string{
			"kind":      kind,
			"name":      name,
			"available": strings.Join(keys, ","),
		},
	}
}

// NewTypeMismatchError creates an Error for a typed read of a variable
// declared with a different type.
func NewTypeMismatchError(variable, requested, stored string) *Error {
	return &Error{
		Code:    ErrCodeTypeMismatch,
		Message: fmt.Sprintf("requested type does not match stored variable type: requested '%s', stored '%s'", requested, stored),
		Details: map[string]string{
			"variable":  variable,
			"requested": requested,
			"stored":    stored,
		},
	}
}

// NewUnsupportedKindError creates an Error for a step kind with no handler.
func NewUnsupportedKindError(step string, kind Kind) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedStepKind,
		Message: fmt.Sprintf("step kind '%s' is not supported", kind),
		Step:    step,
		Details: map[string]string{"kind": string(kind)},
	}
}

// NewInvalidInputError creates an Error for malformed step inputs.
func NewInvalidInputError(step, field, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("%s: %s", field, message),
		Step:    step,
		Details: map[string]string{"field": field},
	}
}

// WithStep returns err annotated with the step name when err is an *Error
// that does not name a step yet. Other errors are returned unchanged.
func WithStep(err error, step string) error {
	var e *Error
	if !errors.As(err, &e) || e.Step != "" {
		return err
	}
	annotated := *e
	annotated.Step = step
	return &annotated
}

// NewUnsupportedTriggerError creates an Error for a trigger that cannot be
// emitted or scheduled.
func NewUnsupportedTriggerError(trigger, message string) *Error {
	e := &Error{Code: ErrCodeUnsupportedTrigger, Message: message}
	if trigger != "" {
		e.Message = fmt.Sprintf("trigger '%s': %s", trigger, message)
		e.Details = map[string]string{"trigger": trigger}
	}
	return e
}
