package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorPredicatesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("compile: %w", NewCycleError([]string{"A", "B", "A"}))

	assert.True(t, IsCyclicDependency(err))
	assert.False(t, IsMissingReference(err))
	assert.Equal(t, ErrCodeCyclicDependency, CodeOf(err))
	assert.Contains(t, err.Error(), "A -> B -> A")
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("boom")))
	assert.False(t, IsTypeMismatch(nil))
}

func TestMissingReferenceListsSortedKeys(t *testing.T) {
	err := NewMissingReferenceError("output", "Nope", []string{"b", "a"})
	assert.True(t, IsMissingReference(err))
	assert.Equal(t, "MISSING_REFERENCE: couldn't find any output named 'Nope'. Existing outputs: a, b", err.Error())
	assert.Equal(t, "a,b", err.Details["available"])
}

func TestErrorWithStep(t *testing.T) {
	base := NewUnrecognizedExpressionError("foo()", "")
	err := WithStep(base, "Compose")

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Compose", e.Step)
	assert.Equal(t, "", base.Step, "original must not be mutated")
	assert.Equal(t, "UNRECOGNIZED_EXPRESSION: didn't recognize expression: foo() (step=Compose)", err.Error())

	// A step already present is kept
	again := WithStep(err, "Other")
	require.True(t, errors.As(again, &e))
	assert.Equal(t, "Compose", e.Step)

	// Non-taxonomy errors pass through
	plain := errors.New("plain")
	assert.Same(t, plain, WithStep(plain, "X"))
}

func TestConstructors(t *testing.T) {
	assert.True(t, IsTypeMismatch(NewTypeMismatchError("x", "String", "Integer")))
	assert.True(t, IsUnsupportedStepKind(NewUnsupportedKindError("s", "Foreach")))
	assert.True(t, IsUnrecognizedExpression(NewUnrecognizedExpressionError("x", "chained access")))
	assert.Equal(t, ErrCodeInvalidInput, CodeOf(NewInvalidInputError("s", "uri", "is required")))
}
