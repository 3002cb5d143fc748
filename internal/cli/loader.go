package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/logicflow/internal/compiler"
	"github.com/roach88/logicflow/internal/ir"
)

// LoadMode controls how errors are handled during workflow loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error code constants - unified across all CLI commands.
// Graph validation uses the compiler's E1xx codes; run failures use the
// ir.ErrorCode names.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // File read error
	ErrCodeSchema      = "E003" // Document does not match the workflow schema
	ErrCodeParseFailed = "E004" // Document could not be bound
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeCycle       = "E006" // Dependency cycle
	ErrCodeWriteFailed = "E007" // File or bucket write error
	ErrCodeStore       = "E008" // Run history unavailable
)

// LoadResult contains a loaded workflow document.
type LoadResult struct {
	Path     string
	Data     []byte
	Document *ir.Document

	// Cycles is filled in LoadModeCollectAll only.
	Cycles []compiler.CycleWarning
}

// LoadError represents an error that occurred during workflow loading.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadWorkflow reads, schema-checks and binds a workflow document.
//
// In LoadModeFailFast the first problem is returned and graph validation is
// skipped; Sort reports cycles and dangling edges when the workflow runs.
// In LoadModeCollectAll every schema, graph and cycle problem is collected.
// The result is nil only when the document could not be bound at all.
func LoadWorkflow(path string, mode LoadMode) (*LoadResult, []error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("workflow not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading workflow: %v", err)}}
	}

	var errs []error
	for _, cErr := range compiler.ValidateDocument(path, data) {
		errs = append(errs, &LoadError{
			Code:    ErrCodeSchema,
			Field:   cErr.Field,
			Message: cErr.Message,
			Pos:     cErr.Pos,
		})
		if mode == LoadModeFailFast {
			return nil, errs
		}
	}

	doc, err := ir.ParseDocument(ir.NameFromPath(path), data)
	if err != nil {
		return nil, append(errs, &LoadError{Code: ErrCodeParseFailed, Message: err.Error()})
	}

	result := &LoadResult{Path: path, Data: data, Document: doc}
	if mode == LoadModeFailFast {
		return result, nil
	}

	for _, vErr := range compiler.ValidateGraph(doc) {
		errs = append(errs, &LoadError{Code: vErr.Code, Field: vErr.Field, Message: vErr.Message})
	}
	result.Cycles = compiler.AnalyzeGraph(doc.Steps)
	for _, cycle := range result.Cycles {
		errs = append(errs, &LoadError{
			Code:    ErrCodeCycle,
			Field:   "actions",
			Message: cycle.Message,
		})
	}

	return result, errs
}

// loadDocument is LoadWorkflow in fail-fast mode for commands that only
// need the bound document.
func loadDocument(path string) (*ir.Document, error) {
	result, errs := LoadWorkflow(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result.Document, nil
}

// loadErrorCode returns the CLI error code for err.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	return ErrCodeGeneric
}

// parseAssignments turns name=value flags into a map. Values are kept as
// text; the engine converts them to the declared parameter type.
func parseAssignments(flag string, pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--%s %q: expected name=value", flag, pair)
		}
		out[name] = value
	}
	return out, nil
}
