package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/logicflow/internal/compiler"
)

// ValidationResult holds validation results for one workflow.
type ValidationResult struct {
	Workflow string                     `json:"workflow"`
	Valid    bool                       `json:"valid"`
	Steps    int                        `json:"steps"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Cycles   []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workflow.json>...",
		Short: "Check workflows without running them",
		Long: `Check workflow documents against the workflow schema and the step graph.

Reports every problem found: schema violations with line and column,
duplicate or empty step names, runAfter edges to unknown steps, unsupported
step kinds, malformed variable declarations, unschedulable recurrences and
every dependency cycle.

Exit codes:
  0 - All workflows valid
  1 - One or more workflows invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	results := make([]ValidationResult, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		result, err := validateWorkflow(path, formatter)
		if err != nil {
			return outputValidateError(formatter, loadErrorCode(err), err.Error())
		}
		if !result.Valid {
			invalid++
		}
		results = append(results, result)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: results}
		if invalid > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    firstCode(results),
				Message: fmt.Sprintf("%d workflow(s) invalid", invalid),
			}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		for _, result := range results {
			writeValidationText(formatter.Writer, result)
		}
	}

	if invalid > 0 {
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d workflow(s)", invalid))
	}
	return nil
}

// validateWorkflow collects every problem in one workflow. A returned error
// means the file could not be read at all.
func validateWorkflow(path string, formatter *OutputFormatter) (ValidationResult, error) {
	result := ValidationResult{Workflow: path, Valid: true}

	loaded, errs := LoadWorkflow(path, LoadModeCollectAll)
	if loaded == nil && len(errs) > 0 {
		var loadErr *LoadError
		if errors.As(errs[0], &loadErr) && (loadErr.Code == ErrCodeNotFound || loadErr.Code == ErrCodeReadFailed) {
			return result, loadErr
		}
	}
	if loaded != nil {
		result.Steps = len(loaded.Document.Steps)
		result.Cycles = loaded.Cycles
		formatter.VerboseLog("Validating %s: %d step(s)", path, result.Steps)
	}

	for _, err := range errs {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field: "document", Message: err.Error(), Code: ErrCodeGeneric,
			})
			continue
		}
		if loadErr.Code == ErrCodeCycle {
			continue // listed under Cycles
		}
		field := loadErr.Field
		if field == "" {
			field = "document"
		}
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field:   field,
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    lineOf(loadErr),
		})
	}

	result.Valid = len(result.Errors) == 0 && len(result.Cycles) == 0
	return result, nil
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

func firstCode(results []ValidationResult) string {
	for _, r := range results {
		if len(r.Errors) > 0 {
			return r.Errors[0].Code
		}
		if len(r.Cycles) > 0 {
			return ErrCodeCycle
		}
	}
	return ErrCodeGeneric
}

func writeValidationText(w io.Writer, result ValidationResult) {
	if result.Valid {
		fmt.Fprintf(w, "✓ %s (%d steps)\n", result.Workflow, result.Steps)
		return
	}

	fmt.Fprintf(w, "✗ %s\n", result.Workflow)
	for _, err := range result.Errors {
		if err.Line > 0 {
			fmt.Fprintf(w, "  line %d: %s: %s: %s\n", err.Line, err.Code, err.Field, err.Message)
			continue
		}
		fmt.Fprintf(w, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	for _, cycle := range result.Cycles {
		fmt.Fprintf(w, "  %s: %s\n", ErrCodeCycle, cycle.Message)
	}
}

// outputValidateError outputs a command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, message)
}
