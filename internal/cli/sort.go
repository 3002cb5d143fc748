package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/logicflow/internal/compiler"
	"github.com/roach88/logicflow/internal/ir"
)

// SortedStep is one entry of the dependency order.
type SortedStep struct {
	Position     int             `json:"position"`
	Name         string          `json:"name"`
	Kind         ir.Kind         `json:"kind"`
	Dependencies []ir.Dependency `json:"dependencies,omitempty"`
}

// SortResult is the execution order of a workflow.
type SortResult struct {
	Workflow string       `json:"workflow"`
	Steps    []SortedStep `json:"steps"`
}

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort <workflow.json>",
		Short: "Print the order steps execute in",
		Long: `Print the dependency order of a workflow's steps.

Every step appears after the steps named in its runAfter, together with
the statuses each edge lists. Ties follow document order. A cycle fails
with CYCLIC_DEPENDENCY and the cycle path.

Examples:
  logicflow sort ./workflows/order.json
  logicflow sort ./workflows/order.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSort(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	doc, err := loadDocument(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load workflow", err)
	}

	sorted, err := compiler.Sort(doc.Steps)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to sort steps", err)
	}

	result := SortResult{Workflow: doc.Name, Steps: make([]SortedStep, len(sorted))}
	for i, step := range sorted {
		result.Steps[i] = SortedStep{
			Position:     i + 1,
			Name:         step.Name,
			Kind:         step.Kind,
			Dependencies: step.Dependencies,
		}
	}

	return formatter.Render(result, func(w io.Writer) error {
		return writeSortText(w, result)
	})
}

func writeSortText(w io.Writer, result SortResult) error {
	fmt.Fprintf(w, "Workflow dependency tree: %s\n", result.Workflow)
	for _, step := range result.Steps {
		fmt.Fprintf(w, "  %d. %s (%s)", step.Position, step.Name, step.Kind)
		if len(step.Dependencies) > 0 {
			deps := make([]string, len(step.Dependencies))
			for i, dep := range step.Dependencies {
				deps[i] = dep.Name
				if len(dep.Statuses) > 0 {
					deps[i] += " [" + strings.Join(dep.Statuses, ", ") + "]"
				}
			}
			fmt.Fprintf(w, " after %s", strings.Join(deps, ", "))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
