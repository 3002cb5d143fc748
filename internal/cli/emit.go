package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/logicflow/internal/codegen"
	"github.com/roach88/logicflow/internal/sink"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	Package string // generated package name
	Output  string // output file path
	Bucket  string // blob bucket URL
	Prefix  string // key prefix inside the bucket
}

// EmitResult describes an emitted unit.
type EmitResult struct {
	Workflow   string            `json:"workflow"`
	Package    string            `json:"package"`
	Order      []string          `json:"order"`
	Activities []string          `json:"activities,omitempty"`
	Artifacts  codegen.Artifacts `json:"artifacts"`
	Written    []string          `json:"written,omitempty"`
	Source     string            `json:"source,omitempty"`
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit <workflow.json>",
		Short: "Generate a Go orchestration from a workflow",
		Long: `Generate Go source for a workflow.

The output is one file containing a durabletask-go orchestrator that calls
each step in dependency order, an activity per HTTP, ApiConnection or
Binding step, and a registration function. The artifact manifest lists
the modules and app settings the generated code needs.

Without --output or --bucket the source is written to stdout.

Examples:
  logicflow emit ./workflows/order.json > order.go
  logicflow emit ./workflows/order.json -p orders -o ./gen/order.go
  logicflow emit ./workflows/order.json --bucket file:///tmp/units`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Package, "package", "p", "", "package name of the generated file (default from config)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Bucket, "bucket", "", "blob bucket URL to write the unit to (default from config)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "key prefix inside the bucket (default from config)")

	return cmd
}

func runEmit(opts *EmitOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.config()

	pkg := firstNonEmpty(opts.Package, cfg.Package)
	bucketURL := firstNonEmpty(opts.Bucket, cfg.Output.URL)
	prefix := firstNonEmpty(opts.Prefix, cfg.Output.Prefix)

	doc, err := loadDocument(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load workflow", err)
	}

	formatter.VerboseLog("Emitting %s as package %s", doc.Name, pkg)
	unit, err := codegen.Emit(doc, codegen.DefaultGenerators(),
		codegen.WithPackage(pkg),
		codegen.WithLogger(opts.Logger(cmd.ErrOrStderr())),
	)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to emit workflow", err)
	}

	result := EmitResult{
		Workflow:   doc.Name,
		Package:    unit.Package,
		Order:      unit.Order,
		Activities: unit.Activities,
		Artifacts:  unit.Artifacts,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(unit.Source), 0644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		result.Written = append(result.Written, opts.Output)
	}

	if bucketURL != "" {
		ctx := cmd.Context()
		bucket, err := sink.OpenBucket(ctx, bucketURL, prefix)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open bucket", err)
		}
		defer bucket.Close()

		keys, err := bucket.WriteUnit(ctx, doc.Name, unit)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write unit", err)
		}
		result.Written = append(result.Written, keys...)
	}

	toStdout := len(result.Written) == 0
	if toStdout {
		result.Source = unit.Source
	}

	return formatter.Render(result, func(w io.Writer) error {
		if toStdout {
			_, err := io.WriteString(w, unit.Source)
			return err
		}
		fmt.Fprintf(w, "✓ %s: %d step(s), %d activities\n", doc.Name, len(unit.Order), len(unit.Activities))
		for _, written := range result.Written {
			fmt.Fprintf(w, "  wrote %s\n", written)
		}
		if !unit.Artifacts.Empty() {
			writeArtifactsText(w, unit.Artifacts)
		}
		return nil
	})
}

func writeArtifactsText(w io.Writer, a codegen.Artifacts) {
	if len(a.Extensions) > 0 {
		modules := make([]string, 0, len(a.Extensions))
		for module, version := range a.Extensions {
			modules = append(modules, strings.TrimSpace(module+" "+version))
		}
		sort.Strings(modules)
		fmt.Fprintf(w, "  requires: %s\n", strings.Join(modules, ", "))
	}
	if len(a.AppSettings) > 0 {
		fmt.Fprintf(w, "  app settings: %s\n", strings.Join(a.AppSettings, ", "))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
