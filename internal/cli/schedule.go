package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/logicflow/internal/compiler"
	"github.com/roach88/logicflow/internal/ir"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	Count int
	From  string // RFC 3339

	// Now overrides the clock when --from is not set (for testing).
	Now func() time.Time
}

// TriggerSchedule describes when one trigger starts the workflow.
type TriggerSchedule struct {
	Name  string   `json:"name"`
	Kind  string   `json:"kind"`
	Cron  string   `json:"cron,omitempty"`
	Next  []string `json:"next,omitempty"`
	Error string   `json:"error,omitempty"`
}

// ScheduleResult lists the triggers of a workflow.
type ScheduleResult struct {
	Workflow string            `json:"workflow"`
	Triggers []TriggerSchedule `json:"triggers"`
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts, Now: time.Now}

	cmd := &cobra.Command{
		Use:   "schedule <workflow.json>",
		Short: "Show workflow triggers and their next fire times",
		Long: `Show the triggers of a workflow.

Recurrence triggers are converted to the six-field cron expression the
emitted code is scheduled with, followed by the next fire times. Request
and Manual triggers have no schedule.

Examples:
  logicflow schedule ./workflows/report.json
  logicflow schedule ./workflows/report.json --count 3 --from 2024-01-01T00:00:00Z`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 5, "number of fire times to list per recurrence")
	cmd.Flags().StringVar(&opts.From, "from", "", "list fire times after this RFC 3339 instant (default now)")

	return cmd
}

func runSchedule(opts *ScheduleOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Count < 0 {
		_ = formatter.Error(ErrCodeGeneric, "--count must be non-negative", nil)
		return NewExitError(ExitCommandError, "invalid --count")
	}

	from := opts.Now().UTC()
	if opts.From != "" {
		parsed, err := time.Parse(time.RFC3339, opts.From)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("--from: %v", err), nil)
			return WrapExitError(ExitCommandError, "invalid --from", err)
		}
		from = parsed.UTC()
	}

	doc, err := loadDocument(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load workflow", err)
	}

	result := ScheduleResult{Workflow: doc.Name, Triggers: make([]TriggerSchedule, 0, len(doc.Triggers))}
	failed := 0
	for _, trigger := range doc.Triggers {
		entry := TriggerSchedule{Name: trigger.Name, Kind: string(trigger.Kind)}
		if trigger.Kind == ir.KindRecurrence {
			if err := scheduleRecurrence(&entry, trigger.Recurrence, from, opts.Count); err != nil {
				entry.Error = err.Error()
				failed++
			}
		}
		result.Triggers = append(result.Triggers, entry)
	}

	if err := formatter.Render(result, func(w io.Writer) error {
		return writeScheduleText(w, result)
	}); err != nil {
		return err
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d trigger(s) cannot be scheduled", failed))
	}
	return nil
}

func scheduleRecurrence(entry *TriggerSchedule, r *ir.Recurrence, from time.Time, count int) error {
	expr, err := compiler.CronExpression(r)
	if err != nil {
		return err
	}
	entry.Cron = expr

	fires, err := compiler.NextFires(expr, from, count)
	if err != nil {
		return err
	}
	for _, fire := range fires {
		entry.Next = append(entry.Next, fire.UTC().Format(time.RFC3339))
	}
	return nil
}

func writeScheduleText(w io.Writer, result ScheduleResult) error {
	fmt.Fprintf(w, "Workflow triggers: %s\n", result.Workflow)
	if len(result.Triggers) == 0 {
		fmt.Fprintln(w, "  (none)")
		return nil
	}
	for _, t := range result.Triggers {
		fmt.Fprintf(w, "  %s (%s)", t.Name, t.Kind)
		switch {
		case t.Error != "":
			fmt.Fprintf(w, ": %s\n", t.Error)
		case t.Cron != "":
			fmt.Fprintf(w, ": %s\n", t.Cron)
			for _, next := range t.Next {
				fmt.Fprintf(w, "    next %s\n", next)
			}
		default:
			fmt.Fprintln(w, ": not scheduled")
		}
	}
	return nil
}
