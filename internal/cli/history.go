package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/logicflow/internal/ir"
	"github.com/roach88/logicflow/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Workflow string
	Run      string
	Limit    int
}

// RunSummary is one run in the history listing.
type RunSummary struct {
	ID         string `json:"id"`
	Workflow   string `json:"workflow"`
	Status     string `json:"status"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// StepSummary is one recorded step of a run.
type StepSummary struct {
	Seq        int64  `json:"seq"`
	Step       string `json:"step"`
	Kind       string `json:"kind"`
	Result     any    `json:"result"`
	DurationMS int64  `json:"duration_ms"`
}

// RunDetail is a run with its recorded steps.
type RunDetail struct {
	RunSummary
	DocumentHash string        `json:"document_hash"`
	Steps        []StepSummary `json:"steps"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded by "logicflow run --db", newest first.

With --run, show one run and the result of every step it completed.

Examples:
  logicflow history --db ./runs.db
  logicflow history --db ./runs.db --workflow order --limit 5
  logicflow history --db ./runs.db --run 0190f1e2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite run history database (default from config)")
	cmd.Flags().StringVar(&opts.Workflow, "workflow", "", "only list runs of this workflow")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run with its steps")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.config()

	dbPath := firstNonEmpty(opts.Database, cfg.Store.Path)
	if dbPath == "" {
		_ = formatter.Error(ErrCodeStore, "no run history database: pass --db or set store.path", nil)
		return NewExitError(ExitCommandError, "no run history database")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()

	if opts.Run != "" {
		run, err := st.ReadRun(ctx, opts.Run)
		if errors.Is(err, store.ErrNotFound) {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitFailure, "run not found", err)
		}
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		steps, err := st.ReadStepResults(ctx, opts.Run)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read steps", err)
		}

		detail := RunDetail{
			RunSummary:   summarizeRun(run),
			DocumentHash: run.DocumentHash,
			Steps:        make([]StepSummary, 0, len(steps)),
		}
		for _, s := range steps {
			detail.Steps = append(detail.Steps, StepSummary{
				Seq:        s.Seq,
				Step:       s.Step,
				Kind:       s.Kind,
				Result:     s.Result,
				DurationMS: s.Duration.Milliseconds(),
			})
		}
		return formatter.Render(detail, func(w io.Writer) error {
			return writeRunDetailText(w, detail)
		})
	}

	runs, err := st.ListRuns(ctx, opts.Workflow, opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarizeRun(run))
	}

	return formatter.Render(summaries, func(w io.Writer) error {
		if len(summaries) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}
		for _, s := range summaries {
			fmt.Fprintf(w, "%s  %-9s  %s  %s", s.StartedAt, s.Status, s.Workflow, s.ID)
			if s.ErrorCode != "" {
				fmt.Fprintf(w, "  [%s]", s.ErrorCode)
			}
			fmt.Fprintln(w)
		}
		return nil
	})
}

func summarizeRun(run store.Run) RunSummary {
	s := RunSummary{
		ID:        run.ID,
		Workflow:  run.Workflow,
		Status:    run.Status,
		ErrorCode: run.ErrorCode,
		Error:     run.Error,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		s.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return s
}

func writeRunDetailText(w io.Writer, d RunDetail) error {
	fmt.Fprintf(w, "Run %s (%s)\n", d.ID, d.Workflow)
	fmt.Fprintf(w, "  status:  %s\n", d.Status)
	if d.ErrorCode != "" {
		fmt.Fprintf(w, "  error:   %s: %s\n", d.ErrorCode, d.Error)
	}
	fmt.Fprintf(w, "  started: %s\n", d.StartedAt)
	if d.FinishedAt != "" {
		fmt.Fprintf(w, "  ended:   %s\n", d.FinishedAt)
	}
	fmt.Fprintln(w, "Steps:")
	for _, s := range d.Steps {
		data, err := ir.MarshalCanonical(ir.Normalize(s.Result))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  [%d] %s (%s) = %s\n", s.Seq, s.Step, s.Kind, data)
	}
	return nil
}
