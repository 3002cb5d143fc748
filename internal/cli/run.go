package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/logicflow/internal/engine"
	"github.com/roach88/logicflow/internal/ir"
	"github.com/roach88/logicflow/internal/sink"
	"github.com/roach88/logicflow/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Params      []string
	TriggerBody string // JSON file
	Mock        string // YAML file of canned responses
	Database    string
	Output      string // blob bucket URL
	AMQP        string
	Exchange    string
	Metrics     bool

	// RunIDs overrides the run ID generator (for testing).
	RunIDs engine.IDGenerator
}

// RunResult is the output of a completed run.
type RunResult struct {
	RunID     string         `json:"run_id"`
	Workflow  string         `json:"workflow"`
	Order     []string       `json:"order"`
	Outputs   map[string]any `json:"outputs"`
	Variables map[string]any `json:"variables,omitempty"`
	Written   string         `json:"written,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <workflow.json>",
		Short: "Interpret a workflow once",
		Long: `Run a workflow once in dependency order and print every step result.

Parameters override the document's defaults and are converted to the
declared parameter type. Http and ApiConnection steps call the network
unless --mock is given or http.mock is set in the config, in which case
requests are answered from the mock file (or with an empty 200).

Examples:
  logicflow run ./workflows/order.json --param '$api=https://example.com'
  logicflow run ./workflows/order.json --trigger-body body.json --mock http.yaml
  logicflow run ./workflows/order.json --db ./runs.db --output file:///tmp/runs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "parameter override as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.TriggerBody, "trigger-body", "", "JSON file returned by triggerBody()")
	cmd.Flags().StringVar(&opts.Mock, "mock", "", "YAML file mapping \"METHOD url\" to canned HTTP responses")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite run history database (default from config)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "blob bucket URL for the run outputs (default from config)")
	cmd.Flags().StringVar(&opts.AMQP, "amqp", "", "AMQP URL that Binding steps publish to (default from config)")
	cmd.Flags().StringVar(&opts.Exchange, "exchange", "", "AMQP exchange for Binding steps (default from config)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print run metrics to stderr after the run")

	return cmd
}

func runWorkflow(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.config()
	logger := opts.Logger(cmd.ErrOrStderr())

	doc, err := loadDocument(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load workflow", err)
	}

	params, err := parseAssignments("param", opts.Params)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}

	var triggerBody any
	if opts.TriggerBody != "" {
		data, err := os.ReadFile(opts.TriggerBody)
		if err != nil {
			_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read trigger body", err)
		}
		triggerBody, err = ir.DecodeValue(data)
		if err != nil {
			_ = formatter.Error(ErrCodeParseFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to parse trigger body", err)
		}
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDs(opts.RunIDs))
	}

	switch {
	case opts.Mock != "":
		responses, err := loadMockResponses(opts.Mock)
		if err != nil {
			_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load mock responses", err)
		}
		engineOpts = append(engineOpts, engine.WithHTTP(engine.NewMockHTTP(responses)))
	case cfg.HTTP.Mock:
		engineOpts = append(engineOpts, engine.WithHTTP(engine.NewMockHTTP(nil)))
	default:
		engineOpts = append(engineOpts, engine.WithHTTP(&http.Client{Timeout: cfg.HTTP.Timeout}))
	}

	if dbPath := firstNonEmpty(opts.Database, cfg.Store.Path); dbPath != "" {
		formatter.VerboseLog("Recording run history in %s", dbPath)
		st, err := store.Open(dbPath)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		engineOpts = append(engineOpts, engine.WithStore(st))
	}

	if amqpURL := firstNonEmpty(opts.AMQP, cfg.Binding.AMQPURL); amqpURL != "" {
		exchange := firstNonEmpty(opts.Exchange, cfg.Binding.Exchange)
		publisher, err := sink.DialAMQP(amqpURL, exchange, logger)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to connect to AMQP broker", err)
		}
		defer publisher.Close()
		engineOpts = append(engineOpts, engine.WithPublisher(publisher))
	}

	var registry *prometheus.Registry
	if opts.Metrics {
		registry = prometheus.NewRegistry()
		engineOpts = append(engineOpts, engine.WithMetrics(engine.NewMetrics(registry)))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(engineOpts...)
	run, runErr := eng.Run(ctx, doc, engine.RunOptions{
		Parameters:  params,
		TriggerBody: triggerBody,
	})

	if registry != nil {
		if err := writeMetrics(cmd.ErrOrStderr(), registry); err != nil {
			logger.Error("failed to write metrics", "error", err)
		}
	}

	if runErr != nil {
		code := string(ir.CodeOf(runErr))
		if code == "" {
			code = ErrCodeGeneric
		}
		_ = formatter.Error(code, runErr.Error(), nil)
		return WrapExitError(ExitFailure, "workflow run failed", runErr)
	}

	result := RunResult{
		RunID:     run.RunID,
		Workflow:  doc.Name,
		Order:     run.Order,
		Outputs:   run.Outputs,
		Variables: variableValues(run.Variables),
	}

	if bucketURL := firstNonEmpty(opts.Output, cfg.Output.URL); bucketURL != "" {
		bucket, err := sink.OpenBucket(ctx, bucketURL, cfg.Output.Prefix)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open bucket", err)
		}
		defer bucket.Close()

		key, err := bucket.WriteOutputs(ctx, run.RunID, run.Outputs)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write outputs", err)
		}
		result.Written = key
	}

	if formatter.Format == "json" {
		return formatter.encode(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}
	return writeRunText(formatter.Writer, result)
}

func writeRunText(w io.Writer, result RunResult) error {
	fmt.Fprintf(w, "✓ %s completed (run %s)\n", result.Workflow, result.RunID)
	for i, name := range result.Order {
		data, err := ir.MarshalCanonical(ir.Normalize(result.Outputs[name]))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %d. %s = %s\n", i+1, name, data)
	}
	if len(result.Variables) > 0 {
		names := make([]string, 0, len(result.Variables))
		for name := range result.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "Variables:")
		for _, name := range names {
			data, err := ir.MarshalCanonical(ir.Normalize(result.Variables[name]))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %s = %s\n", name, data)
		}
	}
	if result.Written != "" {
		fmt.Fprintf(w, "Outputs written to %s\n", result.Written)
	}
	return nil
}

func variableValues(vars map[string]ir.Variable) map[string]any {
	if len(vars) == 0 {
		return nil
	}
	out := make(map[string]any, len(vars))
	for name, v := range vars {
		out[name] = v.Value
	}
	return out
}

// loadMockResponses reads a YAML map of "METHOD url" or "url" to canned
// responses.
func loadMockResponses(path string) (map[string]engine.MockResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var responses map[string]engine.MockResponse
	if err := yaml.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return responses, nil
}

func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return err
		}
	}
	return nil
}
