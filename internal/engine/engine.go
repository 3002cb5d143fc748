package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/logicflow/internal/compiler"
	"github.com/roach88/logicflow/internal/ir"
	"github.com/roach88/logicflow/internal/store"
)

// DefaultHTTPTimeout bounds each Http and ApiConnection call made with the
// default client.
const DefaultHTTPTimeout = 30 * time.Second

// Run statuses, as recorded in the store and in metrics.
const (
	StatusRunning   = store.StatusRunning
	StatusSucceeded = store.StatusSucceeded
	StatusFailed    = store.StatusFailed
)

// Engine interprets workflow documents.
//
// A run is a single sequential pass over the steps in dependency order. Each
// step's inputs are evaluated against the run's State, the kind's Action
// executes, and the result is recorded under the step name. The first error
// aborts the run.
//
// An Engine holds no per-run state and may be reused, but Run is not meant to
// be called concurrently when a store is attached.
type Engine struct {
	actions   Actions
	http      HTTPDoer
	publisher Publisher
	store     *store.Store
	runIDs    IDGenerator
	guids     IDGenerator
	now       func() time.Time
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithActions replaces the kind → action table.
func WithActions(actions Actions) Option {
	return func(e *Engine) { e.actions = actions }
}

// WithHTTP sets the client used by Http and ApiConnection steps.
func WithHTTP(doer HTTPDoer) Option {
	return func(e *Engine) { e.http = doer }
}

// WithPublisher sets where Binding step content is delivered.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithStore records every run and step result.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithRunIDs sets the run ID generator.
func WithRunIDs(g IDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithGUIDs sets the generator behind guid().
func WithGUIDs(g IDGenerator) Option {
	return func(e *Engine) { e.guids = g }
}

// WithNow sets the time source behind utcNow() and recorded timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine with the default actions, a real HTTP client, UUIDv7
// run IDs, random guid() values and the wall clock.
func New(opts ...Option) *Engine {
	e := &Engine{
		actions: DefaultActions(),
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		runIDs:  UUIDv7Generator{},
		guids:   UUIDv4Generator{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOptions are the per-run inputs.
type RunOptions struct {
	// Parameters override declared parameter defaults.
	Parameters map[string]any

	// TriggerBody is what triggerBody() returns.
	TriggerBody any

	// Items pre-binds loop items for item() lookups.
	Items map[string]any
}

// StepRecord describes one executed step.
type StepRecord struct {
	Name     string
	Kind     ir.Kind
	Seq      int64
	Duration time.Duration
}

// Result is a completed run.
type Result struct {
	RunID     string
	Outputs   map[string]any
	Order     []string
	Steps     []StepRecord
	Variables map[string]ir.Variable
}

// Run executes doc once.
//
// Errors carry the failing step's name when they come from the ir.Error
// taxonomy. A cancelled context stops the run before the next step.
func (e *Engine) Run(ctx context.Context, doc *ir.Document, opts RunOptions) (*Result, error) {
	sorted, err := compiler.Sort(doc.Steps)
	if err != nil {
		return nil, err
	}

	params, err := resolveParameters(doc, opts.Parameters)
	if err != nil {
		return nil, err
	}

	runID := e.runIDs.Generate()
	state := NewState(params, ir.Normalize(opts.TriggerBody), e.guids, e.now)
	for name, item := range opts.Items {
		state.SetItem(name, ir.Normalize(item))
	}

	logger := e.logger.With("run", runID, "workflow", doc.Name)
	logger.Info("run starting", "steps", len(sorted))

	if err := e.beginRun(ctx, runID, doc); err != nil {
		return nil, err
	}

	env := &Env{State: state, HTTP: e.http, Publisher: e.publisher, Logger: logger}
	clock := NewClock()
	result := &Result{RunID: runID, Order: make([]string, 0, len(sorted))}

	for _, step := range sorted {
		record, err := e.step(ctx, step, env, clock, runID)
		if err != nil {
			logger.Error("run failed", "step", step.Name, "error", err)
			e.metrics.observeRun(err)
			if finishErr := e.finishRun(ctx, runID, err); finishErr != nil {
				logger.Error("failed to record run failure", "error", finishErr)
			}
			return nil, err
		}
		result.Order = append(result.Order, step.Name)
		result.Steps = append(result.Steps, record)
	}

	result.Outputs = state.Outputs()
	result.Variables = state.Variables()

	e.metrics.observeRun(nil)
	if err := e.finishRun(ctx, runID, nil); err != nil {
		return nil, err
	}
	logger.Info("run completed", "steps", len(result.Order))
	return result, nil
}

func (e *Engine) step(ctx context.Context, step ir.Step, env *Env, clock *Clock, runID string) (StepRecord, error) {
	if err := ctx.Err(); err != nil {
		return StepRecord{}, err
	}

	action, err := e.actions.Lookup(step)
	if err != nil {
		return StepRecord{}, err
	}

	seq := clock.Next()
	env.Logger.Debug("executing step", "step", step.Name, "kind", step.Kind, "seq", seq)

	start := time.Now()
	value, err := action.Execute(ctx, step, env)
	elapsed := time.Since(start)
	e.metrics.observeStep(step.Kind, elapsed, err)
	if err != nil {
		return StepRecord{}, ir.WithStep(err, step.Name)
	}

	if err := env.State.SetOutput(step.Name, value); err != nil {
		return StepRecord{}, err
	}

	if e.store != nil {
		err := e.store.WriteStepResult(ctx, store.StepResult{
			RunID:    runID,
			Seq:      seq,
			Step:     step.Name,
			Kind:     string(step.Kind),
			Result:   value,
			Duration: elapsed,
		})
		if err != nil {
			return StepRecord{}, fmt.Errorf("record step %s: %w", step.Name, err)
		}
	}

	env.Logger.Debug("step completed", "step", step.Name, "duration", elapsed)
	return StepRecord{Name: step.Name, Kind: step.Kind, Seq: seq, Duration: elapsed}, nil
}

func (e *Engine) beginRun(ctx context.Context, runID string, doc *ir.Document) error {
	if e.store == nil {
		return nil
	}
	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return fmt.Errorf("hash document: %w", err)
	}
	err = e.store.WriteRun(ctx, store.Run{
		ID:            runID,
		Workflow:      doc.Name,
		DocumentHash:  hash,
		Status:        StatusRunning,
		StartedAt:     e.now().UTC(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	})
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (e *Engine) finishRun(ctx context.Context, runID string, runErr error) error {
	if e.store == nil {
		return nil
	}
	status, code, msg := StatusSucceeded, "", ""
	if runErr != nil {
		status, code, msg = StatusFailed, string(ir.CodeOf(runErr)), runErr.Error()
	}
	// A cancelled run still gets its final status.
	ctx = context.WithoutCancel(ctx)
	if err := e.store.FinishRun(ctx, runID, status, code, msg, e.now().UTC()); err != nil {
		return fmt.Errorf("record run status: %w", err)
	}
	return nil
}
