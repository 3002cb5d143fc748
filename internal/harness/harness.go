package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/roach88/logicflow/internal/engine"
	"github.com/roach88/logicflow/internal/ir"
	"github.com/roach88/logicflow/internal/store"
	"github.com/roach88/logicflow/internal/testutil"
)

// Harness holds the deterministic collaborators for one scenario run.
type Harness struct {
	store  *store.Store
	mock   *engine.MockHTTP
	clock  *testutil.DeterministicClock
	guids  *testutil.SequentialGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load and parse the workflow document
// 2. Run it once through the engine with mock HTTP
// 3. Rebuild order and outputs from the store
// 4. Check the expected outcome and assertions
//
// A returned error means the scenario could not be executed at all. A run
// that fails is reported through the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	data, err := os.ReadFile(scenario.Workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	doc, err := ir.ParseDocument(ir.NameFromPath(scenario.Workflow), data)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	start, tick := scenario.clockSettings()
	h := &Harness{
		store:  st,
		mock:   engine.NewMockHTTP(scenario.HTTP),
		clock:  testutil.NewDeterministicClock(start, tick),
		guids:  testutil.NewSequentialGenerator(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	return h.run(ctx, scenario, doc)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, doc *ir.Document) (*Result, error) {
	runID := scenario.runID()
	eng := engine.New(
		engine.WithHTTP(h.mock),
		engine.WithStore(h.store),
		engine.WithRunIDs(engine.NewFixedGenerator(runID)),
		engine.WithGUIDs(h.guids),
		engine.WithNow(h.clock.Now),
		engine.WithLogger(h.logger),
	)

	result := NewResult()
	result.RunID = runID

	run, runErr := eng.Run(ctx, doc, engine.RunOptions{
		Parameters:  scenario.Parameters,
		TriggerBody: scenario.TriggerBody,
		Items:       scenario.Items,
	})

	if err := h.collect(ctx, runID, result); err != nil {
		return nil, err
	}
	if run != nil {
		for name, v := range run.Variables {
			result.Variables[name] = v.Value
		}
	}
	if runErr != nil {
		result.ErrorCode = string(ir.CodeOf(runErr))
		result.Error = runErr.Error()
	}

	checkOutcome(scenario.Expect, runErr, result)
	for _, err := range evaluateAssertions(result, scenario.Assertions) {
		result.AddError(err.Error())
	}

	return result, nil
}

// collect reads the completed steps back from the store, so a failed or
// cancelled run still reports what ran before it stopped.
func (h *Harness) collect(ctx context.Context, runID string, result *Result) error {
	steps, err := h.store.ReadStepResults(context.WithoutCancel(ctx), runID)
	if err != nil {
		return fmt.Errorf("failed to read step results: %w", err)
	}
	for _, step := range steps {
		result.Order = append(result.Order, step.Step)
		result.Outputs[step.Step] = step.Result
	}

	for _, req := range h.mock.Requests() {
		result.Requests = append(result.Requests, Request{
			Method: req.Method,
			URL:    req.URL,
			Body:   req.Body,
		})
	}
	return nil
}

// checkOutcome compares the run against the scenario's Expect clause.
func checkOutcome(expect Expect, runErr error, result *Result) {
	switch {
	case expect.Error == "" && runErr != nil:
		result.AddError(fmt.Sprintf("run failed unexpectedly: %v", runErr))
	case expect.Error != "" && runErr == nil:
		result.AddError(fmt.Sprintf("expected error %s, but the run succeeded", expect.Error))
	case expect.Error != "":
		if result.ErrorCode != expect.Error {
			result.AddError(fmt.Sprintf("expected error %s, got %s (%v)", expect.Error, displayCode(result.ErrorCode), runErr))
		}
		if expect.Step != "" {
			var e *ir.Error
			if !errors.As(runErr, &e) || e.Step != expect.Step {
				result.AddError(fmt.Sprintf("expected error in step %s, got %v", expect.Step, runErr))
			}
		}
	}

	names := make([]string, 0, len(expect.Outputs))
	for name := range expect.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		actual, ok := result.Outputs[name]
		if !ok {
			result.AddError(fmt.Sprintf("output %s: step did not complete", name))
			continue
		}
		if !matchValue(expect.Outputs[name], actual) {
			result.AddError(fmt.Sprintf("output %s: expected %s, got %s", name, render(expect.Outputs[name]), render(actual)))
		}
	}
}

func displayCode(code string) string {
	if code == "" {
		return "an uncategorized error"
	}
	return code
}
