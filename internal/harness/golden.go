package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/logicflow/internal/ir"
)

// Snapshot captures the observable outcome of a scenario run.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	Scenario  string         `json:"scenario"`
	RunID     string         `json:"run_id"`
	Order     []string       `json:"order"`
	Outputs   map[string]any `json:"outputs"`
	Requests  []Request      `json:"requests,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		Scenario:  name,
		RunID:     result.RunID,
		Order:     result.Order,
		Outputs:   result.Outputs,
		Requests:  result.Requests,
		ErrorCode: result.ErrorCode,
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. ir.MarshalCanonical only handles normalized values.
func (s Snapshot) toCanonicalMap() map[string]any {
	order := make([]any, len(s.Order))
	for i, step := range s.Order {
		order[i] = step
	}

	m := map[string]any{
		"scenario": s.Scenario,
		"run_id":   s.RunID,
		"order":    order,
		"outputs":  ir.Normalize(s.Outputs),
	}

	if len(s.Requests) > 0 {
		requests := make([]any, len(s.Requests))
		for i, req := range s.Requests {
			r := map[string]any{
				"method": req.Method,
				"url":    req.URL,
			}
			if req.Body != "" {
				r["body"] = req.Body
			}
			requests[i] = r
		}
		m["requests"] = requests
	}
	if s.ErrorCode != "" {
		m["error_code"] = s.ErrorCode
	}
	return m
}

// Marshal returns the snapshot as canonical JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass. Returns an error if the
// scenario could not be executed. Test failure (via goldie) occurs if the
// snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-computed result against a golden file,
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
