package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicflow/internal/testutil"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/order_notification.yaml")
	require.NoError(t, err)

	assert.Equal(t, "order_notification", scenario.Name)
	assert.Equal(t, filepath.Join("testdata", "workflows", "order-notification.json"), scenario.Workflow)
	assert.Equal(t, "A-17", scenario.TriggerBody)
	require.Contains(t, scenario.HTTP, "GET https://api.example.com/orders")
	assert.Equal(t, 200, scenario.HTTP["GET https://api.example.com/orders"].Status)
	assert.Len(t, scenario.Assertions, 5)
	assert.Equal(t, AssertOrder, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "wf.json", `{"actions": {}}`)
	path := filepath.Join(dir, "s.yaml")
	content := `
name: typo
description: "has a typo"
workflow: wf.json
expect:
  error: MISSING_REFERENCE
assertion:
  - type: order
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_WorkflowNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	content := `
name: lost
description: "points at nothing"
workflow: missing.json
expect:
  error: MISSING_REFERENCE
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow file not found")
}

func TestLoadScenario_AbsoluteWorkflowKept(t *testing.T) {
	dir := t.TempDir()
	wf := writeWorkflow(t, dir, "wf.json", `{"actions": {}}`)
	path := filepath.Join(t.TempDir(), "s.yaml")
	content := "name: abs\ndescription: d\nworkflow: " + wf + "\nexpect:\n  error: CYCLIC_DEPENDENCY\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, wf, scenario.Workflow)
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Workflow:    "wf.json",
			Expect:      Expect{Error: "MISSING_REFERENCE"},
		}
	}

	tests := []struct {
		name   string
		mutate func(s *Scenario)
		errMsg string
	}{
		{"valid", func(s *Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"missing workflow", func(s *Scenario) { s.Workflow = "" }, "workflow is required"},
		{"checks nothing", func(s *Scenario) { s.Expect = Expect{} }, "scenario checks nothing"},
		{"step without error", func(s *Scenario) {
			s.Expect = Expect{Step: "A", Outputs: map[string]any{"A": 1}}
		}, "expect.step requires expect.error"},
		{"bad now", func(s *Scenario) { s.Now = "yesterday" }, "now:"},
		{"bad tick", func(s *Scenario) { s.Tick = "often" }, "tick:"},
		{"negative tick", func(s *Scenario) { s.Tick = "-1s" }, "tick must be non-negative"},
		{"assertion without type", func(s *Scenario) {
			s.Assertions = []Assertion{{}}
		}, "assertions[0]: type is required"},
		{"unknown assertion", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: "trace_contains"}}
		}, `unknown assertion type "trace_contains"`},
		{"output without step", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertOutput}}
		}, "step is required for output"},
		{"order with one step", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertOrder, Steps: []string{"A"}}}
		}, "order needs at least two steps"},
		{"request without url", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertRequest, Method: "GET"}}
		}, "url is required for request"},
		{"request negative count", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertRequest, URL: "https://x", Count: -1}}
		}, "count must be non-negative"},
		{"variable without name", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertVariable}}
		}, "variable is required for variable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := validateScenario(s)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestScenarioClockSettings(t *testing.T) {
	s := &Scenario{}
	start, tick := s.clockSettings()
	assert.True(t, start.IsZero())
	assert.Zero(t, tick)
	assert.Equal(t, DefaultRunID, s.runID())

	s = &Scenario{Now: "2024-05-01T12:00:00Z", Tick: "1s", RunID: "run-9"}
	start, tick = s.clockSettings()
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, time.Second, tick)
	assert.Equal(t, "run-9", s.runID())

	assert.False(t, testutil.DefaultStart.IsZero())
}
