package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/logicflow/internal/engine"
)

// DefaultRunID is the run ID used when a scenario does not set one.
const DefaultRunID = "test-run-default"

// Scenario defines a workflow test scenario.
// A scenario runs one workflow document once and checks the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Workflow is the path to the workflow JSON document.
	// Relative paths are resolved against the scenario file's directory.
	Workflow string `yaml:"workflow"`

	// RunID fixes the run ID. Defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Now fixes the clock behind utcNow(), as RFC 3339. Defaults to
	// testutil.DefaultStart. The clock is frozen unless Tick is set.
	Now string `yaml:"now,omitempty"`

	// Tick advances the clock on every read, e.g. "1s".
	Tick string `yaml:"tick,omitempty"`

	// Parameters override the document's parameter defaults.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// TriggerBody is what triggerBody() returns.
	TriggerBody any `yaml:"trigger_body,omitempty"`

	// Items pre-binds loop items for items() lookups.
	Items map[string]any `yaml:"items,omitempty"`

	// HTTP maps "METHOD url" or "url" to a canned response.
	HTTP map[string]engine.MockResponse `yaml:"http,omitempty"`

	// Expect describes the run's overall outcome.
	Expect Expect `yaml:"expect"`

	// Assertions are extra checks against the completed run.
	// Supported types: output, order, request, variable
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies the expected run outcome.
type Expect struct {
	// Error is the expected error code (e.g. "MISSING_REFERENCE").
	// Empty means the run must succeed.
	Error string `yaml:"error,omitempty"`

	// Step is the step the error must name. Only checked when Error is set.
	Step string `yaml:"step,omitempty"`

	// Outputs contains expected step results.
	// This is a subset match - only specified fields are validated.
	Outputs map[string]any `yaml:"outputs,omitempty"`
}

// Assertion checks one aspect of a completed run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output": a step's result, or a gjson path into it, matches Value
	// - "order": Steps completed in this relative order
	// - "request": the mock received a matching request
	// - "variable": a variable's final value matches Value
	Type string `yaml:"type"`

	// Step is the step whose result is checked (used by output).
	Step string `yaml:"step,omitempty"`

	// Path is an optional gjson path into the step result (used by output).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value (used by output, variable).
	// Subset match for objects.
	Value any `yaml:"value,omitempty"`

	// Steps is the expected relative order (used by order).
	Steps []string `yaml:"steps,omitempty"`

	// Method and URL select requests (used by request). URL matches with or
	// without the query string.
	Method string `yaml:"method,omitempty"`
	URL    string `yaml:"url,omitempty"`

	// Count is the exact number of matching requests (used by request).
	// Zero means at least one.
	Count int `yaml:"count,omitempty"`

	// Variable is the variable name (used by variable).
	Variable string `yaml:"variable,omitempty"`
}

// Assertion type constants.
const (
	AssertOutput   = "output"
	AssertOrder    = "order"
	AssertRequest  = "request"
	AssertVariable = "variable"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Workflow != "" && !filepath.IsAbs(scenario.Workflow) {
		scenario.Workflow = filepath.Join(filepath.Dir(path), scenario.Workflow)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if _, err := os.Stat(scenario.Workflow); err != nil {
		return nil, fmt.Errorf("invalid scenario: workflow file not found: %s", scenario.Workflow)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without resolving or checking the
// workflow path.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Workflow == "" {
		return fmt.Errorf("workflow is required")
	}

	if s.Expect.Error == "" && len(s.Expect.Outputs) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("scenario checks nothing: set expect.error, expect.outputs or assertions")
	}

	if s.Expect.Step != "" && s.Expect.Error == "" {
		return fmt.Errorf("expect.step requires expect.error")
	}

	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	if s.Tick != "" {
		d, err := time.ParseDuration(s.Tick)
		if err != nil {
			return fmt.Errorf("tick: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("tick must be non-negative, got %s", s.Tick)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutput:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for output", index)
		}
	case AssertOrder:
		if len(a.Steps) < 2 {
			return fmt.Errorf("assertions[%d]: order needs at least two steps", index)
		}
	case AssertRequest:
		if a.URL == "" {
			return fmt.Errorf("assertions[%d]: url is required for request", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for request", index)
		}
	case AssertVariable:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for variable", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// clockSettings returns the scenario's start instant and tick.
// The scenario must have passed validation.
func (s *Scenario) clockSettings() (time.Time, time.Duration) {
	var start time.Time
	if s.Now != "" {
		start, _ = time.Parse(time.RFC3339, s.Now)
	}
	var tick time.Duration
	if s.Tick != "" {
		tick, _ = time.ParseDuration(s.Tick)
	}
	return start, tick
}

func (s *Scenario) runID() string {
	if s.RunID == "" {
		return DefaultRunID
	}
	return s.RunID
}
