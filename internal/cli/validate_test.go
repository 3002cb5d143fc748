package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidWorkflow(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greet.json", greetWorkflow)

	stdout, _, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓")
	assert.Contains(t, stdout, "(2 steps)")
}

func TestValidateValidWorkflowJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greet.json", greetWorkflow)

	stdout, _, err := execute(t, "--format", "json", "validate", path)
	require.NoError(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   []ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Valid)
	assert.Equal(t, 2, resp.Data[0].Steps)
	assert.Empty(t, resp.Data[0].Errors)
}

func TestValidateNonExistentFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")

	stdout, _, err := execute(t, "validate", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeNotFound+"]")
}

func TestValidateCycle(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cycle.json", cycleWorkflow)

	stdout, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗")
	assert.Contains(t, stdout, ErrCodeCycle)
}

func TestValidateCycleJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cycle.json", cycleWorkflow)

	stdout, _, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   []ValidationResult `json:"data"`
		Error  *CLIError          `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCycle, resp.Error.Code)
	require.Len(t, resp.Data, 1)
	assert.False(t, resp.Data[0].Valid)
	assert.NotEmpty(t, resp.Data[0].Cycles)
}

func TestValidateUnknownDependency(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dangling.json", `{
  "definition": {
    "actions": {
      "A": {"type": "Compose", "inputs": "a", "runAfter": {"Ghost": ["Succeeded"]}}
    }
  }
}`)

	stdout, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "E103")
	assert.Contains(t, stdout, "Ghost")
}

func TestValidateSchemaViolation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "teleport.json", `{
  "definition": {
    "actions": {
      "A": {"type": "Teleport"}
    }
  }
}`)

	stdout, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeSchema)
}

func TestValidateMultipleWorkflows(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "greet.json", greetWorkflow)
	bad := writeFile(t, dir, "cycle.json", cycleWorkflow)

	stdout, _, err := execute(t, "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed for 1 workflow(s)")
	assert.Contains(t, stdout, "✓ "+good)
	assert.Contains(t, stdout, "✗ "+bad)
}

func TestValidateVerboseOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greet.json", greetWorkflow)

	_, stderr, err := execute(t, "--verbose", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Validating")
}

func TestValidateRequiresArgs(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
}
