package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicflow/internal/ir"
)

func TestSortText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greet.json", greetWorkflow)

	stdout, _, err := execute(t, "sort", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Workflow dependency tree: greet")
	assert.Contains(t, stdout, "1. Greet (Compose)")
	assert.Contains(t, stdout, "2. Shout (Compose) after Greet [Succeeded]")
}

func TestSortJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greet.json", greetWorkflow)

	stdout, _, err := execute(t, "--format", "json", "sort", path)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   SortResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "greet", resp.Data.Workflow)
	require.Len(t, resp.Data.Steps, 2)
	assert.Equal(t, "Greet", resp.Data.Steps[0].Name)
	assert.Equal(t, "Shout", resp.Data.Steps[1].Name)
	assert.Equal(t, 2, resp.Data.Steps[1].Position)
}

func TestSortCycle(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cycle.json", cycleWorkflow)

	stdout, _, err := execute(t, "sort", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, string(ir.ErrCodeCyclicDependency))
}

func TestSortMissingFile(t *testing.T) {
	_, _, err := execute(t, "sort", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
