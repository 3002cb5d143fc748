package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordRun runs path with a history database and returns the run ID.
func recordRun(t *testing.T, db, path string) string {
	t.Helper()
	stdout, _, err := execute(t, "--format", "json", "run", path, "--db", db)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotEmpty(t, resp.RunID)
	return resp.RunID
}

func TestHistoryListsRuns(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	runID := recordRun(t, db, writeFile(t, dir, "greet.json", greetWorkflow))

	stdout, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, runID)
	assert.Contains(t, stdout, "succeeded")
	assert.Contains(t, stdout, "greet")
}

func TestHistoryRecordsFailures(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	path := writeFile(t, dir, "forward.json", missingReferenceWorkflow)

	_, _, err := execute(t, "run", path, "--db", db)
	require.Error(t, err)

	stdout, _, err := execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "failed", resp.Data[0].Status)
	assert.Equal(t, "MISSING_REFERENCE", resp.Data[0].ErrorCode)
	assert.Equal(t, "forward", resp.Data[0].Workflow)
}

func TestHistoryWorkflowFilter(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	recordRun(t, db, writeFile(t, dir, "greet.json", greetWorkflow))
	recordRun(t, db, writeFile(t, dir, "other.json", greetWorkflow))

	stdout, _, err := execute(t, "--format", "json", "history", "--db", db, "--workflow", "other")
	require.NoError(t, err)

	var resp struct {
		Data []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "other", resp.Data[0].Workflow)
}

func TestHistoryRunDetail(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	runID := recordRun(t, db, writeFile(t, dir, "greet.json", greetWorkflow))

	stdout, _, err := execute(t, "--format", "json", "history", "--db", db, "--run", runID)
	require.NoError(t, err)

	var resp struct {
		Data RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, runID, resp.Data.ID)
	assert.NotEmpty(t, resp.Data.DocumentHash)
	require.Len(t, resp.Data.Steps, 2)
	assert.Equal(t, "Greet", resp.Data.Steps[0].Step)
	assert.Equal(t, "hello", resp.Data.Steps[0].Result)
	assert.Equal(t, "Shout", resp.Data.Steps[1].Step)
	assert.Equal(t, "hello world", resp.Data.Steps[1].Result)
}

func TestHistoryRunDetailText(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	runID := recordRun(t, db, writeFile(t, dir, "greet.json", greetWorkflow))

	stdout, _, err := execute(t, "history", "--db", db, "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Run "+runID+" (greet)")
	assert.Contains(t, stdout, "status:  succeeded")
	assert.Contains(t, stdout, `Shout (Compose) = "hello world"`)
}

func TestHistoryUnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := execute(t, "history", "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestHistoryEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	stdout, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded.")
}

func TestHistoryRequiresDatabase(t *testing.T) {
	_, _, err := execute(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
