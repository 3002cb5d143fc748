package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitToStdout(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greet.json", greetWorkflow)

	stdout, _, err := execute(t, "emit", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "package workflow")
	assert.NotContains(t, stdout, "✓")
}

func TestEmitPackageFlag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greet.json", greetWorkflow)

	stdout, _, err := execute(t, "emit", "-p", "greetings", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "package greetings")
}

func TestEmitToFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "greet.json", greetWorkflow)
	out := filepath.Join(dir, "greet.go")

	stdout, _, err := execute(t, "emit", "-o", out, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ greet: 2 step(s)")
	assert.Contains(t, stdout, "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "package workflow")
}

func TestEmitToBucket(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "greet.json", greetWorkflow)
	bucketDir := filepath.Join(dir, "units")
	require.NoError(t, os.MkdirAll(bucketDir, 0755))

	stdout, _, err := execute(t, "--format", "json", "emit", "--bucket", "file://"+bucketDir, path)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   EmitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"greet/workflow.go", "greet/artifacts.json"}, resp.Data.Written)
	assert.Empty(t, resp.Data.Source, "source is not echoed when written elsewhere")

	data, err := os.ReadFile(filepath.Join(bucketDir, "greet", "workflow.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package workflow")

	_, err = os.Stat(filepath.Join(bucketDir, "greet", "artifacts.json"))
	require.NoError(t, err)
}

func TestEmitJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greet.json", greetWorkflow)

	stdout, _, err := execute(t, "--format", "json", "emit", "-p", "greetings", path)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   EmitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "greet", resp.Data.Workflow)
	assert.Equal(t, "greetings", resp.Data.Package)
	assert.Equal(t, []string{"Greet", "Shout"}, resp.Data.Order)
	assert.Contains(t, resp.Data.Source, "package greetings")
}

func TestEmitCycleFails(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cycle.json", cycleWorkflow)

	_, _, err := execute(t, "emit", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to emit workflow")
}

func TestEmitMissingFile(t *testing.T) {
	_, _, err := execute(t, "emit", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
	assert.Equal(t, "", firstNonEmpty())
}
