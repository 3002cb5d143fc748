package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// greetWorkflow composes a greeting from a parameter and runs every two
// hours.
const greetWorkflow = `{
  "definition": {
    "parameters": {
      "greeting": {"type": "String", "defaultValue": "hello"}
    },
    "triggers": {
      "every": {"type": "Recurrence", "recurrence": {"frequency": "Hour", "interval": 2}}
    },
    "actions": {
      "Greet": {"type": "Compose", "inputs": "@parameters('greeting')"},
      "Shout": {
        "type": "Compose",
        "inputs": "@{outputs('Greet')} world",
        "runAfter": {"Greet": ["Succeeded"]}
      }
    }
  }
}`

// fetchWorkflow calls one HTTP endpoint.
const fetchWorkflow = `{
  "definition": {
    "actions": {
      "Fetch": {
        "type": "Http",
        "inputs": {"method": "GET", "uri": "https://api.example.com/status"}
      }
    }
  }
}`

// cycleWorkflow has two steps waiting on each other.
const cycleWorkflow = `{
  "definition": {
    "actions": {
      "A": {"type": "Compose", "inputs": "a", "runAfter": {"B": ["Succeeded"]}},
      "B": {"type": "Compose", "inputs": "b", "runAfter": {"A": ["Succeeded"]}}
    }
  }
}`

// missingReferenceWorkflow reads the output of a step that does not exist.
const missingReferenceWorkflow = `{
  "definition": {
    "actions": {
      "Forward": {"type": "Compose", "inputs": "@outputs('Nope')"}
    }
  }
}`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}
