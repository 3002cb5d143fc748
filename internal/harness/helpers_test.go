package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeWorkflow writes a workflow document into dir and returns its path.
func writeWorkflow(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const counterWorkflow = `{"actions": {
	"Init": {"type": "InitializeVariable", "inputs": {"variables": [{"name": "counter", "type": "Integer", "value": "@parameters('start')"}]}},
	"Increment": {"type": "IncrementVariable", "inputs": {"name": "counter", "value": 3}, "runAfter": {"Init": ["Succeeded"]}},
	"Report": {"type": "Compose", "inputs": {"counter": "@variables('counter')", "at": "@utcNow()", "id": "@guid()"}, "runAfter": {"Increment": ["Succeeded"]}}
}, "parameters": {"start": {"type": "Int", "defaultValue": 5}}}`

func counterScenario(t *testing.T) *Scenario {
	t.Helper()
	return &Scenario{
		Name:        "counter",
		Description: "Counter ends at start plus three",
		Workflow:    writeWorkflow(t, t.TempDir(), "counter.json", counterWorkflow),
		Expect: Expect{
			Outputs: map[string]any{
				"Increment": map[string]any{"name": "counter", "value": 8},
			},
		},
	}
}
