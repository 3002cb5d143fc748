package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicflow/internal/ir"
)

func TestAnalyzeGraphEmpty(t *testing.T) {
	warnings := AnalyzeGraph(nil)
	assert.Empty(t, warnings)
	assert.NotNil(t, warnings)
}

func TestAnalyzeGraphDAG(t *testing.T) {
	steps := []ir.Step{step("A"), step("B", "A"), step("C", "A", "B")}
	assert.Empty(t, AnalyzeGraph(steps))
}

func TestAnalyzeGraphSelfLoop(t *testing.T) {
	warnings := AnalyzeGraph([]ir.Step{step("A", "A")})
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "A"}, warnings[0].Path)
	assert.Equal(t, "error", warnings[0].Level)
}

func TestAnalyzeGraphReportsEveryCycle(t *testing.T) {
	steps := []ir.Step{
		step("A", "B"),
		step("B", "A"),
		step("C"),
		step("D", "E"),
		step("E", "D"),
	}

	warnings := AnalyzeGraph(steps)
	require.Len(t, warnings, 2)
	assert.Equal(t, []string{"A", "B", "A"}, warnings[0].Path)
	assert.Equal(t, []string{"D", "E", "D"}, warnings[1].Path)
	assert.Contains(t, warnings[0].Message, "A -> B -> A")
}

func TestAnalyzeGraphIgnoresUnknownEdges(t *testing.T) {
	assert.Empty(t, AnalyzeGraph([]ir.Step{step("A", "Ghost")}))
}
