package compiler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicflow/internal/ir"
)

func step(name string, deps ...string) ir.Step {
	s := ir.Step{Name: name, Kind: ir.KindCompose}
	for _, d := range deps {
		s.Dependencies = append(s.Dependencies, ir.Dependency{Name: d, Statuses: []string{"Succeeded"}})
	}
	return s
}

func names(steps []ir.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Name
	}
	return out
}

func TestSortEmpty(t *testing.T) {
	ordered, err := Sort(nil)
	require.NoError(t, err)
	assert.Empty(t, ordered)
}

func TestSortDependenciesFirst(t *testing.T) {
	steps := []ir.Step{
		step("Send", "Build", "Init"),
		step("Build", "Init"),
		step("Init"),
	}

	ordered, err := Sort(steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"Init", "Build", "Send"}, names(ordered))
}

func TestSortTiesFollowInputOrder(t *testing.T) {
	steps := []ir.Step{step("C"), step("A"), step("B")}

	ordered, err := Sort(steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, names(ordered))
}

func TestSortDependencyDeclarationOrder(t *testing.T) {
	steps := []ir.Step{step("Z", "Y", "X"), step("X"), step("Y")}

	ordered, err := Sort(steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "X", "Z"}, names(ordered))
}

func TestSortCycle(t *testing.T) {
	steps := []ir.Step{step("A", "B"), step("B", "C"), step("C", "A")}

	ordered, err := Sort(steps)
	require.Error(t, err)
	assert.Nil(t, ordered, "no partial order on failure")
	assert.True(t, ir.IsCyclicDependency(err))
	assert.Contains(t, err.Error(), "A -> B -> C -> A")
}

func TestSortSelfCycle(t *testing.T) {
	_, err := Sort([]ir.Step{step("Init"), step("Loop", "Init", "Loop")})
	require.Error(t, err)
	assert.True(t, ir.IsCyclicDependency(err))
	assert.Contains(t, err.Error(), "Loop -> Loop")
}

func TestSortCycleBehindAcyclicPrefix(t *testing.T) {
	// Only B and C form the cycle; A must not appear in the reported path
	steps := []ir.Step{step("A", "B"), step("B", "C"), step("C", "B")}

	_, err := Sort(steps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic dependency found: B -> C -> B")
}

func TestSortUnknownDependency(t *testing.T) {
	_, err := Sort([]ir.Step{step("A", "Ghost")})
	require.Error(t, err)
	assert.True(t, ir.IsMissingReference(err))
	assert.Contains(t, err.Error(), "Ghost")
	assert.Contains(t, err.Error(), "step=A")
}

func TestSortDeterministic(t *testing.T) {
	steps := []ir.Step{
		step("E", "D", "B"),
		step("D", "A"),
		step("B", "A"),
		step("A"),
		step("C"),
	}

	first, err := Sort(steps)
	require.NoError(t, err)
	for range 10 {
		again, err := Sort(steps)
		require.NoError(t, err)
		assert.Equal(t, names(first), names(again))
	}
}

// TestSortRespectsEveryEdge sorts random DAGs and checks that each
// dependency lands before its dependent.
func TestSortRespectsEveryEdge(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := range 50 {
		n := 2 + rng.Intn(12)
		steps := make([]ir.Step, n)
		for i := range n {
			var deps []string
			// Edges only point to lower indices, so the graph is acyclic
			for j := range i {
				if rng.Intn(3) == 0 {
					deps = append(deps, fmt.Sprintf("s%d", j))
				}
			}
			steps[i] = step(fmt.Sprintf("s%d", i), deps...)
		}
		rng.Shuffle(n, func(a, b int) { steps[a], steps[b] = steps[b], steps[a] })

		ordered, err := Sort(steps)
		require.NoError(t, err, "trial %d", trial)
		require.Len(t, ordered, n)

		position := make(map[string]int, n)
		for i, s := range ordered {
			position[s.Name] = i
		}
		for _, s := range ordered {
			for _, dep := range s.Dependencies {
				assert.Less(t, position[dep.Name], position[s.Name],
					"trial %d: %s must precede %s", trial, dep.Name, s.Name)
			}
		}
	}
}
