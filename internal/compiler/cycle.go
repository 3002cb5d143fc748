package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/logicflow/internal/ir"
)

// CycleWarning describes one dependency cycle found by AnalyzeGraph.
type CycleWarning struct {
	Path    []string `json:"path"`    // ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "error" for step cycles
}

// AnalyzeGraph reports every dependency cycle in the step graph.
//
// Sort stops at the first cycle it meets. AnalyzeGraph is used by the
// validate command to report all of them at once, using Tarjan's algorithm
// over the step → dependency edges. Edges to unknown steps are ignored here;
// ValidateGraph reports those.
//
// An acyclic graph returns an empty slice. Results are ordered by the
// position of each cycle's first step in the document.
func AnalyzeGraph(steps []ir.Step) []CycleWarning {
	if len(steps) == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(steps)
	order := stepNames(steps)

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph, order))
		}
	}

	slices.SortStableFunc(warnings, func(a, b CycleWarning) int {
		return slices.Index(order, a.Path[0]) - slices.Index(order, b.Path[0])
	})
	if warnings == nil {
		return []CycleWarning{}
	}
	return warnings
}

// dependencyGraph maps step name → names of the steps it depends on.
type dependencyGraph map[string][]string

func buildDependencyGraph(steps []ir.Step) dependencyGraph {
	known := make(map[string]bool, len(steps))
	for _, s := range steps {
		known[s.Name] = true
	}

	graph := make(dependencyGraph, len(steps))
	for _, s := range steps {
		edges := []string{}
		for _, dep := range s.Dependencies {
			if known[dep.Name] {
				edges = append(edges, dep.Name)
			}
		}
		graph[s.Name] = edges
	}
	return graph
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so output is deterministic.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root node: pop the component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, graph dependencyGraph, order []string) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("step depends on itself: %s -> %s", name, name),
			Level:   "error",
		}
	}

	path := reconstructCyclePath(scc, graph, order)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("cyclic dependency found: %s", strings.Join(path, " -> ")),
		Level:   "error",
	}
}

// reconstructCyclePath walks dependency edges inside the component, starting
// from the member that appears first in the document, until it returns to
// the start.
func reconstructCyclePath(scc []string, graph dependencyGraph, order []string) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	for _, name := range order {
		if members[name] {
			start = name
			break
		}
	}

	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
