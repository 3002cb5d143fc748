// Package compiler checks and orders bound workflow documents.
//
// It owns the stages between binding and execution: schema validation of the
// raw JSON against an embedded CUE definition, structural graph validation,
// dependency ordering, and trigger schedule conversion.
package compiler

import (
	"github.com/roach88/logicflow/internal/ir"
)

// visitState tracks DFS progress for a single step.
type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// Sort orders steps so that every dependency precedes its dependents.
//
// The traversal is a depth-first visit in input order: each step recurses
// into its dependencies (in declaration order) before being appended. Ties
// therefore follow input order and the result is deterministic for a fixed
// input.
//
// Revisiting a step that is still in progress fails with a CYCLIC_DEPENDENCY
// error whose message names the cycle path. A dependency on an unknown step
// fails with MISSING_REFERENCE. No partial order is returned on failure.
func Sort(steps []ir.Step) ([]ir.Step, error) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		index[s.Name] = i
	}

	states := make([]visitState, len(steps))
	ordered := make([]ir.Step, 0, len(steps))
	var path []string

	var visit func(i int) error
	visit = func(i int) error {
		switch states[i] {
		case done:
			return nil
		case inProgress:
			return ir.NewCycleError(cyclePath(path, steps[i].Name))
		}

		states[i] = inProgress
		path = append(path, steps[i].Name)

		for _, dep := range steps[i].Dependencies {
			j, ok := index[dep.Name]
			if !ok {
				err := ir.NewMissingReferenceError("step", dep.Name, stepNames(steps))
				err.Step = steps[i].Name
				return err
			}
			if err := visit(j); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		states[i] = done
		ordered = append(ordered, steps[i])
		return nil
	}

	for i := range steps {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// cyclePath extracts the cycle from the current DFS path. The returned path
// starts and ends with the step that closed the cycle.
func cyclePath(path []string, closing string) []string {
	start := 0
	for i, name := range path {
		if name == closing {
			start = i
			break
		}
	}
	cycle := append([]string(nil), path[start:]...)
	return append(cycle, closing)
}

func stepNames(steps []ir.Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}
