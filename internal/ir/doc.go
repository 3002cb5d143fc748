// Package ir provides the workflow graph types shared by every logicflow package.
//
// A workflow document is bound once into an immutable Document: triggers, steps,
// declared parameters and the dependency edges between steps. The compiler sorts
// and validates it, the engine interprets it, and codegen emits source from it.
//
// This package imports nothing internal, so it stays the foundational layer with
// no circular dependencies. It also hosts the error taxonomy (Error, ErrorCode)
// because every stage reports through it, and the canonical JSON encoding used
// to hash documents and persist run results.
//
// Values inside step inputs are plain Go JSON values after normalization:
// nil, bool, string, int64, float64, []any and map[string]any. Integral JSON
// numbers always become int64 so that Integer variables keep their type.
package ir
