package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSource string

// CompileError represents a schema error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateDocument checks raw workflow JSON against the embedded CUE schema.
//
// The document is extracted with CUE's JSON decoder so that errors carry
// line and column positions in the original file, then unified with
// #Definition. Both the full document shape and a bare definition are
// accepted. Returns all schema errors found; an empty slice means the
// document is well-formed.
func ValidateDocument(filename string, data []byte) []*CompileError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("compiler: invalid embedded schema: %v", err))
	}

	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return formatCUEErrors("json", filename, err)
	}

	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return formatCUEErrors("json", filename, err)
	}
	if doc.IncompleteKind() != cue.StructKind {
		return []*CompileError{{
			Field:   "document",
			Message: "workflow document must be a JSON object",
			Pos:     doc.Pos(),
		}}
	}

	def := doc.LookupPath(cue.ParsePath("definition"))
	if !def.Exists() {
		def = doc
	}

	unified := schema.LookupPath(cue.MakePath(cue.Def("#Definition"))).Unify(def)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEErrors("cue", filename, err)
	}
	return []*CompileError{}
}

// formatCUEErrors extracts path and position info from CUE errors.
// Positions inside the workflow file are preferred over schema positions.
func formatCUEErrors(field, filename string, err error) []*CompileError {
	var out []*CompileError
	for _, e := range errors.Errors(err) {
		ce := &CompileError{Field: field, Message: e.Error()}
		if path := e.Path(); len(path) > 0 {
			ce.Field = strings.Join(path, ".")
		}

		positions := errors.Positions(e)
		for _, pos := range positions {
			if pos.Filename() == filename {
				ce.Pos = pos
				break
			}
		}
		if !ce.Pos.IsValid() && len(positions) > 0 {
			ce.Pos = positions[0]
		}
		out = append(out, ce)
	}

	if len(out) == 0 {
		out = append(out, &CompileError{Field: field, Message: err.Error()})
	}
	return out
}
