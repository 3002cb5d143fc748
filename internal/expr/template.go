package expr

import (
	"strconv"
	"strings"
)

// Helper functions that generated code must define. Lowered templates call
// them to render hole values.
const (
	HelperToJSON         = "toJSON"         // whole JSON value
	HelperToJSONFragment = "toJSONFragment" // escaped text inside a JSON string
	HelperToText         = "toText"         // plain text
)

// Template is translated tree text with interpolation holes.
//
// Literal '{', '}' and '"' are doubled. A single '{' opens a hole holding a
// Go expression, closed by a single '}'.
type Template struct {
	Text string
	Mode Mode
}

// Lower renders the template as a Go expression of type string.
//
// A template without holes is a string literal. A template that is one hole
// and nothing else is the hole's helper call. Anything else becomes a
// fmt.Sprintf call with one %s per hole.
func (t Template) Lower() string {
	var format, literal strings.Builder
	var args []string

	inString := false
	escaped := false
	emitLiteral := func(c byte) {
		literal.WriteByte(c)
		if c == '%' {
			format.WriteString("%%")
		} else {
			format.WriteByte(c)
		}

		if t.Mode != ModeJSON {
			return
		}
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		}
	}

	s := t.Text
	for i := 0; i < len(s); {
		c := s[i]
		if (c == '{' || c == '}' || c == '"') && i+1 < len(s) && s[i+1] == c {
			emitLiteral(c)
			i += 2
			continue
		}
		if c != '{' {
			emitLiteral(c)
			i++
			continue
		}

		end := closingBrace(s, i+1)
		args = append(args, t.helper(inString)+"("+s[i+1:end]+")")
		format.WriteString("%s")
		i = end + 1
	}

	switch {
	case len(args) == 0:
		return strconv.Quote(literal.String())
	case len(args) == 1 && format.String() == "%s":
		return args[0]
	default:
		return "fmt.Sprintf(" + strconv.Quote(format.String()) + ", " + strings.Join(args, ", ") + ")"
	}
}

// Holes returns the Go expressions of every hole in order.
func (t Template) Holes() []string {
	var holes []string
	s := t.Text
	for i := 0; i < len(s); {
		c := s[i]
		if (c == '{' || c == '}' || c == '"') && i+1 < len(s) && s[i+1] == c {
			i += 2
			continue
		}
		if c != '{' {
			i++
			continue
		}
		end := closingBrace(s, i+1)
		holes = append(holes, s[i+1:end])
		i = end + 1
	}
	return holes
}

func (t Template) helper(inString bool) string {
	switch {
	case t.Mode == ModeText:
		return HelperToText
	case inString:
		return HelperToJSONFragment
	default:
		return HelperToJSON
	}
}

// closingBrace returns the index of the '}' that closes a hole whose
// expression starts at start. Brackets and Go string literals are skipped.
func closingBrace(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '"':
			i = skipGoString(s, i)
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				return i
			}
		}
	}
	return len(s)
}
