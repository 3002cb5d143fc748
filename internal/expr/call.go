package expr

import (
	"strings"

	"github.com/roach88/logicflow/internal/ir"
)

// argKind describes what a builtin accepts between its parentheses.
type argKind int

const (
	argNone  argKind = iota // guid()
	argName                 // outputs('Step')
	argValue                // base64('text') or base64(outputs('Step'))
)

// builtins is the closed expression vocabulary.
var builtins = map[string]argKind{
	"outputs":            argName,
	"parameters":         argName,
	"variables":          argName,
	"items":              argName,
	"triggerBody":        argNone,
	"guid":               argNone,
	"utcNow":             argNone,
	"encodeURIComponent": argValue,
	"base64":             argValue,
}

// call is a parsed builtin call.
type call struct {
	text string // source text without the leading '@', e.g. "outputs('A')"
	name string

	// Exactly one of literal or inner is set for argName and argValue calls.
	literal    string
	hasLiteral bool
	inner      *call
}

// segment is a piece of a scanned string leaf: literal text or a call.
type segment struct {
	text string
	call *call
}

// scanString splits s into literal text and calls.
//
// An '@' anywhere in s starts a call, not only a leading one, so a literal
// '@' must be written "@@": "user@@example.com" is the text
// user@example.com, while "user@example.com" is rejected as an
// unrecognized expression. The call's extent is found
// with a parenthesis depth counter (single-quoted arguments are skipped), so
// the call ends at the parenthesis that returns the depth to zero. The form
// @{call} is accepted as well; its closing brace must follow the call
// directly.
func scanString(s string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(s) {
		if s[i] != '@' {
			lit.WriteByte(s[i])
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '@' {
			lit.WriteByte('@')
			i += 2
			continue
		}

		braced := i+1 < len(s) && s[i+1] == '{'
		start := i + 1
		if braced {
			start = i + 2
		}

		end, err := matchParen(s, start)
		if err != nil {
			return nil, err
		}
		text := s[start:end]

		if braced {
			if end >= len(s) || s[end] != '}' {
				return nil, ir.NewUnrecognizedExpressionError(text, "property access after a call is not supported")
			}
			end++
		} else if end < len(s) && strings.ContainsRune(".[?", rune(s[end])) {
			return nil, ir.NewUnrecognizedExpressionError(s[start:], "property access after a call is not supported")
		}

		c, err := parseCall(text)
		if err != nil {
			return nil, err
		}

		flush()
		segs = append(segs, segment{call: c})
		i = end
	}
	flush()
	return segs, nil
}

// matchParen returns the index just past the parenthesis that closes the
// first '(' at or after start.
func matchParen(s string, start int) (int, error) {
	depth := 0
	inQuote := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inQuote = false
			}
			continue
		}

		switch c {
		case '\'':
			inQuote = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
			if depth < 0 {
				return 0, ir.NewUnrecognizedExpressionError(s[start:i+1], "unbalanced parentheses")
			}
		}
	}
	return 0, ir.NewUnrecognizedExpressionError(s[start:], "unterminated call")
}

// parseCall parses "name(args)" against the builtin table.
func parseCall(text string) (*call, error) {
	open := strings.IndexByte(text, '(')
	if open <= 0 || !strings.HasSuffix(text, ")") {
		return nil, ir.NewUnrecognizedExpressionError(text, "")
	}

	name := text[:open]
	kind, ok := builtins[name]
	if !ok {
		return nil, ir.NewUnrecognizedExpressionError(text, "")
	}

	c := &call{text: text, name: name}
	arg := strings.TrimSpace(text[open+1 : len(text)-1])

	switch kind {
	case argNone:
		if arg != "" {
			return nil, ir.NewUnrecognizedExpressionError(text, name+" takes no arguments")
		}
	case argName:
		lit, ok := unquote(arg)
		if !ok {
			return nil, ir.NewUnrecognizedExpressionError(text, name+" expects a quoted name")
		}
		c.literal, c.hasLiteral = lit, true
	case argValue:
		if lit, ok := unquote(arg); ok {
			c.literal, c.hasLiteral = lit, true
			break
		}
		end, err := matchParen(arg, 0)
		if err != nil || end != len(arg) {
			return nil, ir.NewUnrecognizedExpressionError(text, name+" expects a quoted string or a call")
		}
		inner, err := parseCall(arg)
		if err != nil {
			return nil, err
		}
		c.inner = inner
	}
	return c, nil
}

// unquote reads a single-quoted literal where '' escapes a quote.
func unquote(arg string) (string, bool) {
	if len(arg) < 2 || arg[0] != '\'' || arg[len(arg)-1] != '\'' {
		return "", false
	}
	body := arg[1 : len(arg)-1]
	// A lone quote inside the body means two literals, not one
	if strings.Contains(strings.ReplaceAll(body, "''", ""), "'") {
		return "", false
	}
	return strings.ReplaceAll(body, "''", "'"), true
}

// isSingleCall reports whether segs is exactly one call and nothing else.
func isSingleCall(segs []segment) bool {
	return len(segs) == 1 && segs[0].call != nil
}
