package expr

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/logicflow/internal/ir"
)

// Context describes the step whose inputs are being emitted.
type Context struct {
	// Step is the name of the step being translated.
	Step string

	// OutOfProcess is set when the step's code runs in an isolated worker.
	// Context-bound calls then become deferred parameters instead of
	// orchestrator lookups.
	OutOfProcess bool
}

// Param is a deferred parameter: a value computed in the orchestrator and
// passed to an out-of-process step through its activity input.
type Param struct {
	Type   string // Go type in the activity ("any" or "string")
	Name   string // sanitized local variable name
	Source string // orchestrator expression producing the value
}

// Effects are the side results of translating one node.
type Effects struct {
	// Params lists deferred parameters per step, in discovery order.
	// A source appears at most once per step, and names are unique
	// within a step.
	Params map[string][]Param

	// TriggerBody is set when triggerBody() was referenced.
	TriggerBody bool
}

// Merge adds other's effects to e.
func (e *Effects) Merge(other Effects) {
	e.TriggerBody = e.TriggerBody || other.TriggerBody
	for step, params := range other.Params {
		for _, p := range params {
			e.addParam(step, p)
		}
	}
}

// addParam records p unless its source is already recorded for step.
// Names are kept as they are, since templates already refer to them.
func (e *Effects) addParam(step string, p Param) {
	if e.Params == nil {
		e.Params = make(map[string][]Param)
	}
	for _, existing := range e.Params[step] {
		if existing.Source == p.Source {
			return
		}
	}
	e.Params[step] = append(e.Params[step], p)
}

// bind records p for step and returns the local name holes must use.
// A source already bound keeps its name. Two sources whose names sanitize
// to the same identifier, such as variables('a_b') and variables('aB'),
// are told apart by a numeric suffix on the later one.
func (e *Effects) bind(step string, p Param) string {
	for _, existing := range e.Params[step] {
		if existing.Source == p.Source {
			return existing.Name
		}
	}
	base := p.Name
	for n := 2; e.nameTaken(step, p.Name); n++ {
		p.Name = base + strconv.Itoa(n)
	}
	e.addParam(step, p)
	return p.Name
}

func (e *Effects) nameTaken(step, name string) bool {
	for _, existing := range e.Params[step] {
		if existing.Name == name {
			return true
		}
	}
	return false
}

// ParamsFor returns the deferred parameters recorded for step.
func (e Effects) ParamsFor(step string) []Param {
	return e.Params[step]
}

// Mode selects how a tree is rendered into a template.
type Mode int

const (
	// ModeJSON renders the tree as JSON text. Whole-leaf calls become bare
	// holes; calls inside string leaves become holes inside the JSON string.
	ModeJSON Mode = iota

	// ModeText renders a string leaf as plain text.
	ModeText
)

// Emit rewrites node into a template for the step described by ctx.
//
// Objects are rendered with keys in sorted order and arrays in order.
// Non-string leaves are written as JSON literals. String leaves are scanned
// for calls; each call becomes an interpolation hole holding the rewritten
// Go expression.
func Emit(node any, mode Mode, ctx Context) (Template, Effects, error) {
	var b strings.Builder
	var effects Effects

	var err error
	if mode == ModeText {
		err = emitText(&b, node, ctx, &effects)
	} else {
		err = emitJSON(&b, node, ctx, &effects)
	}
	if err != nil {
		return Template{}, Effects{}, ir.WithStep(err, ctx.Step)
	}

	var bound []string
	for _, p := range effects.ParamsFor(ctx.Step) {
		bound = append(bound, p.Name)
	}
	return Template{Text: closeHoles(b.String(), bound), Mode: mode}, effects, nil
}

// EmitString is Emit in text mode, for inputs consumed as plain strings
// such as a URI or a header value.
func EmitString(node any, ctx Context) (Template, Effects, error) {
	return Emit(node, ModeText, ctx)
}

// emitJSON writes node as JSON template text.
func emitJSON(b *strings.Builder, node any, ctx Context, effects *Effects) error {
	switch v := node.(type) {
	case map[string]any:
		b.WriteString("{{")
		for i, key := range ir.SortedKeys(v) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(`""`)
			b.WriteString(escapeLiteral(jsonStringBody(key)))
			b.WriteString(`"":`)
			if err := emitJSON(b, v[key], ctx, effects); err != nil {
				return err
			}
		}
		b.WriteString("}}")
		return nil

	case []any:
		b.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := emitJSON(b, elem, ctx, effects); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil

	case string:
		segs, err := scanString(v)
		if err != nil {
			return err
		}
		if isSingleCall(segs) {
			return writeHole(b, segs[0].call, ctx, effects)
		}
		b.WriteString(`""`)
		for _, seg := range segs {
			if seg.call == nil {
				b.WriteString(escapeLiteral(jsonStringBody(seg.text)))
				continue
			}
			if err := writeHole(b, seg.call, ctx, effects); err != nil {
				return err
			}
		}
		b.WriteString(`""`)
		return nil

	default:
		data, err := ir.MarshalCanonical(ir.Normalize(v))
		if err != nil {
			return err
		}
		b.WriteString(escapeLiteral(string(data)))
		return nil
	}
}

// emitText writes node as text template. Non-string nodes are written as
// their JSON text.
func emitText(b *strings.Builder, node any, ctx Context, effects *Effects) error {
	s, ok := node.(string)
	if !ok {
		data, err := ir.MarshalCanonical(ir.Normalize(node))
		if err != nil {
			return err
		}
		b.WriteString(escapeLiteral(string(data)))
		return nil
	}

	segs, err := scanString(s)
	if err != nil {
		return err
	}
	for _, seg := range segs {
		if seg.call == nil {
			b.WriteString(escapeLiteral(seg.text))
			continue
		}
		if err := writeHole(b, seg.call, ctx, effects); err != nil {
			return err
		}
	}
	return nil
}

// writeHole opens an interpolation hole and writes the rewritten call.
// The hole is left open; closeHoles adds the closing brace.
func writeHole(b *strings.Builder, c *call, ctx Context, effects *Effects) error {
	code, err := rewrite(c, ctx, effects)
	if err != nil {
		return err
	}
	b.WriteByte('{')
	b.WriteString(code)
	return nil
}

// rewrite turns a call into a Go expression.
//
// In the orchestrator, outputs, parameters and variables are lookups in the
// workflow state, and guid, utcNow and triggerBody are calls taking the
// orchestration context. guid is a state method: it numbers the identifiers
// it derives so that they stay stable across replays. Out of process, each of those becomes a deferred
// parameter bound to a local variable. encodeURIComponent and base64 need no
// context and are direct calls in both places.
//
// Deferred parameters are bound in effects, which spans the whole node
// being emitted, so that every hole of a step agrees on their names.
func rewrite(c *call, ctx Context, effects *Effects) (string, error) {
	deferred := func(typ, name, source string) string {
		if !ctx.OutOfProcess {
			return source
		}
		return effects.bind(ctx.Step, Param{Type: typ, Name: SanitizeName(name), Source: source})
	}

	switch c.name {
	case "outputs":
		return deferred("any", "outputs_"+c.literal, "state.Outputs["+strconv.Quote(c.literal)+"]"), nil
	case "parameters":
		return deferred("any", "parameters_"+c.literal, "state.Parameters["+strconv.Quote(c.literal)+"]"), nil
	case "variables":
		return deferred("any", "variables_"+c.literal, "state.Variables["+strconv.Quote(c.literal)+"]"), nil
	case "triggerBody":
		effects.TriggerBody = true
		return deferred("any", "triggerBody", "triggerBody(ctx)"), nil
	case "guid":
		return deferred("string", "guid", "state.guid(ctx)"), nil
	case "utcNow":
		return deferred("string", "utcNow", "utcNow(ctx)"), nil
	case "encodeURIComponent", "base64":
		if c.hasLiteral {
			return c.name + "(" + strconv.Quote(c.literal) + ")", nil
		}
		inner, err := rewrite(c.inner, ctx, effects)
		if err != nil {
			return "", err
		}
		return c.name + "(" + inner + ")", nil
	case "items":
		return "", ir.NewUnrecognizedExpressionError(c.text, "items are only available when interpreting")
	}
	return "", ir.NewUnrecognizedExpressionError(c.text, "")
}

// jsonStringBody escapes s for use inside a JSON string, without the quotes.
func jsonStringBody(s string) string {
	data, err := ir.MarshalCanonical(s)
	if err != nil {
		return s
	}
	return string(data[1 : len(data)-1])
}

// escapeLiteral doubles the characters that have meaning in a template.
func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

var literalEscaper = strings.NewReplacer("{", "{{", "}", "}}", `"`, `""`)

// closeHoles closes every interpolation hole in a template.
//
// A hole opened with a single '{' ends where its Go expression ends: right
// after a bound parameter name, right after the bracket that brings the
// nesting depth back to zero, or before the first character at depth zero
// that cannot be part of an operand. When the scan reaches the end of the
// text, the closing brace is appended there.
func closeHoles(s string, bound []string) string {
	// Longest names first so that "outputsAB" is not read as "outputsA"
	bound = slices.Clone(bound)
	slices.SortFunc(bound, func(a, b string) int { return len(b) - len(a) })

	var out strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if (c == '{' || c == '}' || c == '"') && i+1 < len(s) && s[i+1] == c {
			out.WriteString(s[i : i+2])
			i += 2
			continue
		}
		if c != '{' {
			out.WriteByte(c)
			i++
			continue
		}

		end := holeEnd(s, i+1, bound)
		out.WriteString(s[i:end])
		out.WriteByte('}')
		i = end
	}
	return out.String()
}

// holeEnd returns the index just past the Go expression starting at start.
func holeEnd(s string, start int, bound []string) int {
	for _, name := range bound {
		if strings.HasPrefix(s[start:], name) {
			return start + len(name)
		}
	}

	depth := 0
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			i = skipGoString(s, i)
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		case depth == 0 && !isOperandByte(c):
			return i
		}
	}
	return len(s)
}

// skipGoString returns the index of the closing quote of the Go string
// literal opening at s[i].
func skipGoString(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return len(s) - 1
}

func isOperandByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
