package expr

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/logicflow/internal/ir"
)

// TimeLayout is the format utcNow() produces.
const TimeLayout = "2006-01-02T15:04:05.0000000Z"

// Resolver supplies runtime values to Evaluate.
//
// Lookups of unknown names must fail with a MISSING_REFERENCE error that
// lists the available keys.
type Resolver interface {
	Output(name string) (any, error)
	Parameter(name string) (any, error)
	Variable(name string) (any, error)
	Item(name string) (any, error)
	TriggerBody() any
	NewGUID() string
	Now() time.Time
}

// Evaluate resolves every call in node against r.
//
// Objects and arrays are rebuilt with each child evaluated; non-string
// leaves are returned unchanged. A string leaf that is exactly one call
// evaluates to the referenced value, keeping its structure. A string mixing
// text and calls evaluates to a string with each value rendered by
// Stringify.
//
// Calls are found anywhere in a string, so a literal '@', as in an email
// address, must be written "@@".
func Evaluate(node any, r Resolver) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			val, err := Evaluate(child, r)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			val, err := Evaluate(child, r)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil

	case string:
		return evaluateString(v, r)

	default:
		return v, nil
	}
}

// EvaluateString evaluates node and renders the result as text.
func EvaluateString(node any, r Resolver) (string, error) {
	v, err := Evaluate(node, r)
	if err != nil {
		return "", err
	}
	return Stringify(v), nil
}

func evaluateString(s string, r Resolver) (any, error) {
	segs, err := scanString(s)
	if err != nil {
		return nil, err
	}
	if isSingleCall(segs) {
		return evalCall(segs[0].call, r)
	}

	var b strings.Builder
	for _, seg := range segs {
		if seg.call == nil {
			b.WriteString(seg.text)
			continue
		}
		v, err := evalCall(seg.call, r)
		if err != nil {
			return nil, err
		}
		b.WriteString(Stringify(v))
	}
	return b.String(), nil
}

func evalCall(c *call, r Resolver) (any, error) {
	switch c.name {
	case "outputs":
		return r.Output(c.literal)
	case "parameters":
		return r.Parameter(c.literal)
	case "variables":
		return r.Variable(c.literal)
	case "items":
		return r.Item(c.literal)
	case "triggerBody":
		return r.TriggerBody(), nil
	case "guid":
		return r.NewGUID(), nil
	case "utcNow":
		return r.Now().UTC().Format(TimeLayout), nil
	case "encodeURIComponent", "base64":
		arg := c.literal
		if !c.hasLiteral {
			v, err := evalCall(c.inner, r)
			if err != nil {
				return nil, err
			}
			arg = Stringify(v)
		}
		if c.name == "base64" {
			return Base64(arg), nil
		}
		return EncodeURIComponent(arg), nil
	}
	return nil, ir.NewUnrecognizedExpressionError(c.text, "")
}

// ContainsExpression reports whether any string leaf in node holds a call.
// Malformed calls are reported as errors.
func ContainsExpression(node any) (bool, error) {
	switch v := node.(type) {
	case map[string]any:
		for _, child := range v {
			found, err := ContainsExpression(child)
			if err != nil || found {
				return found, err
			}
		}
	case []any:
		for _, child := range v {
			found, err := ContainsExpression(child)
			if err != nil || found {
				return found, err
			}
		}
	case string:
		segs, err := scanString(v)
		if err != nil {
			return false, err
		}
		for _, seg := range segs {
			if seg.call != nil {
				return true, nil
			}
		}
	}
	return false, nil
}

// Stringify renders a value as text: strings as themselves, null as the
// empty string, everything else as canonical JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	}
	data, err := ir.MarshalCanonical(ir.Normalize(v))
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// uriComponentReplacer undoes url.QueryEscape where encodeURIComponent
// leaves characters alone, and spells spaces as %20.
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent escapes s the way JavaScript's encodeURIComponent does.
func EncodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}

// Base64 encodes s's UTF-8 bytes with the standard alphabet.
func Base64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
