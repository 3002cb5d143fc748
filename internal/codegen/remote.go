package codegen

import (
	"fmt"
	"strconv"

	"github.com/roach88/logicflow/internal/expr"
	"github.com/roach88/logicflow/internal/ir"
)

type httpGenerator struct{}

func (httpGenerator) Shape() Shape { return RemoteCall }

func (httpGenerator) Generate(step ir.Step, ctx expr.Context) (Fragment, error) {
	inputs := step.InputObject()
	method, err := stringField(step, inputs, "method")
	if err != nil {
		return Fragment{}, err
	}
	uri, err := stringField(step, inputs, "uri")
	if err != nil {
		return Fragment{}, err
	}

	var b requestBuilder
	b.text("req.Method", method, ctx)
	b.text("req.URI", uri, ctx)
	b.table("req.Headers", inputs["headers"], ctx)
	b.table("req.Queries", inputs["queries"], ctx)
	b.body(inputs, ctx)
	return b.fragment(step)
}

// apiConnectionGenerator calls a managed connection through the management
// proxy: the connection name and path are joined into the request URI.
type apiConnectionGenerator struct{}

func (apiConnectionGenerator) Shape() Shape { return RemoteCall }

func (apiConnectionGenerator) Generate(step ir.Step, ctx expr.Context) (Fragment, error) {
	inputs := step.InputObject()
	method, err := stringField(step, inputs, "method")
	if err != nil {
		return Fragment{}, err
	}
	path, err := stringField(step, inputs, "path")
	if err != nil {
		return Fragment{}, err
	}
	connection, err := connectionName(step, inputs)
	if err != nil {
		return Fragment{}, err
	}

	var b requestBuilder
	b.text("req.Method", method, ctx)
	b.uri(connection, path, ctx)
	b.table("req.Queries", inputs["queries"], ctx)
	b.statements = append(b.statements, `req.Headers = map[string]string{"Content-Type": "application/json"}`)
	if headers, ok := inputs["headers"].(map[string]any); ok {
		for _, key := range ir.SortedKeys(headers) {
			b.text("req.Headers["+strconv.Quote(key)+"]", headers[key], ctx)
		}
	}
	b.body(inputs, ctx)
	return b.fragment(step)
}

// connectionName reads host.connection.name.
func connectionName(step ir.Step, inputs map[string]any) (string, error) {
	name := ir.ConnectionName(inputs)
	if name == "" {
		return "", ir.NewInvalidInputError(step.Name, "host.connection.name", "is required")
	}
	return name, nil
}

// requestBuilder accumulates statements filling in an httpRequest named req.
// The first error sticks.
type requestBuilder struct {
	statements []string
	effects    expr.Effects
	err        error
}

func (b *requestBuilder) emit(node any, mode expr.Mode, ctx expr.Context) (string, bool) {
	if b.err != nil {
		return "", false
	}
	tmpl, effects, err := expr.Emit(node, mode, ctx)
	if err != nil {
		b.err = err
		return "", false
	}
	b.effects.Merge(effects)
	return tmpl.Lower(), true
}

func (b *requestBuilder) text(target string, node any, ctx expr.Context) {
	if code, ok := b.emit(node, expr.ModeText, ctx); ok {
		b.statements = append(b.statements, target+" = "+code)
	}
}

func (b *requestBuilder) table(target string, node any, ctx expr.Context) {
	obj, ok := node.(map[string]any)
	if !ok || len(obj) == 0 {
		return
	}
	b.statements = append(b.statements, target+" = map[string]string{}")
	for _, key := range ir.SortedKeys(obj) {
		b.text(target+"["+strconv.Quote(key)+"]", obj[key], ctx)
	}
}

func (b *requestBuilder) uri(connection, path string, ctx expr.Context) {
	conn, ok := b.emit(connection, expr.ModeText, ctx)
	if !ok {
		return
	}
	p, ok := b.emit(path, expr.ModeText, ctx)
	if !ok {
		return
	}
	b.statements = append(b.statements, fmt.Sprintf("req.URI = %q + %s + %q + %s + %q",
		ir.ManagementProxyBase, conn, ir.ManagementProxySuffix, p, "?api-version="+ir.ManagementProxyVersion))
}

func (b *requestBuilder) body(inputs map[string]any, ctx expr.Context) {
	node, ok := inputs["body"]
	if !ok {
		return
	}
	if code, ok := b.emit(node, expr.ModeJSON, ctx); ok {
		b.statements = append(b.statements,
			"body, err := parseJSON("+code+")",
			errCheck,
			"req.Body = body",
		)
	}
}

func (b *requestBuilder) fragment(step ir.Step) (Fragment, error) {
	if b.err != nil {
		return Fragment{}, b.err
	}
	statements := append([]string{"var req httpRequest"}, b.statements...)
	statements = append(statements,
		fmt.Sprintf("%s, err := callHTTP(ctx, req)", expr.ResultVariableName(step.Name)),
		errCheck,
	)
	return Fragment{Statements: statements, Effects: b.effects}, nil
}
