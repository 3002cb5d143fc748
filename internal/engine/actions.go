package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roach88/logicflow/internal/expr"
	"github.com/roach88/logicflow/internal/ir"
)

// Env is what an action sees while it runs.
type Env struct {
	State     *State
	HTTP      HTTPDoer
	Publisher Publisher
	Logger    *slog.Logger
}

// Action executes one step kind and returns the step's result.
type Action interface {
	Execute(ctx context.Context, step ir.Step, env *Env) (any, error)
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context, step ir.Step, env *Env) (any, error)

// Execute calls f.
func (f ActionFunc) Execute(ctx context.Context, step ir.Step, env *Env) (any, error) {
	return f(ctx, step, env)
}

// Actions maps step kinds to their interpreter behavior. Build it once and
// treat it as read-only.
type Actions map[ir.Kind]Action

// DefaultActions returns an action for every supported step kind.
func DefaultActions() Actions {
	return Actions{
		ir.KindCompose:            ActionFunc(compose),
		ir.KindInitializeVariable: ActionFunc(initializeVariable),
		ir.KindIncrementVariable:  incrementVariable{negate: false},
		ir.KindDecrementVariable:  incrementVariable{negate: true},
		ir.KindSetVariable:        ActionFunc(setVariable),
		ir.KindParseJSON:          ActionFunc(parseJSON),
		ir.KindHTTP:               ActionFunc(httpCall),
		ir.KindAPIConnection:      ActionFunc(apiConnection),
		ir.KindBinding:            ActionFunc(binding),
	}
}

// Lookup returns the action for step's kind.
func (a Actions) Lookup(step ir.Step) (Action, error) {
	action, ok := a[step.Kind]
	if !ok {
		return nil, ir.NewUnsupportedKindError(step.Name, step.Kind)
	}
	return action, nil
}

func compose(_ context.Context, step ir.Step, env *Env) (any, error) {
	return expr.Evaluate(step.Inputs, env.State)
}

func initializeVariable(_ context.Context, step ir.Step, env *Env) (any, error) {
	list, ok := step.InputObject()["variables"].([]any)
	if !ok || len(list) == 0 {
		return nil, ir.NewInvalidInputError(step.Name, "variables", "must be a non-empty array")
	}

	records := make([]any, 0, len(list))
	for i, entry := range list {
		field := fmt.Sprintf("variables[%d]", i)
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, ir.NewInvalidInputError(step.Name, field, "must be an object")
		}
		name, _ := obj["name"].(string)
		if name == "" {
			return nil, ir.NewInvalidInputError(step.Name, field+".name", "is required")
		}
		typ, _ := obj["type"].(string)
		if !ir.IsVariableType(typ) {
			return nil, ir.NewInvalidInputError(step.Name, field+".type",
				fmt.Sprintf("must be one of %s", strings.Join(ir.VariableTypes, ", ")))
		}

		value, err := expr.Evaluate(obj["value"], env.State)
		if err != nil {
			return nil, err
		}
		v, err := env.State.Declare(name, typ, value)
		if err != nil {
			return nil, err
		}
		records = append(records, v.Record())
	}
	return records, nil
}

// incrementVariable adds the step's value (default 1) to a numeric variable,
// or subtracts it when negate is set.
type incrementVariable struct {
	negate bool
}

func (a incrementVariable) Execute(_ context.Context, step ir.Step, env *Env) (any, error) {
	inputs := step.InputObject()
	name, err := requiredString(step, inputs, "name")
	if err != nil {
		return nil, err
	}

	var delta any = int64(1)
	if node, ok := inputs["value"]; ok {
		if delta, err = expr.Evaluate(node, env.State); err != nil {
			return nil, err
		}
	}
	delta = ir.Normalize(delta)
	if a.negate {
		if delta, err = ir.Negate(delta); err != nil {
			return nil, ir.NewInvalidInputError(step.Name, "value", err.Error())
		}
	}

	v, err := env.State.Add(name, delta)
	if err != nil {
		return nil, err
	}
	return v.Record(), nil
}

func setVariable(_ context.Context, step ir.Step, env *Env) (any, error) {
	inputs := step.InputObject()
	name, err := requiredString(step, inputs, "name")
	if err != nil {
		return nil, err
	}
	value, err := expr.Evaluate(inputs["value"], env.State)
	if err != nil {
		return nil, err
	}
	v, err := env.State.Assign(name, value)
	if err != nil {
		return nil, err
	}
	return v.Record(), nil
}

func parseJSON(_ context.Context, step ir.Step, env *Env) (any, error) {
	node, ok := step.InputObject()["content"]
	if !ok {
		return nil, ir.NewInvalidInputError(step.Name, "content", "is required")
	}
	content, err := expr.Evaluate(node, env.State)
	if err != nil {
		return nil, err
	}
	s, ok := content.(string)
	if !ok {
		return content, nil
	}
	if !gjson.Valid(s) {
		return nil, ir.NewInvalidInputError(step.Name, "content", "is not valid JSON")
	}
	return ir.Normalize(gjson.Parse(s).Value()), nil
}

func httpCall(ctx context.Context, step ir.Step, env *Env) (any, error) {
	inputs := step.InputObject()
	if _, err := requiredString(step, inputs, "method"); err != nil {
		return nil, err
	}
	if _, err := requiredString(step, inputs, "uri"); err != nil {
		return nil, err
	}

	var req Request
	var err error
	if req.Method, err = expr.EvaluateString(inputs["method"], env.State); err != nil {
		return nil, err
	}
	if req.URI, err = expr.EvaluateString(inputs["uri"], env.State); err != nil {
		return nil, err
	}
	if req.Headers, err = evaluateTable(inputs["headers"], env.State); err != nil {
		return nil, err
	}
	if req.Queries, err = evaluateTable(inputs["queries"], env.State); err != nil {
		return nil, err
	}
	if req.Body, err = expr.Evaluate(inputs["body"], env.State); err != nil {
		return nil, err
	}
	return send(ctx, env.HTTP, req)
}

func apiConnection(ctx context.Context, step ir.Step, env *Env) (any, error) {
	inputs := step.InputObject()
	if _, err := requiredString(step, inputs, "method"); err != nil {
		return nil, err
	}
	if _, err := requiredString(step, inputs, "path"); err != nil {
		return nil, err
	}
	connection := ir.ConnectionName(inputs)
	if connection == "" {
		return nil, ir.NewInvalidInputError(step.Name, "host.connection.name", "is required")
	}

	conn, err := expr.EvaluateString(connection, env.State)
	if err != nil {
		return nil, err
	}
	path, err := expr.EvaluateString(inputs["path"], env.State)
	if err != nil {
		return nil, err
	}

	req := Request{URI: ir.ManagementProxyURI(conn, path)}
	if req.Method, err = expr.EvaluateString(inputs["method"], env.State); err != nil {
		return nil, err
	}
	if req.Queries, err = evaluateTable(inputs["queries"], env.State); err != nil {
		return nil, err
	}
	if req.Headers, err = evaluateTable(inputs["headers"], env.State); err != nil {
		return nil, err
	}
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	if _, ok := req.Headers["Content-Type"]; !ok {
		req.Headers["Content-Type"] = "application/json"
	}
	if req.Body, err = expr.Evaluate(inputs["body"], env.State); err != nil {
		return nil, err
	}
	return send(ctx, env.HTTP, req)
}

func binding(ctx context.Context, step ir.Step, env *Env) (any, error) {
	inputs := step.InputObject()
	name, err := requiredString(step, inputs, "name")
	if err != nil {
		return nil, err
	}
	bindingType, err := requiredString(step, inputs, "type")
	if err != nil {
		return nil, err
	}
	connection, _ := inputs["connection"].(string)

	content, err := expr.Evaluate(inputs["content"], env.State)
	if err != nil {
		return nil, err
	}

	if env.Publisher != nil {
		d := Delivery{
			Step:       step.Name,
			Binding:    name,
			Type:       bindingType,
			Connection: connection,
			Content:    content,
		}
		if err := env.Publisher.Publish(ctx, d); err != nil {
			return nil, fmt.Errorf("deliver binding %s: %w", name, err)
		}
	} else {
		env.Logger.Debug("binding has no publisher, content kept as result",
			"step", step.Name,
			"binding", name,
			"type", bindingType)
	}
	return content, nil
}

// evaluateTable resolves a headers or queries object to text values.
func evaluateTable(node any, r expr.Resolver) (map[string]string, error) {
	obj, ok := node.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		s, err := expr.EvaluateString(v, r)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}

func requiredString(step ir.Step, inputs map[string]any, field string) (string, error) {
	v, ok := inputs[field]
	if !ok {
		return "", ir.NewInvalidInputError(step.Name, field, "is required")
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", ir.NewInvalidInputError(step.Name, field, "must be a non-empty string")
	}
	return s, nil
}
