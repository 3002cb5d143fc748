package codegen

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/roach88/logicflow/internal/compiler"
	"github.com/roach88/logicflow/internal/expr"
	"github.com/roach88/logicflow/internal/ir"
)

// Header marks emitted files as generated.
const Header = "// Code generated by logicflow. DO NOT EDIT."

// DefaultPackage is the package name of emitted files.
const DefaultPackage = "workflow"

// Names the emitted file defines itself.
const (
	orchestratorFunc = "Workflow"
	registerFunc     = "Register"
	httpActivity     = "CallHttp"
)

const (
	taskImport    = "github.com/microsoft/durabletask-go/task"
	apiImport     = "github.com/microsoft/durabletask-go/api"
	backendImport = "github.com/microsoft/durabletask-go/backend"
	uuidImport    = "github.com/google/uuid"
)

// Unit is an emitted source file and what it needs to be deployed.
type Unit struct {
	Package   string
	Source    string
	Artifacts Artifacts

	// Order lists the step names in execution order.
	Order []string

	// Activities lists the names registered as activities.
	Activities []string

	// TriggerBody is set when any step reads the trigger body.
	TriggerBody bool
}

// Option configures Emit.
type Option func(*emitter)

// WithPackage sets the package name of the emitted file.
func WithPackage(name string) Option {
	return func(e *emitter) {
		if name != "" {
			e.pkg = name
		}
	}
}

// WithLogger sets the logger used for per-step debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type emitter struct {
	pkg    string
	logger *slog.Logger
	gens   Generators

	usedNames map[string]string // Go identifier → workflow name

	orchestrator []string
	functions    []string
	activities   []string
	effects      expr.Effects
	artifacts    Artifacts
	remoteCalls  bool
}

// Emit generates the Go source for doc.
//
// Steps are sorted with compiler.Sort and generated in that order. Inline
// steps are written into the orchestrator body, followed by the assignment
// of their result to state.Outputs. Method and RemoteCall steps become
// functions the orchestrator calls directly. OutOfProcess steps become
// activities the orchestrator reaches through ctx.CallActivity, passing the
// step's deferred parameters as the activity input.
func Emit(doc *ir.Document, gens Generators, opts ...Option) (*Unit, error) {
	e := &emitter{
		pkg:       DefaultPackage,
		logger:    slog.Default(),
		gens:      gens,
		usedNames: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}

	sorted, err := compiler.Sort(doc.Steps)
	if err != nil {
		return nil, err
	}

	triggers, err := e.triggers(doc)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(sorted))
	for _, step := range sorted {
		if err := e.step(step); err != nil {
			return nil, err
		}
		order = append(order, step.Name)
	}

	params, err := defaultParameters(doc)
	if err != nil {
		return nil, err
	}

	var src strings.Builder
	fmt.Fprintf(&src, "%s\n\npackage %s\n\n", Header, e.pkg)
	src.WriteString(e.importBlock(len(triggers) > 0))
	for _, t := range triggers {
		src.WriteString(t)
	}
	src.WriteString(e.orchestratorFunc(doc.Name))
	src.WriteString(e.registerFunc(doc.Name))
	for _, fn := range e.functions {
		src.WriteString(fn)
	}
	src.WriteString(stateSource)
	fmt.Fprintf(&src, "\nfunc newWorkflowState() *workflowState {\n"+
		"\treturn &workflowState{\n"+
		"\t\tOutputs: map[string]any{},\n"+
		"\t\tParameters: %s,\n"+
		"\t\tVariables: map[string]any{},\n"+
		"\t\tVariableTypes: map[string]string{},\n"+
		"\t}\n}\n", params)
	src.WriteString(helpersSource)
	if e.effects.TriggerBody {
		src.WriteString(triggerBodySource)
	}
	if e.remoteCalls {
		src.WriteString(httpSource)
	}

	formatted, err := imports.Process(e.pkg+".go", []byte(src.String()), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}

	return &Unit{
		Package:     e.pkg,
		Source:      string(formatted),
		Artifacts:   e.artifacts,
		Order:       order,
		Activities:  e.activities,
		TriggerBody: e.effects.TriggerBody,
	}, nil
}

// claim reserves a Go identifier for a workflow name. Two names that
// sanitize to the same identifier cannot both be emitted.
func (e *emitter) claim(ident, name string) error {
	if other, ok := e.usedNames[ident]; ok {
		return ir.NewInvalidInputError(name, "name",
			fmt.Sprintf("generated identifier %s is already used by '%s'", ident, other))
	}
	e.usedNames[ident] = name
	return nil
}

// functionName returns the Go function name of a step.
func functionName(step string) string {
	name := expr.ExportedName(step)
	switch name {
	case orchestratorFunc, registerFunc, httpActivity:
		return "Step" + name
	}
	return name
}

func (e *emitter) step(step ir.Step) error {
	gen, err := e.gens.Lookup(step)
	if err != nil {
		return err
	}

	shape := gen.Shape()
	ctx := expr.Context{Step: step.Name, OutOfProcess: shape == OutOfProcess}
	frag, err := gen.Generate(step, ctx)
	if err != nil {
		return ir.WithStep(err, step.Name)
	}
	e.effects.Merge(frag.Effects)
	e.artifacts.Merge(frag.Artifacts)

	e.logger.Debug("generated step",
		"step", step.Name,
		"kind", step.Kind,
		"shape", shape.String(),
		"statements", len(frag.Statements),
	)

	result := expr.ResultVariableName(step.Name)
	if err := e.claim(result, step.Name); err != nil {
		return err
	}
	output := fmt.Sprintf("state.Outputs[%s] = %s", strconv.Quote(step.Name), result)
	if shape == Inline {
		e.orchestrator = append(e.orchestrator, frag.Statements...)
		e.orchestrator = append(e.orchestrator, output)
		return nil
	}

	fn := functionName(step.Name)
	if err := e.claim(fn, step.Name); err != nil {
		return err
	}
	body := slices.Clone(frag.Statements)
	body = append(body, "return "+result+", nil")

	switch shape {
	case Method, RemoteCall:
		e.remoteCalls = e.remoteCalls || shape == RemoteCall
		e.functions = append(e.functions, function(
			fmt.Sprintf("// %s runs the %s step %q.", fn, step.Kind, step.Name),
			fn+"(ctx *task.OrchestrationContext, state *workflowState) (any, error)",
			body))
		e.orchestrator = append(e.orchestrator,
			fmt.Sprintf("%s, err := %s(ctx, state)", result, fn),
			errCheck,
			output)

	case OutOfProcess:
		params := frag.Effects.ParamsFor(step.Name)
		e.activities = append(e.activities, fn)
		e.functions = append(e.functions, function(
			fmt.Sprintf("// %s is the activity of the %s step %q.", fn, step.Kind, step.Name),
			fn+"(ctx task.ActivityContext) (any, error)",
			append(prologue(params), body...)))
		e.orchestrator = append(e.orchestrator, activityCall(fn, result, params)...)
		e.orchestrator = append(e.orchestrator, output)

	default:
		return fmt.Errorf("step %s: unknown shape %s", step.Name, shape)
	}
	return nil
}

// prologue unpacks an activity input into the step's deferred parameters.
// One parameter is the whole input; several arrive as an array in
// discovery order.
func prologue(params []expr.Param) []string {
	switch len(params) {
	case 0:
		return nil
	case 1:
		p := params[0]
		return []string{
			fmt.Sprintf("var %s %s", p.Name, p.Type),
			ifErr(fmt.Sprintf("ctx.GetInput(&%s)", p.Name)),
		}
	}

	lines := []string{
		"var parameters []any",
		ifErr("ctx.GetInput(&parameters)"),
		fmt.Sprintf("if len(parameters) != %d {\n\treturn nil, fmt.Errorf(\"expected %d parameters, got %%d\", len(parameters))\n}", len(params), len(params)),
	}
	for i, p := range params {
		if p.Type == "any" {
			lines = append(lines, fmt.Sprintf("%s := parameters[%d]", p.Name, i))
		} else {
			lines = append(lines, fmt.Sprintf("%s, _ := parameters[%d].(%s)", p.Name, i, p.Type))
		}
	}
	return lines
}

// activityCall awaits an activity and stores its result.
func activityCall(fn, result string, params []expr.Param) []string {
	call := fmt.Sprintf("ctx.CallActivity(%s)", strconv.Quote(fn))
	switch len(params) {
	case 0:
	case 1:
		call = fmt.Sprintf("ctx.CallActivity(%s, task.WithActivityInput(%s))", strconv.Quote(fn), params[0].Source)
	default:
		sources := make([]string, len(params))
		for i, p := range params {
			sources[i] = p.Source
		}
		call = fmt.Sprintf("ctx.CallActivity(%s, task.WithActivityInput([]any{%s}))",
			strconv.Quote(fn), strings.Join(sources, ", "))
	}
	return []string{
		"var " + result + " any",
		ifErr(call + ".Await(&" + result + ")"),
	}
}

func (e *emitter) triggers(doc *ir.Document) ([]string, error) {
	var out []string
	for _, t := range doc.Triggers {
		fn := expr.ExportedName(t.Name) + "Trigger"
		if err := e.claim(fn, t.Name); err != nil {
			return nil, err
		}

		switch t.Kind {
		case ir.KindRecurrence:
			schedule, err := compiler.CronExpression(t.Recurrence)
			if err != nil {
				msg := err.Error()
				var ie *ir.Error
				if errors.As(err, &ie) {
					msg = ie.Message
				}
				return nil, ir.NewUnsupportedTriggerError(t.Name, msg)
			}
			if err := e.claim(fn+"Schedule", t.Name); err != nil {
				return nil, err
			}
			out = append(out, fmt.Sprintf("\n// %sSchedule is the six-field cron schedule of the %q trigger.\n"+
				"const %sSchedule = %s\n", fn, t.Name, fn, strconv.Quote(schedule)))
			out = append(out, function(
				fmt.Sprintf("// %s starts the workflow. Call it on %sSchedule.", fn, fn),
				fn+"(ctx context.Context, client backend.TaskHubClient) (api.InstanceID, error)",
				[]string{fmt.Sprintf("return client.ScheduleNewOrchestration(ctx, %s)", strconv.Quote(doc.Name))}))

		case ir.KindRequest, ir.KindManual:
			out = append(out, function(
				fmt.Sprintf("// %s starts the workflow with body as the trigger body.", fn),
				fn+"(ctx context.Context, client backend.TaskHubClient, body any) (api.InstanceID, error)",
				[]string{fmt.Sprintf("return client.ScheduleNewOrchestration(ctx, %s, api.WithInput(body))", strconv.Quote(doc.Name))}))

		default:
			return nil, ir.NewUnsupportedTriggerError(t.Name, fmt.Sprintf("trigger type '%s' is not supported", t.Kind))
		}
	}
	return out, nil
}

func (e *emitter) orchestratorFunc(name string) string {
	body := []string{"state := newWorkflowState()"}
	body = append(body, e.orchestrator...)
	body = append(body, "return state.Outputs, nil")
	return function(
		fmt.Sprintf("// %s is the orchestrator of the %q workflow.", orchestratorFunc, name),
		orchestratorFunc+"(ctx *task.OrchestrationContext) (any, error)",
		body)
}

func (e *emitter) registerFunc(name string) string {
	body := []string{ifErrPlain(fmt.Sprintf("r.AddOrchestratorN(%s, %s)", strconv.Quote(name), orchestratorFunc))}
	activities := slices.Clone(e.activities)
	if e.remoteCalls {
		activities = append(activities, httpActivity)
	}
	for _, a := range activities {
		body = append(body, ifErrPlain(fmt.Sprintf("r.AddActivityN(%s, %s)", strconv.Quote(a), a)))
	}
	body = append(body, "return nil")
	return function(
		fmt.Sprintf("// %s adds the orchestrator and its activities to r.", registerFunc),
		registerFunc+"(r *task.TaskRegistry) error",
		body)
}

func (e *emitter) importBlock(triggers bool) string {
	paths := []string{
		`stdbase64 "encoding/base64"`,
		`"encoding/json"`,
		`"fmt"`,
		`"net/url"`,
		`"strings"`,
		strconv.Quote(uuidImport),
		strconv.Quote(taskImport),
	}
	if e.remoteCalls {
		paths = append(paths, `"io"`, `"net/http"`)
	}
	if triggers {
		paths = append(paths, `"context"`, strconv.Quote(apiImport), strconv.Quote(backendImport))
	}
	return "import (\n\t" + strings.Join(paths, "\n\t") + "\n)\n"
}

// ifErrPlain is ifErr for functions returning only an error.
func ifErrPlain(call string) string {
	return "if err := " + call + "; err != nil {\n\treturn err\n}"
}

// function renders a top-level function declaration.
func function(doc, signature string, body []string) string {
	var b strings.Builder
	b.WriteString("\n")
	if doc != "" {
		b.WriteString(doc)
		b.WriteString("\n")
	}
	b.WriteString("func ")
	b.WriteString(signature)
	b.WriteString(" {\n")
	for _, stmt := range body {
		for _, line := range strings.Split(stmt, "\n") {
			b.WriteString("\t")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// defaultParameters renders the declared parameter defaults as a Go map
// literal.
func defaultParameters(doc *ir.Document) (string, error) {
	params := doc.DefaultParameters()
	lit, err := goLiteral(params)
	if err != nil {
		return "", ir.NewInvalidInputError("", "parameters", err.Error())
	}
	return lit, nil
}
