package codegen

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Declarations of the third-party packages generated files import, cut
// down to what the generated code uses. Signatures follow the real
// packages.
var stubPackages = map[string]string{
	apiImport: `package api

type InstanceID string

type orchestrationOptions struct{ input any }

type NewOrchestrationOptions func(*orchestrationOptions) error

func WithInput(input any) NewOrchestrationOptions {
	return func(o *orchestrationOptions) error {
		o.input = input
		return nil
	}
}
`,
	backendImport: `package backend

import (
	"context"

	"github.com/microsoft/durabletask-go/api"
)

type TaskHubClient interface {
	ScheduleNewOrchestration(ctx context.Context, orchestrator interface{}, opts ...api.NewOrchestrationOptions) (api.InstanceID, error)
}
`,
	taskImport: `package task

import (
	"context"
	"time"

	"github.com/microsoft/durabletask-go/api"
)

type Task interface {
	Await(v any) error
}

type callActivityOptions struct{ rawInput any }

type callActivityOption func(*callActivityOptions) error

func WithActivityInput(input any) callActivityOption {
	return func(o *callActivityOptions) error {
		o.rawInput = input
		return nil
	}
}

type OrchestrationContext struct {
	ID             api.InstanceID
	Name           string
	IsReplaying    bool
	CurrentTimeUtc time.Time
}

func (ctx *OrchestrationContext) GetInput(v any) error { return nil }

func (ctx *OrchestrationContext) CallActivity(activity interface{}, opts ...callActivityOption) Task {
	return nil
}

type ActivityContext interface {
	GetInput(resultPtr any) error
	Context() context.Context
}

type Orchestrator func(ctx *OrchestrationContext) (any, error)

type Activity func(ctx ActivityContext) (any, error)

type TaskRegistry struct{}

func (r *TaskRegistry) AddOrchestratorN(name string, o Orchestrator) error { return nil }

func (r *TaskRegistry) AddActivityN(name string, a Activity) error { return nil }
`,
	uuidImport: `package uuid

type UUID [16]byte

var NameSpaceURL UUID

func NewSHA1(space UUID, data []byte) UUID { return UUID{} }

func (u UUID) String() string { return "" }
`,
}

// stubImporter resolves generated imports: the packages above from their
// declarations and everything else from the standard library.
type stubImporter struct {
	fset  *token.FileSet
	std   types.Importer
	stubs map[string]*types.Package
}

func newStubImporter() *stubImporter {
	return &stubImporter{
		fset:  token.NewFileSet(),
		std:   importer.Default(),
		stubs: make(map[string]*types.Package),
	}
}

func (im *stubImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := im.stubs[path]; ok {
		return pkg, nil
	}
	src, ok := stubPackages[path]
	if !ok {
		return im.std.Import(path)
	}

	file, err := parser.ParseFile(im.fset, path+".go", src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	conf := types.Config{Importer: im}
	pkg, err := conf.Check(path, im.fset, []*ast.File{file}, nil)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", path, err)
	}
	im.stubs[path] = pkg
	return pkg, nil
}

// Shared so the standard library is loaded once per test binary.
var generatedImporter = newStubImporter()

// assertTypeChecks type-checks a generated file, reporting every error.
func assertTypeChecks(t *testing.T, file *ast.File, fset *token.FileSet, src string) {
	t.Helper()
	var errs []error
	conf := types.Config{
		Importer: generatedImporter,
		Error:    func(err error) { errs = append(errs, err) },
	}
	_, _ = conf.Check(file.Name.Name, fset, []*ast.File{file}, nil)
	assert.Empty(t, errs, src)
}

func TestStubImporterResolvesGeneratedImports(t *testing.T) {
	for path := range stubPackages {
		pkg, err := generatedImporter.Import(path)
		require.NoError(t, err, path)
		assert.Equal(t, path, pkg.Path())
	}

	pkg, err := generatedImporter.Import("strings")
	require.NoError(t, err)
	assert.NotNil(t, pkg.Scope().Lookup("NewReplacer"))
}

func TestTypeCheckCatchesBrokenSource(t *testing.T) {
	src := Header + `

package workflow

import "github.com/microsoft/durabletask-go/task"

func Workflow(ctx *task.OrchestrationContext) (any, error) {
	var result any
	if err := ctx.CallActivity("Send", task.WithActivityInput(missing)).Await(&result); err != nil {
		return nil, err
	}
	unused := 1
	return result, nil
}
`
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "workflow.go", src, 0)
	require.NoError(t, err)

	var errs []string
	conf := types.Config{
		Importer: generatedImporter,
		Error:    func(err error) { errs = append(errs, err.Error()) },
	}
	_, _ = conf.Check("workflow", fset, []*ast.File{file}, nil)

	require.Len(t, errs, 2)
	all := strings.Join(errs, "\n")
	assert.Contains(t, all, "undefined: missing")
	assert.Contains(t, all, "declared and not used: unused")
}
