package engine

import (
	"time"

	"github.com/roach88/logicflow/internal/ir"
)

// State is the per-run value table the interpreter resolves expressions
// against. It implements expr.Resolver.
//
// Outputs are write-once: a step's result is recorded exactly once, after the
// step finishes. Variables keep their declared type for the whole run.
type State struct {
	outputs     map[string]any
	parameters  map[string]any
	variables   map[string]*ir.Variable
	items       map[string]any
	triggerBody any

	guids IDGenerator
	now   func() time.Time
}

// NewState creates a state seeded with parameter values and a trigger body.
// Nil guids or now fall back to random UUIDs and the wall clock.
func NewState(parameters map[string]any, triggerBody any, guids IDGenerator, now func() time.Time) *State {
	if guids == nil {
		guids = UUIDv4Generator{}
	}
	if now == nil {
		now = time.Now
	}
	params := make(map[string]any, len(parameters))
	for k, v := range parameters {
		params[k] = v
	}
	return &State{
		outputs:     make(map[string]any),
		parameters:  params,
		variables:   make(map[string]*ir.Variable),
		items:       make(map[string]any),
		triggerBody: triggerBody,
		guids:       guids,
		now:         now,
	}
}

// Output returns a completed step's result.
func (s *State) Output(name string) (any, error) {
	v, ok := s.outputs[name]
	if !ok {
		return nil, ir.NewMissingReferenceError("output", name, keys(s.outputs))
	}
	return v, nil
}

// Parameter returns a workflow parameter's value.
func (s *State) Parameter(name string) (any, error) {
	v, ok := s.parameters[name]
	if !ok {
		return nil, ir.NewMissingReferenceError("parameter", name, keys(s.parameters))
	}
	return v, nil
}

// Variable returns the current value of a declared variable.
func (s *State) Variable(name string) (any, error) {
	v, err := s.lookupVariable(name)
	if err != nil {
		return nil, err
	}
	return v.Value, nil
}

// Item returns the current value of a loop item.
func (s *State) Item(name string) (any, error) {
	v, ok := s.items[name]
	if !ok {
		return nil, ir.NewMissingReferenceError("item", name, keys(s.items))
	}
	return v, nil
}

// TriggerBody returns the body the run was started with.
func (s *State) TriggerBody() any { return s.triggerBody }

// NewGUID returns a fresh identifier.
func (s *State) NewGUID() string { return s.guids.Generate() }

// Now returns the current time in UTC.
func (s *State) Now() time.Time { return s.now().UTC() }

// SetOutput records a step result. Recording the same step twice is an error.
func (s *State) SetOutput(name string, value any) error {
	if _, ok := s.outputs[name]; ok {
		return ir.NewInvalidInputError(name, "outputs", "result already recorded")
	}
	s.outputs[name] = value
	return nil
}

// SetItem binds a loop item. Later writes replace earlier ones.
func (s *State) SetItem(name string, value any) {
	s.items[name] = value
}

// Declare creates a variable, converting value to typ.
func (s *State) Declare(name, typ string, value any) (ir.Variable, error) {
	if name == "" {
		return ir.Variable{}, ir.NewInvalidInputError("", "name", "is required")
	}
	if _, ok := s.variables[name]; ok {
		return ir.Variable{}, ir.NewInvalidInputError("", "name", "variable '"+name+"' is already initialized")
	}
	converted, err := ir.ConvertVariable(name, typ, value)
	if err != nil {
		return ir.Variable{}, err
	}
	v := &ir.Variable{Name: name, Type: typ, Value: converted}
	s.variables[name] = v
	return *v, nil
}

// Add adds delta to a numeric variable.
func (s *State) Add(name string, delta any) (ir.Variable, error) {
	v, err := s.lookupVariable(name)
	if err != nil {
		return ir.Variable{}, err
	}
	sum, err := ir.AddNumber(name, v.Value, delta)
	if err != nil {
		return ir.Variable{}, err
	}
	v.Value = sum
	return *v, nil
}

// Assign replaces a variable's value, keeping its declared type.
func (s *State) Assign(name string, value any) (ir.Variable, error) {
	v, err := s.lookupVariable(name)
	if err != nil {
		return ir.Variable{}, err
	}
	converted, err := ir.ConvertVariable(name, v.Type, value)
	if err != nil {
		return ir.Variable{}, err
	}
	v.Value = converted
	return *v, nil
}

// Integer reads an Integer variable.
func (s *State) Integer(name string) (int64, error) {
	v, err := s.typed(name, ir.TypeInteger)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Float reads a Float variable.
func (s *State) Float(name string) (float64, error) {
	v, err := s.typed(name, ir.TypeFloat)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// String reads a String variable.
func (s *State) String(name string) (string, error) {
	v, err := s.typed(name, ir.TypeString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Boolean reads a Boolean variable.
func (s *State) Boolean(name string) (bool, error) {
	v, err := s.typed(name, ir.TypeBoolean)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Outputs returns a copy of the recorded step results.
func (s *State) Outputs() map[string]any {
	out := make(map[string]any, len(s.outputs))
	for k, v := range s.outputs {
		out[k] = v
	}
	return out
}

// Variables returns a copy of the declared variables.
func (s *State) Variables() map[string]ir.Variable {
	out := make(map[string]ir.Variable, len(s.variables))
	for k, v := range s.variables {
		out[k] = *v
	}
	return out
}

func (s *State) typed(name, typ string) (any, error) {
	v, err := s.lookupVariable(name)
	if err != nil {
		return nil, err
	}
	if v.Type != typ {
		return nil, ir.NewTypeMismatchError(name, typ, v.Type)
	}
	return v.Value, nil
}

func (s *State) lookupVariable(name string) (*ir.Variable, error) {
	v, ok := s.variables[name]
	if !ok {
		available := make([]string, 0, len(s.variables))
		for k := range s.variables {
			available = append(available, k)
		}
		return nil, ir.NewMissingReferenceError("variable", name, available)
	}
	return v, nil
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
