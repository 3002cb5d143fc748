package ir

// Kind identifies what a step or trigger does.
// The set of step kinds is closed; anything else is rejected at dispatch.
type Kind string

const (
	KindCompose            Kind = "Compose"
	KindHTTP               Kind = "Http"
	KindInitializeVariable Kind = "InitializeVariable"
	KindIncrementVariable  Kind = "IncrementVariable"
	KindDecrementVariable  Kind = "DecrementVariable"
	KindSetVariable        Kind = "SetVariable"
	KindAPIConnection      Kind = "ApiConnection"
	KindBinding            Kind = "Binding"
	KindParseJSON          Kind = "ParseJson"
)

// Trigger kinds.
const (
	KindRecurrence Kind = "Recurrence"
	KindRequest    Kind = "Request"
	KindManual     Kind = "Manual"
)

// Document is a bound workflow definition.
//
// Steps and Triggers preserve the order in which they appear in the source
// JSON. Sorting iterates in this order, which keeps it deterministic.
type Document struct {
	// Name is the workflow name, usually derived from the source file name.
	Name string `json:"name"`

	// Parameters are the declared workflow parameters keyed by name
	// (including the leading "$" when the document uses one).
	Parameters map[string]Parameter `json:"parameters,omitempty"`

	Triggers []Trigger `json:"triggers"`
	Steps    []Step    `json:"steps"`
}

// Parameter is a declared workflow parameter.
type Parameter struct {
	Type         string `json:"type,omitempty"`
	DefaultValue any    `json:"default_value,omitempty"`
}

// Step is a single workflow unit.
type Step struct {
	Name         string       `json:"name"`
	Kind         Kind         `json:"kind"`
	Inputs       any          `json:"inputs,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Dependency is an upstream edge. Statuses ("Succeeded", "Failed", ...) are
// carried for display only; ordering ignores them.
type Dependency struct {
	Name     string   `json:"name"`
	Statuses []string `json:"statuses,omitempty"`
}

// DependencyNames returns the names of the step's upstream steps in
// declaration order.
func (s Step) DependencyNames() []string {
	names := make([]string, len(s.Dependencies))
	for i, d := range s.Dependencies {
		names[i] = d.Name
	}
	return names
}

// InputObject returns the step inputs as an object, or nil when the inputs
// are absent or not an object.
func (s Step) InputObject() map[string]any {
	obj, _ := s.Inputs.(map[string]any)
	return obj
}

// Trigger is a workflow entry point.
type Trigger struct {
	Name       string      `json:"name"`
	Kind       Kind        `json:"kind"`
	Inputs     any         `json:"inputs,omitempty"`
	Recurrence *Recurrence `json:"recurrence,omitempty"`
}

// Recurrence describes a schedule trigger.
type Recurrence struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
}

// StepByName returns the step with the given name.
func (d *Document) StepByName(name string) (Step, bool) {
	for _, s := range d.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// StepNames returns all step names in document order.
func (d *Document) StepNames() []string {
	names := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		names[i] = s.Name
	}
	return names
}

// DefaultParameters returns the declared parameter defaults.
func (d *Document) DefaultParameters() map[string]any {
	params := make(map[string]any, len(d.Parameters))
	for name, p := range d.Parameters {
		params[name] = p.DefaultValue
	}
	return params
}
