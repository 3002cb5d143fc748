package harness

// Request is an HTTP request a scenario run sent to the mock.
type Request struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Body   string `json:"body,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if the expected outcome and every assertion match.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Order lists the steps that completed, in execution order. When the
	// run fails it holds the steps that completed before the failure.
	Order []string `json:"order"`

	// Outputs maps each completed step to its result.
	Outputs map[string]any `json:"outputs"`

	// Variables holds final variable values. Empty when the run failed.
	Variables map[string]any `json:"variables,omitempty"`

	Requests []Request `json:"requests,omitempty"`

	// ErrorCode and Error describe the run failure, if any.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Order:     []string{},
		Outputs:   make(map[string]any),
		Variables: make(map[string]any),
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
