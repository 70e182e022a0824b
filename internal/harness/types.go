package harness

// StepEvent records one executed step and the report it produced.
type StepEvent struct {
	Op     string `json:"op"`
	Triple string `json:"triple,omitempty"`
	RunID  string `json:"run_id"`

	// Closure and assert reports.
	TriplesAdded   int `json:"triples_added"`
	Justifications int `json:"justifications,omitempty"`

	// Retract reports.
	Removed          bool `json:"removed,omitempty"`
	TriplesRetracted int  `json:"triples_retracted,omitempty"`
	TriplesRederived int  `json:"triples_rederived,omitempty"`

	RoundsRun int `json:"rounds_run"`

	// Error is set when the step failed as expected.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []StepEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Closure is every present triple after the last step, compacted and
	// sorted, each followed by its flags ("asserted", "derived" or both).
	Closure []string `json:"closure"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []StepEvent{},
		Errors:  []string{},
		Closure: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends an executed step to the trace.
func (r *Result) AddStep(ev StepEvent) {
	r.Trace = append(r.Trace, ev)
}
