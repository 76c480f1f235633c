package harness

// Trace event kinds.
const (
	KindSelect    = "select"
	KindStatement = "statement"
)

// TraceEvent is one round trip the builder made to the store.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Step     int    `json:"step"`
	Kind     string `json:"kind"` // "select" or "statement"
	SQL      string `json:"sql"`
	Bindings []any  `json:"bindings,omitempty"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Op    string `json:"op"`
	Rows  int64  `json:"rows"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every select and statement sent to the store, in order.
	Trace []TraceEvent `json:"trace"`

	// Steps holds one entry per scenario step.
	Steps []StepResult `json:"steps"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a round trip to the trace.
func (r *Result) AddTrace(step int, kind, sql string, bindings []any) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:      int64(len(r.Trace) + 1),
		Step:     step,
		Kind:     kind,
		SQL:      sql,
		Bindings: bindings,
	})
}

// Statements returns the SQL of every statement in the trace.
func (r *Result) Statements() []string {
	var out []string
	for _, e := range r.Trace {
		if e.Kind == KindStatement {
			out = append(out, e.SQL)
		}
	}
	return out
}
