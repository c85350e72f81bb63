package harness

import (
	"github.com/tgawarplanet/roster/internal/metrics"
	"github.com/tgawarplanet/roster/internal/snapshot"
)

// Step outcomes recorded in the trace. They are the outcome labels of the
// operation counters.
const (
	OutcomeOK           = metrics.OutcomeOK
	OutcomeNotFound     = metrics.OutcomeNotFound
	OutcomeStoreFailure = metrics.OutcomeStore
	OutcomeCacheDrift   = metrics.OutcomeDrift
	OutcomeError        = metrics.OutcomeError
)

// TraceEvent is one executed step.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Op      string         `json:"op"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Result  map[string]any `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Export is the roster as exported after the last step.
	Export *snapshot.Document `json:"export,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an executed step.
func (r *Result) AddTrace(seq int64, op string, args map[string]any, outcome string, result map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     seq,
		Op:      op,
		Args:    args,
		Outcome: outcome,
		Result:  result,
	})
}

// outcomeOf classifies an operation error.
func outcomeOf(err error) string {
	return metrics.Classify(err)
}
