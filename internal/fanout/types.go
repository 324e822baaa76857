package fanout

import "github.com/conclave-ai/conclave/internal/usage"

// Status represents the terminal state of a single worker invocation.
type Status string

const (
	// StatusPending - the invocation has not yet settled. No outcome is ever
	// left pending once a round returns.
	StatusPending Status = ""
	// StatusComplete - the invocation produced a result.
	StatusComplete Status = "complete"
	// StatusError - the invocation failed; Err carries the reason.
	StatusError Status = "error"
)

// Outcome is the completed record for one descriptor in a round. Exactly one
// non-pending status is reached per descriptor, ever.
type Outcome struct {
	InstanceID string       `json:"instance_id"`
	Status     Status       `json:"status"`
	Data       string       `json:"data,omitempty"`
	Usage      usage.Record `json:"usage"`
	Err        string       `json:"error,omitempty"`
}

// Succeeded reports whether the outcome settled as complete.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusComplete
}
