// Package invoke defines the worker invocation port: the contract through
// which the orchestration engine reaches a model instance. The core is
// agnostic to the wire format; transports, retry policy, and per-call
// timeouts all belong to the Invoker implementation.
package invoke

import (
	"context"

	"github.com/conclave-ai/conclave/internal/usage"
)

// Descriptor identifies one independently-addressable model instance within
// a session. Descriptors are created by the caller before a session starts
// and are immutable for the session's lifetime.
type Descriptor struct {
	// InstanceID is unique within a session.
	InstanceID string `json:"instance_id"`
	// ModelID names the underlying model (e.g. "claude-sonnet-4").
	ModelID string `json:"model_id"`
	// Label is an optional human-readable name for display.
	Label string `json:"label,omitempty"`
	// Params holds per-instance invocation parameters (temperature, top_p,
	// role assignments, etc.).
	Params map[string]any `json:"params,omitempty"`
}

// ParamRole is the Params key under which a descriptor's orchestration role
// (synthesizer, judge, coordinator) is carried.
const ParamRole = "role"

// Role returns the descriptor's orchestration role, or "" if none assigned.
func (d Descriptor) Role() string {
	if d.Params == nil {
		return ""
	}
	role, _ := d.Params[ParamRole].(string)
	return role
}

// FloatParam returns a numeric parameter as float64 with a reported presence.
func (d Descriptor) FloatParam(key string) (float64, bool) {
	if d.Params == nil {
		return 0, false
	}
	switch v := d.Params[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Result is the payload of a successful worker invocation.
type Result struct {
	// Data is the raw model response text.
	Data string
	// Usage holds token and cost accounting reported by the provider.
	// A zero record means the provider reported no metadata.
	Usage usage.Record
}

// Invoker is the worker invocation port. One call per worker per round.
// Implementations must honor context cancellation and enforce their own
// per-call timeout policy; the core treats a timeout as an ordinary error.
type Invoker interface {
	Invoke(ctx context.Context, desc Descriptor, prompt string) (Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, desc Descriptor, prompt string) (Result, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, desc Descriptor, prompt string) (Result, error) {
	return f(ctx, desc, prompt)
}
