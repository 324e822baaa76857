// Package metrics provides instrumentation hooks for the orchestration
// engine. The default recorder is a no-op; the Prometheus recorder is wired
// in when the metrics endpoint is enabled.
package metrics

import "time"

// Recorder defines the metric hooks the engine calls while running sessions.
type Recorder interface {
	// ObserveInvocation records one worker invocation outcome.
	ObserveInvocation(mode string, status string, duration time.Duration)
	// ObserveRound records one completed fan-out round for a phase.
	ObserveRound(mode string, phase string, duration time.Duration)
	// ObserveSession records a terminal session outcome.
	ObserveSession(mode string, status string)
	// AddTokens accumulates token usage for a mode.
	AddTokens(mode string, inputTokens, outputTokens int64)
	// SetInFlight reports the number of currently running worker invocations.
	SetInFlight(n int)
}

// NoopRecorder discards all observations.
type NoopRecorder struct{}

func (NoopRecorder) ObserveInvocation(string, string, time.Duration) {}
func (NoopRecorder) ObserveRound(string, string, time.Duration)      {}
func (NoopRecorder) ObserveSession(string, string)                   {}
func (NoopRecorder) AddTokens(string, int64, int64)                  {}
func (NoopRecorder) SetInFlight(int)                                 {}
