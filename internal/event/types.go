package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "session.phase_changed").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Session Lifecycle Events
// -----------------------------------------------------------------------------

// PhaseChangedEvent is emitted when a session's state machine advances to a
// new phase.
type PhaseChangedEvent struct {
	baseEvent
	SessionID string // Owning session
	Mode      string // Orchestration mode
	FromPhase string // Phase being left
	ToPhase   string // Phase being entered
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(sessionID, mode, fromPhase, toPhase string) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent: newBaseEvent("session.phase_changed"),
		SessionID: sessionID,
		Mode:      mode,
		FromPhase: fromPhase,
		ToPhase:   toPhase,
	}
}

// SessionCompletedEvent is emitted when a session reaches the Done phase.
type SessionCompletedEvent struct {
	baseEvent
	SessionID string
	Mode      string
	Rounds    int // Total number of rounds executed
}

// NewSessionCompletedEvent creates a SessionCompletedEvent.
func NewSessionCompletedEvent(sessionID, mode string, rounds int) SessionCompletedEvent {
	return SessionCompletedEvent{
		baseEvent: newBaseEvent("session.completed"),
		SessionID: sessionID,
		Mode:      mode,
		Rounds:    rounds,
	}
}

// SessionFailedEvent is emitted when a single-call phase failure terminates
// a session. Partial rounds completed before the failure remain available
// through the session projection.
type SessionFailedEvent struct {
	baseEvent
	SessionID string
	Mode      string
	Phase     string // Phase in which the fatal failure occurred
	Reason    string // Underlying error text
}

// NewSessionFailedEvent creates a SessionFailedEvent.
func NewSessionFailedEvent(sessionID, mode, phase, reason string) SessionFailedEvent {
	return SessionFailedEvent{
		baseEvent: newBaseEvent("session.failed"),
		SessionID: sessionID,
		Mode:      mode,
		Phase:     phase,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Round Events
// -----------------------------------------------------------------------------

// PartialResultEvent is emitted each time a worker invocation inside an
// in-flight fan-out round reaches a terminal outcome. Consumers use it to
// render live progress; ordering follows completion time, not input order.
type PartialResultEvent struct {
	baseEvent
	SessionID  string
	Phase      string
	InstanceID string // Worker that settled
	Succeeded  bool
	Completed  int // Settled outcomes so far in this round
	Total      int // Descriptors in this round
}

// NewPartialResultEvent creates a PartialResultEvent.
func NewPartialResultEvent(sessionID, phase, instanceID string, succeeded bool, completed, total int) PartialResultEvent {
	return PartialResultEvent{
		baseEvent:  newBaseEvent("round.partial_result"),
		SessionID:  sessionID,
		Phase:      phase,
		InstanceID: instanceID,
		Succeeded:  succeeded,
		Completed:  completed,
		Total:      total,
	}
}

// RoundCompletedEvent is emitted when every descriptor in a fan-out round has
// settled and the barrier releases.
type RoundCompletedEvent struct {
	baseEvent
	SessionID string
	Phase     string
	Succeeded int
	Failed    int
}

// NewRoundCompletedEvent creates a RoundCompletedEvent.
func NewRoundCompletedEvent(sessionID, phase string, succeeded, failed int) RoundCompletedEvent {
	return RoundCompletedEvent{
		baseEvent: newBaseEvent("round.completed"),
		SessionID: sessionID,
		Phase:     phase,
		Succeeded: succeeded,
		Failed:    failed,
	}
}
