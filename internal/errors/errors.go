// Package errors provides centralized error definitions and error handling
// utilities for the Conclave codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - WorkerError: a single worker invocation failed; isolated, non-fatal to
//     the round that contains it
//   - PhaseFatalError: a single-call phase (decomposition, synthesis, judging)
//     failed; terminates the owning session
//   - SessionError: errors related to session lifecycle and persistence
//
// Semantic errors represent common error conditions:
//   - ValidationError: malformed descriptor set or invalid configuration,
//     rejected before any fan-out begins
//   - NotFoundError: resource not found
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewWorkerError("invocation failed", cause).WithInstanceID("inst-2")
//	err := errors.NewPhaseFatalError("decomposition produced no subtasks", cause).WithPhase("decomposing")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrNoParticipants) { ... }
//	var fatal *errors.PhaseFatalError
//	if errors.As(err, &fatal) { ... }
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that a persisted session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrSessionFailed indicates the session terminated in the Failed phase.
	// Run attaches it to the cause so callers can tell a failed session from
	// a request that never started.
	ErrSessionFailed = New("session failed")
)

// Descriptor and roster sentinel errors
var (
	// ErrNoParticipants indicates an empty descriptor set.
	ErrNoParticipants = New("no participants")
	// ErrTooFewParticipants indicates the mode requires more participants than supplied.
	ErrTooFewParticipants = New("too few participants for mode")
	// ErrDuplicateInstanceID indicates two descriptors share an instance ID.
	ErrDuplicateInstanceID = New("duplicate instance id")
	// ErrUnknownMode indicates an unrecognized orchestration mode.
	ErrUnknownMode = New("unknown orchestration mode")
)

// Phase sentinel errors
var (
	// ErrDecompositionFailed indicates the coordinator's decomposition call failed.
	ErrDecompositionFailed = New("decomposition failed")
	// ErrSynthesisFailed indicates the synthesizer call failed.
	ErrSynthesisFailed = New("synthesis failed")
	// ErrJudgingFailed indicates a tournament judge call failed.
	ErrJudgingFailed = New("judging failed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ConclaveError is the base interface for all Conclave errors. It extends the
// standard error interface with methods for error classification.
type ConclaveError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// WorkerError represents a single worker invocation failure. It is recovered
// locally: the outcome carries the error string and the round continues.
//
// Example:
//
//	err := errors.NewWorkerError("invocation failed", cause).WithInstanceID("inst-2")
type WorkerError struct {
	baseError
	InstanceID string
	ModelID    string
}

// NewWorkerError creates a new WorkerError.
func NewWorkerError(message string, cause error) *WorkerError {
	return &WorkerError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
	}
}

// WithInstanceID adds the worker's instance ID to the error context.
func (e *WorkerError) WithInstanceID(id string) *WorkerError {
	e.InstanceID = id
	return e
}

// WithModelID adds the worker's model ID to the error context.
func (e *WorkerError) WithModelID(id string) *WorkerError {
	e.ModelID = id
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *WorkerError) WithRetryable(r bool) *WorkerError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *WorkerError) Error() string {
	var parts []string
	if e.InstanceID != "" {
		parts = append(parts, fmt.Sprintf("instance=%s", e.InstanceID))
	}
	if e.ModelID != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.ModelID))
	}

	prefix := "worker error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("worker error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *WorkerError) Is(target error) bool {
	if _, ok := target.(*WorkerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PhaseFatalError represents a single-call phase failure (decomposition,
// synthesis, judging). There is no way to proceed without that call's output,
// so the owning session transitions to a terminal Failed projection carrying
// this error and whatever partial state accumulated before the failure.
//
// Example:
//
//	err := errors.NewPhaseFatalError("synthesis failed", cause).WithPhase("synthesizing")
type PhaseFatalError struct {
	baseError
	Phase string
	Mode  string
}

// NewPhaseFatalError creates a new PhaseFatalError.
func NewPhaseFatalError(message string, cause error) *PhaseFatalError {
	return &PhaseFatalError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: false,
		},
	}
}

// WithPhase adds the failing phase name to the error context.
func (e *PhaseFatalError) WithPhase(phase string) *PhaseFatalError {
	e.Phase = phase
	return e
}

// WithMode adds the orchestration mode to the error context.
func (e *PhaseFatalError) WithMode(mode string) *PhaseFatalError {
	e.Mode = mode
	return e
}

// Error returns the formatted error message.
func (e *PhaseFatalError) Error() string {
	var parts []string
	if e.Mode != "" {
		parts = append(parts, fmt.Sprintf("mode=%s", e.Mode))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}

	prefix := "phase fatal"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("phase fatal [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PhaseFatalError) Is(target error) bool {
	if _, ok := target.(*PhaseFatalError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SessionError represents errors related to session lifecycle and persistence.
type SessionError struct {
	baseError
	SessionID string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	prefix := "session error"
	if e.SessionID != "" {
		prefix = fmt.Sprintf("session error [session=%s]", e.SessionID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents a malformed descriptor set or invalid
// configuration. Validation failures are rejected before any fan-out begins.
//
// Example:
//
//	err := errors.NewValidationError("elected mode requires at least 2 participants")
//	err = err.WithField("participants").WithValue(1)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// NotFoundError represents a resource that could not be found.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity: SeverityWarning,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition that
// may succeed on retry. Worker errors and timeouts are retryable by default;
// phase-fatal and validation errors never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var cerr ConclaveError
	if As(err, &cerr) {
		return cerr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsFatal returns true if the error terminates the owning session.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fatal *PhaseFatalError
	return As(err, &fatal)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ConclaveError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var cerr ConclaveError
	if As(err, &cerr) {
		return cerr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapSentinel prefixes err with a sentinel error so that Is matches both
// the sentinel and err's own chain.
func WrapSentinel(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
