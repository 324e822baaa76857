package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/event"
	"github.com/conclave-ai/conclave/internal/fanout"
	"github.com/conclave-ai/conclave/internal/invoke"
	"github.com/conclave-ai/conclave/internal/logging"
	"github.com/conclave-ai/conclave/internal/metrics"
	"github.com/conclave-ai/conclave/internal/store"
	"github.com/conclave-ai/conclave/internal/usage"
)

// Engine drives orchestration sessions. One engine may run many sessions;
// each Run call owns its session exclusively for the session's lifetime
// (single-writer discipline), so a Session never sees concurrent mutation.
type Engine struct {
	invoker invoke.Invoker
	cfg     config.ModesConfig
	bus     *event.Bus
	logger  *logging.Logger
	metrics metrics.Recorder
	store   store.Store

	maxInFlight int
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus publishes phase and round events to the given bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger sets the engine logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = rec }
}

// WithStore persists terminal sessions to the given store.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithMaxInFlight bounds concurrent worker invocations per round.
// Zero means unbounded.
func WithMaxInFlight(n int) Option {
	return func(e *Engine) { e.maxInFlight = n }
}

// New creates an Engine over the given worker invocation port.
func New(invoker invoke.Invoker, cfg config.ModesConfig, opts ...Option) *Engine {
	e := &Engine{
		invoker:     invoker,
		cfg:         cfg,
		logger:      logging.NopLogger(),
		metrics:     metrics.NoopRecorder{},
		maxInFlight: fanout.DefaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one orchestration session end to end: validates the
// descriptor set, drives the mode's state machine through its phases, and
// hands the terminal session to the persistence collaborator.
//
// A fatal single-call phase failure returns the session in the Failed phase
// together with the error; partial rounds completed before the failure
// remain on the session.
func (e *Engine) Run(ctx context.Context, mode Mode, prompt string, participants []invoke.Descriptor) (*Session, error) {
	if err := validateParticipants(mode, participants); err != nil {
		return nil, err
	}

	s := &Session{
		ID:           uuid.NewString(),
		Mode:         mode,
		Prompt:       prompt,
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	}

	logger := e.logger.WithSession(s.ID).WithMode(string(mode))
	logger.Info("session started", "participants", len(participants))

	run := &sessionRun{
		engine:  e,
		session: s,
		exec:    fanout.New(fanout.WithMaxInFlight(e.maxInFlight)),
		logger:  logger,
	}

	var err error
	switch mode {
	case ModeElected:
		err = run.elected(ctx)
	case ModeHierarchical:
		err = run.hierarchical(ctx)
	case ModeTournament:
		err = run.tournament(ctx)
	case ModeConsensus:
		err = run.consensus(ctx)
	case ModeDebated:
		err = run.debated(ctx)
	case ModeCouncil:
		err = run.council(ctx)
	case ModeScattershot:
		err = run.scattershot(ctx)
	case ModeConfidence:
		err = run.confidenceWeighted(ctx)
	default:
		return nil, errors.Wrapf(errors.ErrUnknownMode, "%q", mode)
	}

	if err != nil {
		run.fail(ctx, err)
		return s, errors.WrapSentinel(errors.ErrSessionFailed, err)
	}

	run.complete(ctx)
	return s, nil
}

// sessionRun binds one session to its executor and per-session logger for
// the duration of a Run call.
type sessionRun struct {
	engine  *Engine
	session *Session
	exec    *fanout.Executor
	logger  *logging.Logger
}

// setPhase advances the state machine and publishes the transition.
func (r *sessionRun) setPhase(phase Phase) {
	from := r.session.Phase
	r.session.Phase = phase
	r.logger.Info("phase changed", "from", string(from), "to", string(phase))
	if r.engine.bus != nil {
		r.engine.bus.Publish(event.NewPhaseChangedEvent(r.session.ID, string(r.session.Mode), string(from), string(phase)))
	}
}

// fanOut runs one barrier round: op per descriptor, concurrently, partial
// results published as they settle, usage folded into the session aggregate
// once all descriptors have settled.
func (r *sessionRun) fanOut(ctx context.Context, phase Phase, descriptors []invoke.Descriptor, promptFor func(invoke.Descriptor) string) []fanout.Outcome {
	s := r.session
	e := r.engine

	r.exec.Clear()
	r.exec.SetPartialFunc(func(out fanout.Outcome, completed, total int) {
		e.metrics.SetInFlight(total - completed)
		if e.bus != nil {
			e.bus.Publish(event.NewPartialResultEvent(s.ID, string(phase), out.InstanceID, out.Succeeded(), completed, total))
		}
	})

	start := time.Now()
	outcomes := r.exec.Execute(ctx, descriptors, func(ctx context.Context, desc invoke.Descriptor) (invoke.Result, error) {
		callStart := time.Now()
		res, err := e.invoker.Invoke(ctx, desc, promptFor(desc))
		status := string(fanout.StatusComplete)
		if err != nil {
			status = string(fanout.StatusError)
			err = errors.NewWorkerError("invocation failed", err).
				WithInstanceID(desc.InstanceID).
				WithModelID(desc.ModelID)
		}
		e.metrics.ObserveInvocation(string(s.Mode), status, time.Since(callStart))
		return res, err
	})

	s.addUsage(outcomes)
	e.metrics.ObserveRound(string(s.Mode), string(phase), time.Since(start))
	e.metrics.SetInFlight(0)

	succeeded, failed := 0, 0
	for _, out := range outcomes {
		if out.Succeeded() {
			succeeded++
		} else {
			failed++
			r.logger.Warn("worker failed", "phase", string(phase), "instance", out.InstanceID, "error", out.Err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(event.NewRoundCompletedEvent(s.ID, string(phase), succeeded, failed))
	}
	return outcomes
}

// singleCall runs a single-call phase (decomposition, synthesis, judging)
// through the executor as a one-descriptor round so usage accounting and
// progress events stay uniform. A failed outcome is fatal for the session.
func (r *sessionRun) singleCall(ctx context.Context, phase Phase, desc invoke.Descriptor, prompt string) (fanout.Outcome, error) {
	outcomes := r.fanOut(ctx, phase, []invoke.Descriptor{desc}, func(invoke.Descriptor) string { return prompt })
	out := outcomes[0]
	if !out.Succeeded() {
		return out, errors.NewPhaseFatalError(out.Err, nil).
			WithMode(string(r.session.Mode)).
			WithPhase(string(phase))
	}
	return out, nil
}

// complete finalizes a successful session and persists it.
func (r *sessionRun) complete(ctx context.Context) {
	s := r.session
	r.setPhase(PhaseDone)
	s.CompletedAt = time.Now().UTC()

	r.logger.Info("session completed",
		"rounds", len(s.Rounds),
		"total_tokens", s.AggregateUsage.TotalTokens,
		"cost", usage.FormatUSD(s.AggregateUsage.CostMicrocents))
	r.engine.metrics.ObserveSession(string(s.Mode), store.StatusCompleted)
	r.engine.metrics.AddTokens(string(s.Mode), s.AggregateUsage.InputTokens, s.AggregateUsage.OutputTokens)
	if r.engine.bus != nil {
		r.engine.bus.Publish(event.NewSessionCompletedEvent(s.ID, string(s.Mode), len(s.Rounds)))
	}
	r.persist(ctx)
}

// fail finalizes a fatally failed session, preserving partial rounds, and
// persists it.
func (r *sessionRun) fail(ctx context.Context, cause error) {
	s := r.session
	failedIn := s.Phase
	r.setPhase(PhaseFailed)
	s.FailureReason = cause.Error()
	s.CompletedAt = time.Now().UTC()

	r.logger.Error("session failed", "phase", string(failedIn), "error", cause)
	r.engine.metrics.ObserveSession(string(s.Mode), store.StatusFailed)
	r.engine.metrics.AddTokens(string(s.Mode), s.AggregateUsage.InputTokens, s.AggregateUsage.OutputTokens)
	if r.engine.bus != nil {
		r.engine.bus.Publish(event.NewSessionFailedEvent(s.ID, string(s.Mode), string(failedIn), cause.Error()))
	}
	r.persist(ctx)
}

// persist hands the terminal session to the persistence collaborator.
// Persistence failure is logged, not surfaced: the session result is already
// in hand and losing it over a storage hiccup helps nobody.
func (r *sessionRun) persist(ctx context.Context) {
	if r.engine.store == nil {
		return
	}
	persisted, err := Serialize(r.session)
	if err == nil {
		err = r.engine.store.Save(ctx, persisted)
	}
	if err != nil {
		r.logger.Error("failed to persist session", "error", err)
	}
}
