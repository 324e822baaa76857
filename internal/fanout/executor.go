// Package fanout provides the concurrent fan-out executor at the heart of
// every orchestration round. It runs a set of worker invocations
// concurrently under a bounded in-flight cap, isolates per-worker failure
// (settle-all semantics: no failing worker aborts its siblings), and returns
// one terminal outcome per input descriptor in input order.
//
// While a round is in flight, a live partially-populated view is available
// in completion order for progress display. The settled array is produced
// only when every descriptor has reached a terminal outcome.
package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/conclave-ai/conclave/internal/invoke"
)

// DefaultMaxInFlight bounds concurrent worker invocations when no explicit
// cap is configured.
const DefaultMaxInFlight = 8

// Op is the operation executed once per descriptor in a round. It typically
// wraps the worker invocation port with a phase-specific prompt.
type Op func(ctx context.Context, desc invoke.Descriptor) (invoke.Result, error)

// PartialFunc observes a single settled outcome while a round is still in
// flight. completed counts outcomes settled so far; total is the round size.
// Calls are serialized by the executor and delivered in completion order,
// so an observer needs no locking of its own. The observer runs under the
// executor's lock and must not call back into the Executor.
type PartialFunc func(out Outcome, completed, total int)

// Option configures an Executor.
type Option func(*Executor)

// WithMaxInFlight bounds the number of concurrently running invocations.
// Zero means unbounded.
func WithMaxInFlight(n int) Option {
	return func(e *Executor) {
		e.maxInFlight = n
	}
}

// Executor runs fan-out rounds. One executor serves one session; rounds run
// sequentially, with Clear resetting the live view between them. It is safe
// for concurrent use.
type Executor struct {
	maxInFlight int

	mu        sync.Mutex
	live      []Outcome // completion order, current round only
	onPartial PartialFunc
}

// New creates an Executor with the default in-flight cap.
func New(opts ...Option) *Executor {
	e := &Executor{maxInFlight: DefaultMaxInFlight}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPartialFunc installs the observer invoked as each outcome settles.
// The round owner sets a fresh closure before each round; passing nil
// removes the observer.
func (e *Executor) SetPartialFunc(fn PartialFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPartial = fn
}

// Execute runs op once per descriptor, concurrently, and blocks until every
// descriptor has settled (barrier semantics). The returned slice has exactly
// one outcome per input descriptor, in input order, none pending. An error
// or panic from one operation is captured into that descriptor's outcome and
// does not cancel or affect any sibling.
//
// Cancelling ctx does not forcibly terminate workers; a cooperative Invoker
// that honors ctx surfaces the cancellation as an ordinary error outcome.
func (e *Executor) Execute(ctx context.Context, descriptors []invoke.Descriptor, op Op) []Outcome {
	total := len(descriptors)
	results := make([]Outcome, total)
	if total == 0 {
		return results
	}

	p := pool.New()
	if e.maxInFlight > 0 {
		p = p.WithMaxGoroutines(e.maxInFlight)
	}

	for i, desc := range descriptors {
		i, desc := i, desc
		p.Go(func() {
			out := runOne(ctx, desc, op)
			results[i] = out
			e.record(out, total)
		})
	}
	p.Wait()

	return results
}

// runOne executes a single operation, converting both returned errors and
// panics into an error outcome.
func runOne(ctx context.Context, desc invoke.Descriptor, op Op) Outcome {
	var (
		res invoke.Result
		err error
	)

	var catcher panics.Catcher
	catcher.Try(func() {
		res, err = op(ctx, desc)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = fmt.Errorf("worker panicked: %v", recovered.Value)
	}

	if err != nil {
		return Outcome{
			InstanceID: desc.InstanceID,
			Status:     StatusError,
			Err:        err.Error(),
		}
	}

	return Outcome{
		InstanceID: desc.InstanceID,
		Status:     StatusComplete,
		Data:       res.Data,
		Usage:      res.Usage.Normalize(),
	}
}

// record appends a settled outcome to the live view and notifies the partial
// observer. Completions from concurrent workers funnel through this single
// mutex so the live view never sees a torn write and observer calls arrive
// one at a time, in completion order.
func (e *Executor) record(out Outcome, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.live = append(e.live, out)
	if e.onPartial != nil {
		e.onPartial(out, len(e.live), total)
	}
}

// Snapshot returns a copy of the live view: outcomes settled so far in the
// current round, ordered by completion time. It carries no cross-round
// ordering guarantee.
func (e *Executor) Snapshot() []Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Outcome, len(e.live))
	copy(out, e.live)
	return out
}

// Clear resets the live view to empty. It does not retroactively cancel
// in-flight operations; those settle into the next view as they complete.
func (e *Executor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.live = nil
}
