// Package internal contains integration tests that verify the packages work
// together correctly. These tests ensure the engine composition pattern and
// event bus communication work as expected.
package internal

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/event"
	"github.com/conclave-ai/conclave/internal/invoke"
	"github.com/conclave-ai/conclave/internal/orchestrator"
	"github.com/conclave-ai/conclave/internal/store"
	"github.com/conclave-ai/conclave/internal/usage"
)

// TestEventBusIntegration tests that the event bus correctly routes session
// lifecycle events between components, simulating CLI progress reporting.
func TestEventBusIntegration(t *testing.T) {
	bus := event.NewBus()

	var receivedEvents []event.Event
	var mu sync.Mutex

	record := func(e event.Event) {
		mu.Lock()
		receivedEvents = append(receivedEvents, e)
		mu.Unlock()
	}

	bus.Subscribe("session.phase_changed", record)
	bus.Subscribe("round.partial_result", record)
	bus.Subscribe("round.completed", record)
	bus.Subscribe("session.completed", record)
	bus.Subscribe("session.failed", record)

	// Simulate an engine publishing a minimal session lifecycle
	bus.Publish(event.NewPhaseChangedEvent("sess-1", "elected", "", "responding"))
	bus.Publish(event.NewPartialResultEvent("sess-1", "responding", "inst-1", true, 1, 2))
	bus.Publish(event.NewPartialResultEvent("sess-1", "responding", "inst-2", false, 2, 2))
	bus.Publish(event.NewRoundCompletedEvent("sess-1", "responding", 1, 1))
	bus.Publish(event.NewSessionCompletedEvent("sess-1", "elected", 2))

	mu.Lock()
	defer mu.Unlock()

	expectedTypes := []string{
		"session.phase_changed",
		"round.partial_result",
		"round.partial_result",
		"round.completed",
		"session.completed",
	}

	if len(receivedEvents) != len(expectedTypes) {
		t.Fatalf("Expected %d events, got %d", len(expectedTypes), len(receivedEvents))
	}

	for i, expected := range expectedTypes {
		if receivedEvents[i].EventType() != expected {
			t.Errorf("Event %d: expected type %q, got %q", i, expected, receivedEvents[i].EventType())
		}
	}
}

// TestEventBusWildcardSubscription tests that SubscribeAll receives all
// events, simulating a logging component.
func TestEventBusWildcardSubscription(t *testing.T) {
	bus := event.NewBus()

	var allEvents []string
	var mu sync.Mutex

	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		allEvents = append(allEvents, e.EventType())
		mu.Unlock()
	})

	bus.Publish(event.NewPhaseChangedEvent("sess-1", "consensus", "responding", "revising"))
	bus.Publish(event.NewRoundCompletedEvent("sess-1", "revising", 3, 0))
	bus.Publish(event.NewSessionFailedEvent("sess-1", "consensus", "revising", "context canceled"))

	mu.Lock()
	defer mu.Unlock()

	if len(allEvents) != 3 {
		t.Fatalf("Expected 3 events via SubscribeAll, got %d", len(allEvents))
	}
}

// TestEngineStoreRoundTrip runs a full elected session through the engine
// with a memory store, then replays the persisted record and checks the
// replayed snapshot matches the live one.
func TestEngineStoreRoundTrip(t *testing.T) {
	invoker := invoke.InvokerFunc(func(ctx context.Context, desc invoke.Descriptor, prompt string) (invoke.Result, error) {
		u := usage.Record{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CostMicrocents: 200}
		if strings.Contains(prompt, "<vote>") {
			return invoke.Result{Data: `<vote>{"voted_for": "alpha"}</vote>`, Usage: u}, nil
		}
		return invoke.Result{Data: "answer from " + desc.InstanceID, Usage: u}, nil
	})

	st := store.NewMemoryStore()
	bus := event.NewBus()

	var phases []string
	var mu sync.Mutex
	bus.Subscribe("session.phase_changed", func(e event.Event) {
		pc := e.(event.PhaseChangedEvent)
		mu.Lock()
		phases = append(phases, pc.ToPhase)
		mu.Unlock()
	})

	engine := orchestrator.New(invoker,
		config.Default().Modes,
		orchestrator.WithBus(bus),
		orchestrator.WithStore(st),
	)

	participants := []invoke.Descriptor{
		{InstanceID: "alpha", ModelID: "model-a"},
		{InstanceID: "beta", ModelID: "model-b"},
	}

	session, err := engine.Run(context.Background(), orchestrator.ModeElected, "integration prompt", participants)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	gotPhases := append([]string(nil), phases...)
	mu.Unlock()
	wantPhases := []string{"responding", "voting", "done"}
	if len(gotPhases) != len(wantPhases) {
		t.Fatalf("phases = %v, want %v", gotPhases, wantPhases)
	}
	for i := range wantPhases {
		if gotPhases[i] != wantPhases[i] {
			t.Errorf("phase %d = %q, want %q", i, gotPhases[i], wantPhases[i])
		}
	}

	// The persisted record must replay to the same snapshot.
	persisted, err := st.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	live := orchestrator.Project(session)
	replayed, err := orchestrator.ProjectFromPersisted(persisted)
	if err != nil {
		t.Fatalf("ProjectFromPersisted() error: %v", err)
	}

	if live.SessionID != replayed.SessionID {
		t.Errorf("replayed SessionID = %q, want %q", replayed.SessionID, live.SessionID)
	}
	if live.Status != replayed.Status {
		t.Errorf("replayed Status = %q, want %q", replayed.Status, live.Status)
	}
	if live.AggregateUsage != replayed.AggregateUsage {
		t.Errorf("replayed AggregateUsage = %+v, want %+v", replayed.AggregateUsage, live.AggregateUsage)
	}

	liveView := live.View.(*orchestrator.ElectedView)
	replayedView := replayed.View.(*orchestrator.ElectedView)
	if liveView.Winner != replayedView.Winner {
		t.Errorf("replayed Winner = %q, want %q", replayedView.Winner, liveView.Winner)
	}
	if liveView.Winner != "alpha" {
		t.Errorf("Winner = %q, want %q", liveView.Winner, "alpha")
	}
}
