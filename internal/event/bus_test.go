package event

import (
	"sync"
	"testing"
)

func TestSubscribePublish(t *testing.T) {
	bus := NewBus()

	var received []Event
	bus.Subscribe("session.phase_changed", func(e Event) {
		received = append(received, e)
	})

	bus.Publish(NewPhaseChangedEvent("s-1", "elected", "responding", "voting"))
	bus.Publish(NewRoundCompletedEvent("s-1", "voting", 3, 0))

	if len(received) != 1 {
		t.Fatalf("got %d events, want 1", len(received))
	}

	pc, ok := received[0].(PhaseChangedEvent)
	if !ok {
		t.Fatalf("expected PhaseChangedEvent, got %T", received[0])
	}
	if pc.FromPhase != "responding" || pc.ToPhase != "voting" {
		t.Errorf("transition = %s -> %s, want responding -> voting", pc.FromPhase, pc.ToPhase)
	}
	if pc.Timestamp().IsZero() {
		t.Error("event timestamp should be set")
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus()

	var count int
	bus.SubscribeAll(func(Event) { count++ })

	bus.Publish(NewSessionCompletedEvent("s-1", "consensus", 3))
	bus.Publish(NewSessionFailedEvent("s-2", "hierarchical", "decomposing", "boom"))
	bus.Publish(NewPartialResultEvent("s-3", "responding", "inst-1", true, 1, 4))

	if count != 3 {
		t.Errorf("wildcard handler called %d times, want 3", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	var count int
	id := bus.Subscribe("round.completed", func(Event) { count++ })

	bus.Publish(NewRoundCompletedEvent("s-1", "responding", 2, 1))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	bus.Publish(NewRoundCompletedEvent("s-1", "voting", 3, 0))

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe() = true, want false")
	}
}

func TestPublish_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	var delivered bool
	bus.Subscribe("session.failed", func(Event) { panic("bad handler") })
	bus.Subscribe("session.failed", func(Event) { delivered = true })

	bus.Publish(NewSessionFailedEvent("s-1", "elected", "voting", "oops"))

	if !delivered {
		t.Error("second handler should still receive the event after first panics")
	}
}

func TestPublish_Concurrent(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var count int
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				bus.Publish(NewPartialResultEvent("s-1", "responding", "inst-1", true, j, 20))
			}
		}()
	}
	wg.Wait()

	if count != 200 {
		t.Errorf("handler called %d times, want 200", count)
	}
}

func TestClear(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("a", func(Event) {})
	bus.Subscribe("b", func(Event) {})

	if got := bus.SubscriptionCount(); got != 2 {
		t.Errorf("SubscriptionCount() = %d, want 2", got)
	}

	bus.Clear()
	if got := bus.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d, want 0", got)
	}
}
