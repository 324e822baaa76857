package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conclave-ai/conclave/internal/invoke"
	"github.com/conclave-ai/conclave/internal/usage"
)

func descriptors(n int) []invoke.Descriptor {
	descs := make([]invoke.Descriptor, n)
	for i := range descs {
		descs[i] = invoke.Descriptor{
			InstanceID: fmt.Sprintf("inst-%d", i),
			ModelID:    "test-model",
		}
	}
	return descs
}

func TestExecute_OneOutcomePerDescriptorInInputOrder(t *testing.T) {
	e := New()
	descs := descriptors(5)

	// Workers complete in reverse order; the settled array must still be in
	// input order.
	outcomes := e.Execute(context.Background(), descs, func(_ context.Context, d invoke.Descriptor) (invoke.Result, error) {
		var idx int
		fmt.Sscanf(d.InstanceID, "inst-%d", &idx)
		time.Sleep(time.Duration(5-idx) * 10 * time.Millisecond)
		return invoke.Result{Data: "answer from " + d.InstanceID}, nil
	})

	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(outcomes))
	}
	for i, out := range outcomes {
		if want := fmt.Sprintf("inst-%d", i); out.InstanceID != want {
			t.Errorf("outcomes[%d].InstanceID = %q, want %q", i, out.InstanceID, want)
		}
		if out.Status == StatusPending {
			t.Errorf("outcomes[%d] left pending", i)
		}
	}
}

func TestExecute_SettleAll_FailureIsolation(t *testing.T) {
	e := New()
	descs := descriptors(4)

	outcomes := e.Execute(context.Background(), descs, func(_ context.Context, d invoke.Descriptor) (invoke.Result, error) {
		switch d.InstanceID {
		case "inst-1":
			return invoke.Result{}, errors.New("provider unavailable")
		case "inst-2":
			panic("worker blew up")
		default:
			return invoke.Result{Data: "ok"}, nil
		}
	})

	if outcomes[0].Status != StatusComplete || outcomes[3].Status != StatusComplete {
		t.Error("healthy siblings must settle complete despite failures")
	}
	if outcomes[1].Status != StatusError || outcomes[1].Err != "provider unavailable" {
		t.Errorf("outcomes[1] = %+v, want error outcome", outcomes[1])
	}
	if outcomes[2].Status != StatusError || !strings.Contains(outcomes[2].Err, "worker panicked") {
		t.Errorf("outcomes[2] = %+v, want captured panic", outcomes[2])
	}
}

func TestExecute_EmptyDescriptors(t *testing.T) {
	e := New()
	outcomes := e.Execute(context.Background(), nil, func(context.Context, invoke.Descriptor) (invoke.Result, error) {
		t.Fatal("op should not be called")
		return invoke.Result{}, nil
	})
	if len(outcomes) != 0 {
		t.Errorf("got %d outcomes, want 0", len(outcomes))
	}
}

func TestExecute_UsageNormalized(t *testing.T) {
	e := New()
	outcomes := e.Execute(context.Background(), descriptors(1), func(context.Context, invoke.Descriptor) (invoke.Result, error) {
		return invoke.Result{Data: "x", Usage: usage.Record{InputTokens: 10, OutputTokens: 4}}, nil
	})

	if outcomes[0].Usage.TotalTokens != 14 {
		t.Errorf("TotalTokens = %d, want 14", outcomes[0].Usage.TotalTokens)
	}
}

func TestExecute_ZeroUsageOnMissingMetadata(t *testing.T) {
	e := New()
	outcomes := e.Execute(context.Background(), descriptors(1), func(context.Context, invoke.Descriptor) (invoke.Result, error) {
		return invoke.Result{Data: "no metadata"}, nil
	})

	// Never nil, always a total-safe zero record.
	if !outcomes[0].Usage.IsZero() {
		t.Errorf("Usage = %+v, want zero record", outcomes[0].Usage)
	}
}

func TestExecute_BoundedConcurrency(t *testing.T) {
	const limit = 2
	e := New(WithMaxInFlight(limit))

	var inFlight, peak atomic.Int64
	e.Execute(context.Background(), descriptors(8), func(context.Context, invoke.Descriptor) (invoke.Result, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return invoke.Result{}, nil
	})

	if peak.Load() > limit {
		t.Errorf("peak in-flight = %d, want <= %d", peak.Load(), limit)
	}
}

func TestSnapshot_LiveViewInCompletionOrder(t *testing.T) {
	e := New()

	gate := make(chan struct{})
	var mu sync.Mutex
	var sawPartial bool

	e.SetPartialFunc(func(out Outcome, completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		sawPartial = true
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
		if completed == 1 {
			if out.InstanceID != "inst-1" {
				t.Errorf("first completion = %q, want inst-1", out.InstanceID)
			}
			close(gate)
		}
	})

	e.Execute(context.Background(), descriptors(2), func(_ context.Context, d invoke.Descriptor) (invoke.Result, error) {
		if d.InstanceID == "inst-0" {
			<-gate // hold inst-0 until inst-1 has settled
			// inst-1 settled first; the live view shows it while inst-0
			// is still in flight.
			snap := e.Snapshot()
			if len(snap) != 1 || snap[0].InstanceID != "inst-1" {
				t.Errorf("Snapshot() = %+v, want [inst-1]", snap)
			}
		}
		return invoke.Result{Data: d.InstanceID}, nil
	})

	mu.Lock()
	defer mu.Unlock()
	if !sawPartial {
		t.Fatal("partial observer never invoked")
	}
}

func TestSetPartialFunc_CallsSerializedInCompletionOrder(t *testing.T) {
	e := New()
	const n = 64

	// The observer keeps unsynchronized state: the executor's lock is the
	// only thing serializing these appends.
	var order []int
	e.SetPartialFunc(func(out Outcome, completed, total int) {
		if total != n {
			t.Errorf("total = %d, want %d", total, n)
		}
		order = append(order, completed)
	})

	e.Execute(context.Background(), descriptors(n), func(context.Context, invoke.Descriptor) (invoke.Result, error) {
		return invoke.Result{}, nil
	})

	if len(order) != n {
		t.Fatalf("observer called %d times, want %d", len(order), n)
	}
	for i, completed := range order {
		if completed != i+1 {
			t.Fatalf("order[%d] = %d, want %d (counts must arrive in completion order)", i, completed, i+1)
		}
	}
}

func TestClear(t *testing.T) {
	e := New()
	e.Execute(context.Background(), descriptors(3), func(context.Context, invoke.Descriptor) (invoke.Result, error) {
		return invoke.Result{}, nil
	})

	if len(e.Snapshot()) != 3 {
		t.Fatalf("Snapshot() length = %d, want 3", len(e.Snapshot()))
	}

	e.Clear()
	if len(e.Snapshot()) != 0 {
		t.Errorf("Snapshot() after Clear length = %d, want 0", len(e.Snapshot()))
	}
}

func TestExecute_ContextCancellationIsOrdinaryError(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := e.Execute(ctx, descriptors(2), func(ctx context.Context, _ invoke.Descriptor) (invoke.Result, error) {
		return invoke.Result{}, ctx.Err()
	})

	for i, out := range outcomes {
		if out.Status != StatusError {
			t.Errorf("outcomes[%d].Status = %q, want error", i, out.Status)
		}
	}
}
