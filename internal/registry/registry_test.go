package registry

import (
	"context"
	"testing"

	"github.com/xiebiao/saga-coordinator/internal/saga"
)

func newSaga(id string) *saga.Saga {
	sc := saga.NewContext(saga.NewOrderContext(id))
	return saga.NewSaga(id, nil, sc)
}

func TestRegistry_RegisterGetList(t *testing.T) {
	r := New()
	_, cancelA := context.WithCancel(context.Background())
	_, cancelB := context.WithCancel(context.Background())
	r.Register(newSaga("a"), cancelA)
	r.Register(newSaga("b"), cancelB)

	if _, ok := r.Get("a"); !ok {
		t.Fatalf("expected saga a to be registered")
	}
	if len(r.List()) != 2 {
		t.Fatalf("expected 2 tracked sagas, got %d", len(r.List()))
	}
}

func TestRegistry_RegisterIsIdempotentByID(t *testing.T) {
	r := New()
	_, cancel := context.WithCancel(context.Background())
	first := newSaga("a")
	r.Register(first, cancel)

	// Re-registering with cancel=nil is how the owning goroutine
	// signals the saga reached a terminal status.
	r.Register(first, nil)

	if len(r.List()) != 1 {
		t.Fatalf("expected re-registering the same ID to update in place, got %d entries", len(r.List()))
	}
	if r.Abort("a") {
		t.Fatalf("expected Abort to report false once cancel has been cleared")
	}
}

func TestRegistry_Evict(t *testing.T) {
	r := New()
	_, cancel := context.WithCancel(context.Background())
	r.Register(newSaga("a"), cancel)

	if !r.Evict("a") {
		t.Fatalf("expected evicting a tracked saga to succeed")
	}
	if r.Evict("a") {
		t.Fatalf("expected evicting an already-evicted saga to report false")
	}
	if _, ok := r.Get("a"); ok {
		t.Fatalf("expected saga a to be gone after eviction")
	}
}

func TestRegistry_Abort(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())
	r.Register(newSaga("a"), cancel)

	if !r.Abort("a") {
		t.Fatalf("expected aborting a running saga to succeed")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("expected the task context to be canceled")
	}

	if r.Abort("does-not-exist") {
		t.Fatalf("expected aborting an unknown saga to report false")
	}
}

func TestRegistry_AbortAfterTerminalReportsFalse(t *testing.T) {
	r := New()
	_, cancel := context.WithCancel(context.Background())
	s := newSaga("a")
	r.Register(s, cancel)
	r.Register(s, nil) // saga reached a terminal status

	if r.Abort("a") {
		t.Fatalf("expected aborting an already-terminal saga to report false")
	}
}

func TestRegistry_StatisticsConsistency(t *testing.T) {
	r := New()
	for _, id := range []string{"a", "b", "c"} {
		_, cancel := context.WithCancel(context.Background())
		r.Register(newSaga(id), cancel)
	}

	stats := r.Statistics()
	if stats.TotalActive != 3 {
		t.Fatalf("expected 3 tracked sagas, got %d", stats.TotalActive)
	}
	sum := 0
	for _, count := range stats.StatusBreakdown {
		sum += count
	}
	if sum != stats.TotalActive {
		t.Fatalf("expected status breakdown to sum to TotalActive: sum=%d total=%d", sum, stats.TotalActive)
	}
}
