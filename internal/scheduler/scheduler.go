// Package scheduler decides which of a plan's tasks are cleared to
// dispatch, given the set of completed tasks and the plan's dispatch
// registry. It is a synchronous computation over in-memory state and
// never blocks; the orchestrator's run loop drives it on completion
// events.
package scheduler

import (
	"sync"

	"github.com/avashisht/tandem/internal/graph"
	"github.com/avashisht/tandem/pkg/models"
)

// Status is the outcome of one scheduling pass.
type Status string

const (
	// StatusComplete means every task in the plan has completed.
	StatusComplete Status = "complete"
	// StatusRunnable means at least one task was newly cleared to dispatch.
	StatusRunnable Status = "runnable"
	// StatusWaiting means dispatched work is in flight and nothing new is
	// runnable; the caller should re-poll after a completion event.
	StatusWaiting Status = "waiting"
	// StatusDeadlock means remaining tasks exist but none can ever run.
	StatusDeadlock Status = "deadlock"
)

// Result is the transient outcome of a Schedule call. It is recomputed
// on every pass and never persisted.
type Result struct {
	Status Status
	// Runnable holds tasks cleared to dispatch now, in plan order.
	Runnable []*models.Task
	// DeadlockReason is set only when Status is StatusDeadlock.
	DeadlockReason string
}

// DispatchRegistry records which task IDs have already been handed to
// an agent during a plan's execution. It is the at-most-once dispatch
// guard: once a task is marked, repeated Schedule calls never return
// it again, even while it has not yet completed.
type DispatchRegistry struct {
	mu        sync.Mutex
	dispatched map[string]bool
}

// NewDispatchRegistry creates an empty registry scoped to one plan run.
func NewDispatchRegistry() *DispatchRegistry {
	return &DispatchRegistry{dispatched: make(map[string]bool)}
}

// Mark records a task as dispatched. Idempotent.
func (r *DispatchRegistry) Mark(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched[taskID] = true
}

// Dispatched returns true if the task has been handed to an agent.
func (r *DispatchRegistry) Dispatched(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatched[taskID]
}

// Count returns the number of dispatched tasks.
func (r *DispatchRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dispatched)
}

// Schedule computes the next scheduling decision for plan.
//
// completed holds IDs of tasks whose dependents may now run. Tasks are
// examined in plan order, so simultaneous runnables come back in their
// declared sequence. Newly runnable tasks are marked in registry before
// the result is returned.
func Schedule(plan *models.Plan, completed map[string]bool, registry *DispatchRegistry) Result {
	remaining := 0
	for _, t := range plan.Tasks {
		if !completed[t.ID] {
			remaining++
		}
	}
	if remaining == 0 {
		return Result{Status: StatusComplete}
	}

	// Build rejects cycles and dangling dependency references, so a
	// malformed plan surfaces as a deadlock on the first pass.
	g := graph.New()
	if err := g.Build(plan.Tasks); err != nil {
		return Result{Status: StatusDeadlock, DeadlockReason: err.Error()}
	}

	var runnable []*models.Task
	inFlight := 0
	for _, id := range g.Ready(completed) {
		if registry.Dispatched(id) {
			// Dispatched but not completed: running or failed.
			inFlight++
			continue
		}
		runnable = append(runnable, g.Task(id))
	}

	if len(runnable) > 0 {
		for _, t := range runnable {
			registry.Mark(t.ID)
		}
		return Result{Status: StatusRunnable, Runnable: runnable}
	}

	if inFlight > 0 {
		return Result{Status: StatusWaiting}
	}

	return Result{
		Status:         StatusDeadlock,
		DeadlockReason: "no tasks runnable; unmet dependencies",
	}
}
