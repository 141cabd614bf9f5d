package scheduler

import (
	"testing"

	"github.com/avashisht/tandem/pkg/models"
)

func plan(tasks ...*models.Task) *models.Plan {
	return &models.Plan{ID: "plan-1", Tasks: tasks}
}

func task(id string, deps ...string) *models.Task {
	return &models.Task{ID: id, Dependencies: deps, Status: models.TaskStatusPending}
}

func ids(tasks []*models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestSchedule_EmptyPlanIsComplete(t *testing.T) {
	res := Schedule(plan(), map[string]bool{}, NewDispatchRegistry())
	if res.Status != StatusComplete {
		t.Fatalf("status = %s, want complete", res.Status)
	}
}

// Scenario A from the dependency chain: t1 first, then t2, then complete.
func TestSchedule_DependencyChain(t *testing.T) {
	p := plan(task("t1"), task("t2", "t1"))
	reg := NewDispatchRegistry()
	completed := map[string]bool{}

	res := Schedule(p, completed, reg)
	if res.Status != StatusRunnable {
		t.Fatalf("first pass status = %s, want runnable", res.Status)
	}
	if got := ids(res.Runnable); len(got) != 1 || got[0] != "t1" {
		t.Fatalf("first pass runnable = %v, want [t1]", got)
	}

	completed["t1"] = true
	res = Schedule(p, completed, reg)
	if res.Status != StatusRunnable {
		t.Fatalf("second pass status = %s, want runnable", res.Status)
	}
	if got := ids(res.Runnable); len(got) != 1 || got[0] != "t2" {
		t.Fatalf("second pass runnable = %v, want [t2]", got)
	}

	completed["t2"] = true
	res = Schedule(p, completed, reg)
	if res.Status != StatusComplete {
		t.Fatalf("final pass status = %s, want complete", res.Status)
	}
}

// Scenario B: a cyclic plan deadlocks on the first pass.
func TestSchedule_CycleDeadlocksImmediately(t *testing.T) {
	p := plan(task("t1", "t2"), task("t2", "t1"))
	res := Schedule(p, map[string]bool{}, NewDispatchRegistry())
	if res.Status != StatusDeadlock {
		t.Fatalf("status = %s, want deadlock", res.Status)
	}
	if res.DeadlockReason == "" {
		t.Error("deadlock result should carry a reason")
	}
}

func TestSchedule_MissingDependencyDeadlocks(t *testing.T) {
	p := plan(task("t1", "never"))
	res := Schedule(p, map[string]bool{}, NewDispatchRegistry())
	if res.Status != StatusDeadlock {
		t.Fatalf("status = %s, want deadlock", res.Status)
	}
}

// Scenario C: a dispatched-but-unfinished task yields waiting, not a
// duplicate dispatch.
func TestSchedule_InFlightTaskYieldsWaiting(t *testing.T) {
	p := plan(task("t1"))
	reg := NewDispatchRegistry()
	completed := map[string]bool{}

	res := Schedule(p, completed, reg)
	if res.Status != StatusRunnable || len(res.Runnable) != 1 {
		t.Fatalf("first pass = %+v, want runnable [t1]", res)
	}

	// t1 is in flight; calling again must not re-dispatch it.
	res = Schedule(p, completed, reg)
	if res.Status != StatusWaiting {
		t.Fatalf("second pass status = %s, want waiting", res.Status)
	}
	if len(res.Runnable) != 0 {
		t.Fatalf("second pass runnable = %v, want empty", ids(res.Runnable))
	}
}

func TestSchedule_AtMostOnceAcrossRepeatedPasses(t *testing.T) {
	p := plan(task("t1"), task("t2"), task("t3", "t1", "t2"))
	reg := NewDispatchRegistry()
	completed := map[string]bool{}

	seen := map[string]int{}
	record := func(res Result) {
		for _, tk := range res.Runnable {
			seen[tk.ID]++
		}
	}

	record(Schedule(p, completed, reg))
	record(Schedule(p, completed, reg)) // repeat before anything finishes
	completed["t1"] = true
	record(Schedule(p, completed, reg))
	completed["t2"] = true
	record(Schedule(p, completed, reg))
	record(Schedule(p, completed, reg))
	completed["t3"] = true

	for id, n := range seen {
		if n != 1 {
			t.Errorf("task %s dispatched %d times, want 1", id, n)
		}
	}
	if len(seen) != 3 {
		t.Errorf("dispatched %d distinct tasks, want 3", len(seen))
	}

	if res := Schedule(p, completed, reg); res.Status != StatusComplete {
		t.Errorf("final status = %s, want complete", res.Status)
	}
}

func TestSchedule_SimultaneousRunnablesKeepPlanOrder(t *testing.T) {
	p := plan(task("t3"), task("t1"), task("t2"))
	res := Schedule(p, map[string]bool{}, NewDispatchRegistry())
	got := ids(res.Runnable)
	want := []string{"t3", "t1", "t2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("runnable order = %v, want %v", got, want)
		}
	}
}

// A diamond graph driven to completion: repeated passes terminate and
// every task dispatches exactly once.
func TestSchedule_DiamondRunsToCompletion(t *testing.T) {
	p := plan(
		task("root"),
		task("left", "root"),
		task("right", "root"),
		task("join", "left", "right"),
	)
	reg := NewDispatchRegistry()
	completed := map[string]bool{}
	dispatched := 0

	for pass := 0; pass < 20; pass++ {
		res := Schedule(p, completed, reg)
		switch res.Status {
		case StatusComplete:
			if dispatched != 4 {
				t.Fatalf("dispatched %d tasks before completion, want 4", dispatched)
			}
			return
		case StatusRunnable:
			for _, tk := range res.Runnable {
				dispatched++
				completed[tk.ID] = true // simulate synchronous completion
			}
		case StatusDeadlock:
			t.Fatalf("unexpected deadlock: %s", res.DeadlockReason)
		}
	}
	t.Fatal("scheduler did not reach completion within 20 passes")
}

func TestDispatchRegistry_MarkIsIdempotent(t *testing.T) {
	reg := NewDispatchRegistry()
	reg.Mark("t1")
	reg.Mark("t1")

	if !reg.Dispatched("t1") {
		t.Error("t1 should be dispatched")
	}
	if reg.Dispatched("t2") {
		t.Error("t2 should not be dispatched")
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}
