package orchestrator

import (
	"context"
	"sync"

	"github.com/avashisht/tandem/pkg/models"
)

// Lifecycle is the process-startup state handed to the resume
// supervisor. It guards resumption so it happens at most once per
// process, no matter how many components trigger startup hooks.
type Lifecycle struct {
	once sync.Once
}

// NewLifecycle creates the per-process lifecycle state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// ResumeRecurringTasks finds recurring tasks that a prior process left
// mid-flight (persisted as running), resets each to pending, and
// restarts it detached under ctx. Output has no listener after a
// restart, so it drains to the debug log. A failure on one candidate
// does not stop the rest. Subsequent calls on the same Lifecycle are
// no-ops.
func (o *Orchestrator) ResumeRecurringTasks(ctx context.Context, lc *Lifecycle) {
	lc.once.Do(func() {
		o.resumeRecurring(ctx)
	})
}

func (o *Orchestrator) resumeRecurring(ctx context.Context) {
	running, err := o.tasks.ListByStatus(models.TaskStatusRunning)
	if err != nil {
		o.logger.Log("resume: list running tasks: %v", err)
		return
	}

	resumed := 0
	for _, task := range running {
		if !task.Recurring() {
			continue
		}

		task.Reset()
		if err := o.tasks.SaveTask(task); err != nil {
			o.logger.Log("resume: reset task %s: %v", task.ID, err)
			continue
		}

		threadID := task.ThreadID
		if threadID == "" {
			threadID = task.ID
		}

		task := task
		go func() {
			for chunk := range o.executor.Execute(ctx, task, threadID, true) {
				if chunk.Event == models.EventTaskFailed {
					o.logger.Log("resume: task %s failed: %s", task.ID, chunk.Content)
				}
			}
		}()
		resumed++
	}

	o.logger.Log("resume: restarted %d recurring task(s)", resumed)
}
