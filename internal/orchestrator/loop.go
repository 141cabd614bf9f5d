package orchestrator

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/avashisht/tandem/internal/scheduler"
	"github.com/avashisht/tandem/pkg/models"
)

// taskEvent is one task's terminal signal back to the run loop.
type taskEvent struct {
	taskID    string
	completed bool
}

// runPlan drives a persisted plan to its end state: repeated scheduling
// passes dispatch runnable tasks, their chunk streams are multiplexed
// into out, and the loop advances only on completion events. Returns
// the turn's aggregated agent text for conversation history.
func (o *Orchestrator) runPlan(ctx context.Context, plan *models.Plan, out chan<- models.ResponseChunk) string {
	completed := make(map[string]bool, len(plan.Tasks))
	registry := scheduler.NewDispatchRegistry()

	// Buffered so a finishing task never blocks on a loop that has
	// already moved on.
	events := make(chan taskEvent, len(plan.Tasks))

	var transcript transcriptBuilder
	group, groupCtx := errgroup.WithContext(ctx)
	inFlight := 0

	for {
		result := scheduler.Schedule(plan, completed, registry)
		switch result.Status {
		case scheduler.StatusComplete:
			group.Wait()
			return transcript.String()

		case scheduler.StatusDeadlock:
			o.logger.Log("plan %s: deadlock: %s", plan.ID, result.DeadlockReason)
			group.Wait()
			o.emit(ctx, out, models.ResponseChunk{
				Event:          models.EventSystemFailed,
				ConversationID: plan.ConversationID,
				Content:        result.DeadlockReason,
			})
			return transcript.String()

		case scheduler.StatusRunnable:
			for _, task := range result.Runnable {
				task := task
				inFlight++
				group.Go(func() error {
					o.runTask(groupCtx, task, out, events, &transcript)
					return nil
				})
			}

		case scheduler.StatusWaiting:
			if inFlight == 0 {
				// Every dispatched task is terminal and the rest are
				// blocked behind failures. Their task_failed chunks
				// already went out; the turn ends here.
				o.logger.Log("plan %s: %d task(s) blocked by failed dependencies", plan.ID, len(plan.Tasks)-len(completed)-registryTerminalCount(plan, completed, registry))
				group.Wait()
				return transcript.String()
			}
			select {
			case <-ctx.Done():
				group.Wait()
				return transcript.String()
			case evt := <-events:
				inFlight--
				if evt.completed {
					completed[evt.taskID] = true
				}
			}
		}
	}
}

// runTask executes one task, forwarding its chunks into the turn's
// output stream and reporting the terminal outcome to the run loop.
func (o *Orchestrator) runTask(ctx context.Context, task *models.Task, out chan<- models.ResponseChunk, events chan<- taskEvent, transcript *transcriptBuilder) {
	threadID := task.ThreadID
	if threadID == "" {
		threadID = task.ID
	}

	succeeded := false
	for chunk := range o.executor.Execute(ctx, task, threadID, false) {
		if chunk.Event == models.EventTaskCompleted {
			succeeded = true
		}
		if chunk.Event == models.EventMessageChunk {
			transcript.Append(chunk.Content)
		}
		o.emit(ctx, out, chunk)
	}
	events <- taskEvent{taskID: task.ID, completed: succeeded}
}

// registryTerminalCount counts dispatched-but-not-completed tasks,
// i.e. failures, for the blocked-plan log line.
func registryTerminalCount(plan *models.Plan, completed map[string]bool, registry *scheduler.DispatchRegistry) int {
	n := 0
	for _, t := range plan.Tasks {
		if registry.Dispatched(t.ID) && !completed[t.ID] {
			n++
		}
	}
	return n
}

// transcriptBuilder accumulates agent text across concurrent tasks.
type transcriptBuilder struct {
	mu sync.Mutex
	sb strings.Builder
}

func (t *transcriptBuilder) Append(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sb.WriteString(s)
}

func (t *transcriptBuilder) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sb.String()
}
