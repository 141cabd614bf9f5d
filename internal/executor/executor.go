// Package executor drives a single task through its lifecycle: persist
// the running state, stream the agent's output, and record the
// terminal state. Recurring tasks re-arm themselves on a timer.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/avashisht/tandem/internal/agent"
	"github.com/avashisht/tandem/internal/logging"
	"github.com/avashisht/tandem/internal/store"
	"github.com/avashisht/tandem/pkg/models"
)

// Executor runs tasks against registered agents.
type Executor struct {
	registry *agent.Registry
	tasks    store.TaskStore
	breakers *BreakerRegistry
	retry    RetryConfig
	logger   *logging.DebugLogger

	// runtime outlives any single caller; detached recurring cycles
	// run under it rather than under the originating request.
	runtime context.Context
}

// Option configures an Executor.
type Option func(*Executor)

// WithRetryConfig overrides the default stream-open retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(e *Executor) { e.retry = cfg }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an executor. runtime is the process-lifetime context
// that detached recurring cycles run under.
func New(runtime context.Context, registry *agent.Registry, tasks store.TaskStore, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		tasks:    tasks,
		retry:    DefaultRetryConfig(),
		logger:   logging.NopLogger(),
		runtime:  runtime,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.breakers = NewBreakerRegistry(e.logger)
	return e
}

// Execute runs one cycle of the task and streams its output. The
// returned channel closes when the cycle reaches a terminal state.
// All failures surface as task_failed chunks; Execute itself never
// errors so callers can multiplex streams uniformly. resumed marks
// tasks re-started after a restart and only affects logging.
func (e *Executor) Execute(ctx context.Context, task *models.Task, threadID string, resumed bool) <-chan models.ResponseChunk {
	out := make(chan models.ResponseChunk)
	go func() {
		defer close(out)
		e.runCycle(ctx, task, threadID, resumed, out)
	}()
	return out
}

// runCycle performs one execution cycle of the task.
func (e *Executor) runCycle(ctx context.Context, task *models.Task, threadID string, resumed bool, out chan<- models.ResponseChunk) {
	if resumed {
		e.logger.Log("resuming task %s (agent=%s thread=%s)", task.ID, task.AgentName, threadID)
	}

	ag, err := e.registry.Resolve(task.AgentName)
	if err != nil {
		e.failTask(ctx, task, fmt.Sprintf("resolve agent: %v", err), out)
		return
	}

	// The running state must be durable before the agent sees the task.
	task.Start()
	if err := e.tasks.SaveTask(task); err != nil {
		e.failTask(ctx, task, fmt.Sprintf("persist running state: %v", err), out)
		return
	}

	e.send(ctx, out, models.ResponseChunk{
		Event:          models.EventTaskStarted,
		ConversationID: task.ConversationID,
		TaskID:         task.ID,
		AgentName:      task.AgentName,
	})

	stream, err := openStreamWithRetry(ctx, ag, task.Query, threadID, e.breakers.Get(task.AgentName), e.retry)
	if err != nil {
		e.failTask(ctx, task, fmt.Sprintf("agent stream: %v", err), out)
		return
	}

	for {
		select {
		case <-ctx.Done():
			task.Cancel()
			if err := e.tasks.SaveTask(task); err != nil {
				e.logger.Log("persist cancelled task %s: %v", task.ID, err)
			}
			return
		case chunk, ok := <-stream:
			if !ok {
				// Stream ended without a Done marker; treat as failure.
				e.failTask(ctx, task, "agent stream ended unexpectedly", out)
				return
			}
			if chunk.Err != nil {
				e.failTask(ctx, task, chunk.Err.Error(), out)
				return
			}
			if chunk.Done {
				e.finishCycle(ctx, task, threadID, out)
				return
			}
			e.send(ctx, out, models.ResponseChunk{
				Event:          models.EventMessageChunk,
				ConversationID: task.ConversationID,
				TaskID:         task.ID,
				AgentName:      task.AgentName,
				Content:        chunk.Content,
			})
		}
	}
}

// finishCycle records a successful cycle. Once-tasks complete; recurring
// tasks go back to pending and re-arm on their interval.
func (e *Executor) finishCycle(ctx context.Context, task *models.Task, threadID string, out chan<- models.ResponseChunk) {
	if !task.Recurring() {
		task.Complete()
		if err := e.tasks.SaveTask(task); err != nil {
			e.logger.Log("persist completed task %s: %v", task.ID, err)
		}
		e.send(ctx, out, models.ResponseChunk{
			Event:          models.EventTaskCompleted,
			ConversationID: task.ConversationID,
			TaskID:         task.ID,
			AgentName:      task.AgentName,
			Done:           true,
		})
		return
	}

	// The first completed cycle is what dependents wait on; later
	// cycles are background work.
	e.send(ctx, out, models.ResponseChunk{
		Event:          models.EventTaskCompleted,
		ConversationID: task.ConversationID,
		TaskID:         task.ID,
		AgentName:      task.AgentName,
		Done:           true,
	})

	task.Reset()
	if err := e.tasks.SaveTask(task); err != nil {
		e.logger.Log("persist recurring task %s: %v", task.ID, err)
		return
	}

	next := *task
	go e.armNextCycle(&next, threadID)
}

// armNextCycle waits out the task's interval on the runtime context
// and then runs the next cycle detached, draining output to the log.
func (e *Executor) armNextCycle(task *models.Task, threadID string) {
	timer := time.NewTimer(task.Interval())
	defer timer.Stop()

	select {
	case <-e.runtime.Done():
		return
	case <-timer.C:
	}

	e.logger.Log("recurring task %s: starting next cycle", task.ID)
	for chunk := range e.Execute(e.runtime, task, threadID, false) {
		if chunk.Event == models.EventTaskFailed {
			e.logger.Log("recurring task %s: cycle failed: %s", task.ID, chunk.Content)
		}
	}
}

// failTask records a failure and emits the task_failed chunk. Sibling
// tasks and the orchestrator are unaffected.
func (e *Executor) failTask(ctx context.Context, task *models.Task, reason string, out chan<- models.ResponseChunk) {
	e.logger.Log("task %s failed: %s", task.ID, reason)
	task.Fail(reason)
	if err := e.tasks.SaveTask(task); err != nil {
		e.logger.Log("persist failed task %s: %v", task.ID, err)
	}
	e.send(ctx, out, models.ResponseChunk{
		Event:          models.EventTaskFailed,
		ConversationID: task.ConversationID,
		TaskID:         task.ID,
		AgentName:      task.AgentName,
		Content:        reason,
		Done:           true,
	})
}

// send delivers a chunk unless the caller has gone away.
func (e *Executor) send(ctx context.Context, out chan<- models.ResponseChunk, chunk models.ResponseChunk) {
	chunk.Timestamp = time.Now()
	select {
	case out <- chunk:
	case <-ctx.Done():
	}
}
