package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started (or is awaiting its next recurring cycle).
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task has been dispatched to its agent.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled before completion.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskPattern describes how often a task runs.
type TaskPattern string

const (
	// PatternOnce runs the task a single time.
	PatternOnce TaskPattern = "once"
	// PatternRecurring re-runs the task on an interval until cancelled.
	PatternRecurring TaskPattern = "recurring"
)

// Valid returns true if the pattern is a known value.
func (p TaskPattern) Valid() bool {
	return p == PatternOnce || p == PatternRecurring
}

// Task represents one unit of work dispatched to a named agent.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ConversationID is the conversation this task belongs to.
	ConversationID string `json:"conversation_id"`
	// UserID is the user who initiated this task.
	UserID string `json:"user_id"`
	// ThreadID correlates successive runs of a recurring task.
	ThreadID string `json:"thread_id,omitempty"`
	// Query is the opaque instruction passed to the agent.
	Query string `json:"query"`
	// AgentName is the registry name of the agent that executes this task.
	AgentName string `json:"agent_name"`
	// Dependencies lists task IDs that must complete before this task runs.
	Dependencies []string `json:"dependencies,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Pattern is the execution pattern (once or recurring).
	Pattern TaskPattern `json:"pattern"`
	// IntervalSeconds is the delay between recurring cycles. Ignored for once tasks.
	IntervalSeconds int `json:"interval_seconds,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when the task last transitioned to running.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// ErrorMessage contains the failure reason if the task failed.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Interval returns the recurring delay as a duration.
func (t *Task) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// Recurring returns true if the task re-runs on an interval.
func (t *Task) Recurring() bool {
	return t.Pattern == PatternRecurring
}

// Start transitions the task to running.
func (t *Task) Start() {
	now := time.Now()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
	t.UpdatedAt = now
}

// Complete transitions the task to completed.
func (t *Task) Complete() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Fail transitions the task to failed with the given reason.
func (t *Task) Fail(reason string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.ErrorMessage = reason
}

// Cancel transitions the task to cancelled.
func (t *Task) Cancel() {
	now := time.Now()
	t.Status = TaskStatusCancelled
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Reset returns the task to pending so the scheduler treats it as eligible again.
// Used after a recurring cycle and when resuming interrupted tasks on startup.
func (t *Task) Reset() {
	t.Status = TaskStatusPending
	t.StartedAt = nil
	t.CompletedAt = nil
	t.UpdatedAt = time.Now()
}

// Finished returns true if the task reached a terminal state.
func (t *Task) Finished() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}
