package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avashisht/tandem/pkg/models"
)

// Compile-time verification that DB implements TaskStore.
var _ TaskStore = (*DB)(nil)

// SaveTask inserts or replaces a task record.
func (db *DB) SaveTask(task *models.Task) error {
	deps, err := encodeDeps(task.Dependencies)
	if err != nil {
		return fmt.Errorf("encode dependencies: %w", err)
	}

	_, err = db.Exec(`
		INSERT OR REPLACE INTO tasks
		(id, conversation_id, user_id, thread_id, query, agent_name, dependencies,
		 status, pattern, interval_seconds, created_at, started_at, completed_at,
		 updated_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID, task.ConversationID, task.UserID, task.ThreadID, task.Query,
		task.AgentName, deps, string(task.Status), string(task.Pattern),
		task.IntervalSeconds, formatTime(task.CreatedAt),
		nullableTime(task.StartedAt), nullableTime(task.CompletedAt),
		formatTime(task.UpdatedAt), task.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask returns the task with the given ID.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, conversation_id, user_id, thread_id, query, agent_name,
		       dependencies, status, pattern, interval_seconds, created_at,
		       started_at, completed_at, updated_at, error_message
		FROM tasks WHERE id = ?
	`, id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// DeleteTask removes a task record.
func (db *DB) DeleteTask(id string) error {
	if _, err := db.Exec("DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// ListByStatus returns tasks in the given status, oldest first.
func (db *DB) ListByStatus(status models.TaskStatus) ([]*models.Task, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, user_id, thread_id, query, agent_name,
		       dependencies, status, pattern, interval_seconds, created_at,
		       started_at, completed_at, updated_at, error_message
		FROM tasks WHERE status = ? ORDER BY created_at ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list tasks by status %s: %w", status, err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListByConversation returns a conversation's tasks, oldest first.
func (db *DB) ListByConversation(conversationID string) ([]*models.Task, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, user_id, thread_id, query, agent_name,
		       dependencies, status, pattern, interval_seconds, created_at,
		       started_at, completed_at, updated_at, error_message
		FROM tasks WHERE conversation_id = ? ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for conversation %s: %w", conversationID, err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var (
		task                   models.Task
		threadID, deps, errMsg sql.NullString
		status, pattern        string
		createdAt, updatedAt   string
		startedAt, completedAt sql.NullString
	)

	err := s.Scan(
		&task.ID, &task.ConversationID, &task.UserID, &threadID, &task.Query,
		&task.AgentName, &deps, &status, &pattern, &task.IntervalSeconds,
		&createdAt, &startedAt, &completedAt, &updatedAt, &errMsg,
	)
	if err != nil {
		return nil, err
	}

	task.ThreadID = threadID.String
	task.Status = models.TaskStatus(status)
	task.Pattern = models.TaskPattern(pattern)
	task.ErrorMessage = errMsg.String

	if task.Dependencies, err = decodeDeps(deps.String); err != nil {
		return nil, fmt.Errorf("decode dependencies for %s: %w", task.ID, err)
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", task.ID, err)
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", task.ID, err)
	}
	task.StartedAt = parseNullableTime(startedAt)
	task.CompletedAt = parseNullableTime(completedAt)

	return &task, nil
}

func scanTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func encodeDeps(deps []string) (string, error) {
	if len(deps) == 0 {
		return "", nil
	}
	b, err := json.Marshal(deps)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeDeps(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var deps []string
	if err := json.Unmarshal([]byte(s), &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
