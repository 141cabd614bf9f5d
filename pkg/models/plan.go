package models

import (
	"fmt"
	"time"
)

// Plan is the ordered set of tasks produced for one user turn.
// A plan is immutable once dispatched; only each task's status changes.
type Plan struct {
	// ID is the unique identifier for this plan.
	ID string `json:"id"`
	// ConversationID is the conversation this plan belongs to.
	ConversationID string `json:"conversation_id"`
	// UserID is the user who requested this plan.
	UserID string `json:"user_id"`
	// Query is the original user input that produced the plan.
	Query string `json:"query"`
	// Tasks are the plan's tasks in declared dispatch order.
	Tasks []*Task `json:"tasks"`
	// CreatedAt is when the plan was created.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks structural invariants: unique task IDs, no
// self-dependencies, and no dependency on a task outside the plan.
// Cycle detection is the dependency graph's job, not Validate's.
func (p *Plan) Validate() error {
	ids := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		if t.ID == "" {
			return fmt.Errorf("plan %s: task with empty id", p.ID)
		}
		if ids[t.ID] {
			return fmt.Errorf("plan %s: duplicate task id %s", p.ID, t.ID)
		}
		ids[t.ID] = true
	}
	for _, t := range p.Tasks {
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				return fmt.Errorf("plan %s: task %s depends on itself", p.ID, t.ID)
			}
			if !ids[dep] {
				return fmt.Errorf("plan %s: task %s depends on unknown task %s", p.ID, t.ID, dep)
			}
		}
	}
	return nil
}

// Task returns the plan's task with the given ID, or nil.
func (p *Plan) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
