// Package planner turns a user query into a task list, and decides
// up front whether a query needs planning at all.
package planner

import (
	"context"
	"fmt"

	"github.com/avashisht/tandem/pkg/models"
)

// TaskSpec is one planned unit of work before it has an identity.
// DependsOn holds indices into the same plan's task list; the
// orchestrator assigns real task IDs and resolves references.
type TaskSpec struct {
	// Query is the instruction for the target agent.
	Query string `json:"query"`
	// AgentName names the agent that should execute this task.
	AgentName string `json:"agent_name"`
	// Pattern is once or recurring. Defaults to once when empty.
	Pattern models.TaskPattern `json:"pattern,omitempty"`
	// IntervalSeconds is the recurring cycle delay.
	IntervalSeconds int `json:"interval_seconds,omitempty"`
	// DependsOn lists zero-based indices of tasks that must complete first.
	DependsOn []int `json:"depends_on,omitempty"`
}

// PlanResult is the planner's verdict on a query.
type PlanResult struct {
	// Tasks is the ordered task list. Empty when Adequate is false.
	Tasks []TaskSpec `json:"tasks"`
	// Adequate is false when the query lacks information to plan;
	// Reason then carries the clarification to surface to the user.
	Adequate bool   `json:"adequate"`
	Reason   string `json:"reason,omitempty"`
}

// Planner converts a query plus conversation history into a plan.
type Planner interface {
	CreatePlan(ctx context.Context, query string, history []*models.Message) (*PlanResult, error)
}

// Validate checks a plan result against the known agent set and the
// structural rules task specs must obey.
func (r *PlanResult) Validate(knownAgents map[string]bool) error {
	for i, spec := range r.Tasks {
		if spec.Query == "" {
			return fmt.Errorf("task %d: empty query", i)
		}
		if !knownAgents[spec.AgentName] {
			return fmt.Errorf("task %d: unknown agent %q", i, spec.AgentName)
		}
		if spec.Pattern != "" && !spec.Pattern.Valid() {
			return fmt.Errorf("task %d: invalid pattern %q", i, spec.Pattern)
		}
		if spec.Pattern == models.PatternRecurring && spec.IntervalSeconds <= 0 {
			return fmt.Errorf("task %d: recurring task needs a positive interval", i)
		}
		for _, dep := range spec.DependsOn {
			if dep < 0 || dep >= len(r.Tasks) {
				return fmt.Errorf("task %d: dependency index %d out of range", i, dep)
			}
			if dep == i {
				return fmt.Errorf("task %d: depends on itself", i)
			}
		}
	}
	return nil
}
