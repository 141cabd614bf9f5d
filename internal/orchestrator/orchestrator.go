// Package orchestrator ties triage, planning, scheduling, and
// execution into one per-turn control loop with a single aggregated
// output stream.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avashisht/tandem/internal/agent"
	"github.com/avashisht/tandem/internal/executor"
	"github.com/avashisht/tandem/internal/logging"
	"github.com/avashisht/tandem/internal/planner"
	"github.com/avashisht/tandem/internal/store"
	"github.com/avashisht/tandem/pkg/models"
)

// historyLimit caps how much conversation history is handed to triage
// and the planner per turn.
const historyLimit = 50

// RequiredConfig contains the collaborators an Orchestrator cannot run
// without. All fields are required and have no defaults.
type RequiredConfig struct {
	// Registry resolves agent names to implementations.
	Registry *agent.Registry
	// Executor runs individual tasks.
	Executor *executor.Executor
	// Tasks persists task state.
	Tasks store.TaskStore
	// Conversations persists conversations and message history.
	Conversations store.ConversationStore
	// Triage decides whether a turn needs planning.
	Triage planner.Triage
	// Planner turns queries into task lists.
	Planner planner.Planner
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*Orchestrator)

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// Orchestrator owns the conversation-facing control flow.
type Orchestrator struct {
	registry *agent.Registry
	executor *executor.Executor
	tasks    store.TaskStore
	convs    store.ConversationStore
	triage   planner.Triage
	planner  planner.Planner
	logger   *logging.DebugLogger
}

// New creates an Orchestrator from its required collaborators.
func New(cfg RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if cfg.Registry == nil || cfg.Executor == nil || cfg.Tasks == nil ||
		cfg.Conversations == nil || cfg.Triage == nil || cfg.Planner == nil {
		return nil, fmt.Errorf("orchestrator: missing required configuration")
	}
	o := &Orchestrator{
		registry: cfg.Registry,
		executor: cfg.Executor,
		tasks:    cfg.Tasks,
		convs:    cfg.Conversations,
		triage:   cfg.Triage,
		planner:  cfg.Planner,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// UserInput is one user turn. An empty ConversationID starts a new
// conversation.
type UserInput struct {
	ConversationID string
	UserID         string
	Query          string
}

// ProcessUserInput runs one conversation turn and streams its output.
// The returned channel closes when the turn is over; the final chunk
// is always done (turn-fatal errors are reported as a system_failed
// chunk before it).
func (o *Orchestrator) ProcessUserInput(ctx context.Context, input UserInput) <-chan models.ResponseChunk {
	out := make(chan models.ResponseChunk)
	go func() {
		defer close(out)
		o.processTurn(ctx, input, out)
	}()
	return out
}

func (o *Orchestrator) processTurn(ctx context.Context, input UserInput, out chan<- models.ResponseChunk) {
	conv, created, err := o.ensureConversation(input)
	if err != nil {
		o.emit(ctx, out, models.ResponseChunk{
			Event:   models.EventSystemFailed,
			Content: fmt.Sprintf("conversation setup: %v", err),
		})
		o.emitDone(ctx, out, input.ConversationID)
		return
	}
	if created {
		o.emit(ctx, out, models.ResponseChunk{
			Event:          models.EventConversationStarted,
			ConversationID: conv.ID,
		})
	}

	if err := o.convs.AppendMessage(&models.Message{
		ID:             models.NewMessageID(),
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        input.Query,
		CreatedAt:      time.Now(),
	}); err != nil {
		o.logger.Log("append user message: %v", err)
	}

	history, err := o.convs.History(conv.ID, historyLimit)
	if err != nil {
		o.logger.Log("load history for %s: %v", conv.ID, err)
		history = nil
	}

	verdict, err := o.triage.Decide(ctx, input.Query, history)
	if err != nil {
		o.emit(ctx, out, models.ResponseChunk{
			Event:          models.EventSystemFailed,
			ConversationID: conv.ID,
			Content:        fmt.Sprintf("triage: %v", err),
		})
		o.emitDone(ctx, out, conv.ID)
		return
	}

	if verdict.Decision == planner.DecisionAnswer {
		o.emit(ctx, out, models.ResponseChunk{
			Event:          models.EventMessageChunk,
			ConversationID: conv.ID,
			Content:        verdict.Answer,
		})
		o.recordAssistant(conv.ID, verdict.Answer)
		o.emitDone(ctx, out, conv.ID)
		return
	}

	query := verdict.EnrichedQuery
	if query == "" {
		query = input.Query
	}

	result, err := o.planner.CreatePlan(ctx, query, history)
	if err != nil {
		o.emit(ctx, out, models.ResponseChunk{
			Event:          models.EventSystemFailed,
			ConversationID: conv.ID,
			Content:        fmt.Sprintf("planning: %v", err),
		})
		o.emitDone(ctx, out, conv.ID)
		return
	}
	if !result.Adequate {
		// Nothing is persisted on the clarification path.
		o.emit(ctx, out, models.ResponseChunk{
			Event:          models.EventRequireUserInput,
			ConversationID: conv.ID,
			Content:        result.Reason,
		})
		o.emitDone(ctx, out, conv.ID)
		return
	}

	plan, err := o.materializePlan(conv.ID, input.UserID, query, result.Tasks)
	if err != nil {
		o.emit(ctx, out, models.ResponseChunk{
			Event:          models.EventSystemFailed,
			ConversationID: conv.ID,
			Content:        fmt.Sprintf("plan setup: %v", err),
		})
		o.emitDone(ctx, out, conv.ID)
		return
	}

	o.logger.Log("conversation %s: plan %s with %d task(s)", conv.ID, plan.ID, len(plan.Tasks))

	transcript := o.runPlan(ctx, plan, out)
	o.recordAssistant(conv.ID, transcript)
	o.emitDone(ctx, out, conv.ID)
}

// ensureConversation loads the conversation or creates a new one.
func (o *Orchestrator) ensureConversation(input UserInput) (*models.Conversation, bool, error) {
	if input.ConversationID != "" {
		conv, err := o.convs.GetConversation(input.ConversationID)
		if err != nil {
			return nil, false, fmt.Errorf("load conversation %s: %w", input.ConversationID, err)
		}
		return conv, false, nil
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:        models.NewConversationID(),
		UserID:    input.UserID,
		Title:     title(input.Query),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.convs.SaveConversation(conv); err != nil {
		return nil, false, fmt.Errorf("create conversation: %w", err)
	}
	return conv, true, nil
}

// materializePlan turns planner task specs into persisted pending
// tasks with resolved dependencies, bound to one new plan.
func (o *Orchestrator) materializePlan(conversationID, userID, query string, specs []planner.TaskSpec) (*models.Plan, error) {
	now := time.Now()
	tasks := make([]*models.Task, len(specs))
	for i, spec := range specs {
		if _, err := o.registry.Resolve(spec.AgentName); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		pattern := spec.Pattern
		if pattern == "" {
			pattern = models.PatternOnce
		}
		tasks[i] = &models.Task{
			ID:              models.NewTaskID(),
			ConversationID:  conversationID,
			UserID:          userID,
			ThreadID:        models.NewThreadID(),
			Query:           spec.Query,
			AgentName:       spec.AgentName,
			Status:          models.TaskStatusPending,
			Pattern:         pattern,
			IntervalSeconds: spec.IntervalSeconds,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}
	// Dependency indices resolve to task IDs only after every task
	// has an identity.
	for i, spec := range specs {
		deps := make([]string, 0, len(spec.DependsOn))
		for _, idx := range spec.DependsOn {
			if idx < 0 || idx >= len(tasks) {
				return nil, fmt.Errorf("task %d: dependency index %d out of range", i, idx)
			}
			deps = append(deps, tasks[idx].ID)
		}
		tasks[i].Dependencies = deps
	}

	plan := &models.Plan{
		ID:             models.NewPlanID(),
		ConversationID: conversationID,
		UserID:         userID,
		Query:          query,
		Tasks:          tasks,
		CreatedAt:      now,
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	for _, t := range tasks {
		if err := o.tasks.SaveTask(t); err != nil {
			return nil, fmt.Errorf("persist task %s: %w", t.ID, err)
		}
	}
	return plan, nil
}

// recordAssistant appends the turn's aggregated assistant output to
// conversation history. Empty transcripts are skipped.
func (o *Orchestrator) recordAssistant(conversationID, content string) {
	if content == "" {
		return
	}
	if err := o.convs.AppendMessage(&models.Message{
		ID:             models.NewMessageID(),
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        content,
		CreatedAt:      time.Now(),
	}); err != nil {
		o.logger.Log("append assistant message: %v", err)
	}
}

func (o *Orchestrator) emit(ctx context.Context, out chan<- models.ResponseChunk, chunk models.ResponseChunk) {
	chunk.Timestamp = time.Now()
	select {
	case out <- chunk:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) emitDone(ctx context.Context, out chan<- models.ResponseChunk, conversationID string) {
	o.emit(ctx, out, models.ResponseChunk{
		Event:          models.EventDone,
		ConversationID: conversationID,
		Done:           true,
	})
}

// title derives a short conversation label from the opening query.
func title(query string) string {
	const max = 60
	q := strings.TrimSpace(query)
	if len(q) <= max {
		return q
	}
	return q[:max] + "…"
}
