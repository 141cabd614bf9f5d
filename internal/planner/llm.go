package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/avashisht/tandem/pkg/models"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("planner: empty model response")

// LLMPlanner turns a user query into a task plan via a single
// structured-output model call.
type LLMPlanner struct {
	client    anthropic.Client
	model     anthropic.Model
	agents    []string
	maxTokens int64
}

// NewLLMPlanner builds a planner over the given client. agents is the
// list of registered agent names the plan may target.
func NewLLMPlanner(client anthropic.Client, model anthropic.Model, agents []string) *LLMPlanner {
	return &LLMPlanner{
		client:    client,
		model:     model,
		agents:    agents,
		maxTokens: 4096,
	}
}

// CreatePlan implements Planner.
func (p *LLMPlanner) CreatePlan(ctx context.Context, query string, history []*models.Message) (*PlanResult, error) {
	messages := historyToParams(history)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(query)))

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: plannerInstructions + "\n\nAvailable agents:\n" + agentRoster(p.agents)},
		},
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("planner call failed: %w", err)
	}

	raw, err := extractJSON(responseText(resp))
	if err != nil {
		return nil, err
	}

	var result PlanResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("planner returned invalid JSON: %w", err)
	}
	if result.Adequate {
		known := make(map[string]bool, len(p.agents))
		for _, name := range p.agents {
			known[name] = true
		}
		if err := result.Validate(known); err != nil {
			return nil, fmt.Errorf("planner produced invalid plan: %w", err)
		}
	}
	return &result, nil
}

var _ Planner = (*LLMPlanner)(nil)

// LLMTriage decides whether a message deserves the agent team.
type LLMTriage struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewLLMTriage builds a triage gate over the given client.
func NewLLMTriage(client anthropic.Client, model anthropic.Model) *LLMTriage {
	return &LLMTriage{client: client, model: model, maxTokens: 1024}
}

// Decide implements Triage. A malformed or surprising model response
// degrades to a handoff with the raw query so planning still happens.
func (t *LLMTriage) Decide(ctx context.Context, query string, history []*models.Message) (*TriageResult, error) {
	messages := historyToParams(history)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(query)))

	resp, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     t.model,
		MaxTokens: t.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: triageInstructions},
		},
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("triage call failed: %w", err)
	}

	raw, err := extractJSON(responseText(resp))
	if err != nil {
		return &TriageResult{Decision: DecisionHandoff, EnrichedQuery: query}, nil
	}

	var result TriageResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return &TriageResult{Decision: DecisionHandoff, EnrichedQuery: query}, nil
	}
	if result.Decision != DecisionAnswer && result.Decision != DecisionHandoff {
		return &TriageResult{Decision: DecisionHandoff, EnrichedQuery: query}, nil
	}
	if result.Decision == DecisionHandoff && result.EnrichedQuery == "" {
		result.EnrichedQuery = query
	}
	return &result, nil
}

var _ Triage = (*LLMTriage)(nil)

// historyToParams converts stored conversation messages into API params.
func historyToParams(history []*models.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return params
}

// responseText concatenates the text blocks of a model response.
func responseText(resp *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}

// extractJSON pulls the first JSON object out of model output. Models
// sometimes wrap structured output in code fences or prose despite
// instructions, so the parser tolerates surrounding text.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrEmptyResponse
	}
	return s[start : end+1], nil
}

// agentRoster formats agent names as a bullet list for prompts.
func agentRoster(agents []string) string {
	var sb strings.Builder
	for _, name := range agents {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	return sb.String()
}
