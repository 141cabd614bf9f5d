package planner

import (
	"context"

	"github.com/avashisht/tandem/pkg/models"
)

// Decision is the triage verdict for a user turn.
type Decision string

const (
	// DecisionAnswer means the turn is answered directly; no plan is created.
	DecisionAnswer Decision = "answer"
	// DecisionHandoff means the turn is handed to the planner.
	DecisionHandoff Decision = "handoff"
)

// TriageResult is the outcome of the pre-planning decision.
type TriageResult struct {
	Decision Decision `json:"decision"`
	// Answer carries the direct reply when Decision is answer.
	Answer string `json:"answer,omitempty"`
	// EnrichedQuery optionally rewrites the query before planning.
	EnrichedQuery string `json:"enriched_query,omitempty"`
}

// Triage decides whether a user turn needs planning at all.
type Triage interface {
	Decide(ctx context.Context, query string, history []*models.Message) (*TriageResult, error)
}
