package planner

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/avashisht/tandem/pkg/models"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"adequate": true}`,
			want:  `{"adequate": true}`,
		},
		{
			name:  "code fenced",
			input: "```json\n{\"adequate\": true}\n```",
			want:  `{"adequate": true}`,
		},
		{
			name:  "surrounded by prose",
			input: "Here is the plan:\n{\"tasks\": []}\nLet me know.",
			want:  `{"tasks": []}`,
		},
		{
			name:    "no object",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyResponse) {
					t.Fatalf("expected ErrEmptyResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlanResultParsing(t *testing.T) {
	raw := `{
		"adequate": true,
		"tasks": [
			{"query": "fetch AAPL price", "agent_name": "research", "pattern": "once"},
			{"query": "summarize findings", "agent_name": "writer", "depends_on": [0]}
		]
	}`

	var result PlanResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !result.Adequate {
		t.Error("expected adequate plan")
	}
	if len(result.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(result.Tasks))
	}
	if result.Tasks[0].Pattern != models.PatternOnce {
		t.Errorf("task 0 pattern = %q, want once", result.Tasks[0].Pattern)
	}
	if len(result.Tasks[1].DependsOn) != 1 || result.Tasks[1].DependsOn[0] != 0 {
		t.Errorf("task 1 depends_on = %v, want [0]", result.Tasks[1].DependsOn)
	}

	known := map[string]bool{"research": true, "writer": true}
	if err := result.Validate(known); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}
}

func TestPlanResultInadequate(t *testing.T) {
	raw := `{"adequate": false, "reason": "which stock?", "tasks": []}`

	var result PlanResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Adequate {
		t.Error("expected inadequate plan")
	}
	if result.Reason != "which stock?" {
		t.Errorf("reason = %q", result.Reason)
	}
}

func TestTriageResultParsing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Decision
	}{
		{
			name: "direct answer",
			raw:  `{"decision": "answer", "answer": "Hello!"}`,
			want: DecisionAnswer,
		},
		{
			name: "handoff with enrichment",
			raw:  `{"decision": "handoff", "enriched_query": "monitor AAPL price"}`,
			want: DecisionHandoff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result TriageResult
			if err := json.Unmarshal([]byte(tt.raw), &result); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if result.Decision != tt.want {
				t.Errorf("decision = %q, want %q", result.Decision, tt.want)
			}
		})
	}
}

func TestAgentRoster(t *testing.T) {
	got := agentRoster([]string{"research", "writer"})
	want := "- research\n- writer\n"
	if got != want {
		t.Errorf("roster = %q, want %q", got, want)
	}
}
