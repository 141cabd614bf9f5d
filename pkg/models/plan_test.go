package models

import (
	"strings"
	"testing"
)

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []*Task
		wantErr string
	}{
		{
			name: "valid chain",
			tasks: []*Task{
				{ID: "t1"},
				{ID: "t2", Dependencies: []string{"t1"}},
			},
		},
		{
			name:    "empty id",
			tasks:   []*Task{{ID: ""}},
			wantErr: "empty id",
		},
		{
			name:    "duplicate id",
			tasks:   []*Task{{ID: "t1"}, {ID: "t1"}},
			wantErr: "duplicate task id",
		},
		{
			name:    "self dependency",
			tasks:   []*Task{{ID: "t1", Dependencies: []string{"t1"}}},
			wantErr: "depends on itself",
		},
		{
			name:    "unknown dependency",
			tasks:   []*Task{{ID: "t1", Dependencies: []string{"missing"}}},
			wantErr: "unknown task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &Plan{ID: "plan-1", Tasks: tt.tasks}
			err := plan.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPlan_TaskLookup(t *testing.T) {
	plan := &Plan{Tasks: []*Task{{ID: "t1"}, {ID: "t2"}}}

	if got := plan.Task("t2"); got == nil || got.ID != "t2" {
		t.Errorf("Task(t2) = %v, want task t2", got)
	}
	if got := plan.Task("nope"); got != nil {
		t.Errorf("Task(nope) = %v, want nil", got)
	}
}
