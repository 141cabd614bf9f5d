package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avashisht/tandem/internal/agent"
	"github.com/avashisht/tandem/internal/executor"
	"github.com/avashisht/tandem/internal/logging"
	"github.com/avashisht/tandem/internal/orchestrator"
	"github.com/avashisht/tandem/internal/planner"
	"github.com/avashisht/tandem/internal/store"
	"github.com/avashisht/tandem/pkg/models"
)

type answerTriage struct{ answer string }

func (a *answerTriage) Decide(ctx context.Context, query string, history []*models.Message) (*planner.TriageResult, error) {
	return &planner.TriageResult{Decision: planner.DecisionAnswer, Answer: a.answer}, nil
}

type noPlanner struct{}

func (noPlanner) CreatePlan(ctx context.Context, query string, history []*models.Message) (*planner.PlanResult, error) {
	return &planner.PlanResult{Adequate: false, Reason: "unused"}, nil
}

func newTestServer(t *testing.T) (*Server, *store.MemoryTaskStore, *store.MemoryConversationStore) {
	t.Helper()
	reg := agent.NewRegistry()
	tasks := store.NewMemoryTaskStore()
	convs := store.NewMemoryConversationStore()
	exec := executor.New(context.Background(), reg, tasks)

	orch, err := orchestrator.New(orchestrator.RequiredConfig{
		Registry:      reg,
		Executor:      exec,
		Tasks:         tasks,
		Conversations: convs,
		Triage:        &answerTriage{answer: "pong"},
		Planner:       noPlanner{},
	})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	return NewServer("127.0.0.1:0", orch, tasks, convs, logging.NopLogger()), tasks, convs
}

func TestHandleStreamSSE(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := strings.NewReader(`{"query": "ping", "user_id": "u1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/stream", body)
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	var events []models.ResponseChunk
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var chunk models.ResponseChunk
		if err := json.Unmarshal([]byte(line[len("data: "):]), &chunk); err != nil {
			t.Fatalf("bad SSE payload %q: %v", line, err)
		}
		events = append(events, chunk)
	}

	if len(events) < 3 {
		t.Fatalf("got %d events, want at least started/answer/done", len(events))
	}
	if events[0].Event != models.EventConversationStarted {
		t.Errorf("first event = %s", events[0].Event)
	}
	sawAnswer := false
	for _, e := range events {
		if e.Event == models.EventMessageChunk && e.Content == "pong" {
			sawAnswer = true
		}
	}
	if !sawAnswer {
		t.Error("answer chunk missing from stream")
	}
	if last := events[len(events)-1]; last.Event != models.EventDone {
		t.Errorf("last event = %s, want done", last.Event)
	}
}

func TestHandleStreamRejectsBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/agents/stream", nil)
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/agents/stream", strings.NewReader(`{"user_id": "u1"}`))
	rec = httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", rec.Code)
	}
}

func TestConversationEndpoints(t *testing.T) {
	srv, tasks, convs := newTestServer(t)

	conv := &models.Conversation{ID: "conv_x", UserID: "u1", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := convs.SaveConversation(conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	if err := convs.AppendMessage(&models.Message{ID: "msg_1", ConversationID: "conv_x", Role: models.RoleUser, Content: "hi", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	if err := tasks.SaveTask(&models.Task{ID: "task_1", ConversationID: "conv_x", Status: models.TaskStatusCompleted, Pattern: models.PatternOnce, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/v1/conversations/conv_x"); rec.Code != http.StatusOK {
		t.Errorf("get conversation status = %d", rec.Code)
	}
	if rec := get("/v1/conversations/conv_x/history"); rec.Code != http.StatusOK {
		t.Errorf("history status = %d", rec.Code)
	} else {
		var msgs []*models.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil || len(msgs) != 1 {
			t.Errorf("history = %s (err %v)", rec.Body.String(), err)
		}
	}
	if rec := get("/v1/conversations/conv_x/tasks"); rec.Code != http.StatusOK {
		t.Errorf("tasks status = %d", rec.Code)
	}
	if rec := get("/v1/conversations/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing conversation status = %d", rec.Code)
	}

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/conversations/conv_x", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if _, err := convs.GetConversation("conv_x"); err == nil {
		t.Error("conversation still present after delete")
	}
}

func TestSplitConversationPath(t *testing.T) {
	tests := []struct {
		path    string
		id, sub string
	}{
		{"/v1/conversations/conv_1", "conv_1", ""},
		{"/v1/conversations/conv_1/history", "conv_1", "history"},
		{"/v1/conversations/conv_1/tasks", "conv_1", "tasks"},
		{"/v1/conversations/", "", ""},
	}
	for _, tt := range tests {
		id, sub := splitConversationPath(tt.path)
		if id != tt.id || sub != tt.sub {
			t.Errorf("splitConversationPath(%q) = %q, %q; want %q, %q", tt.path, id, sub, tt.id, tt.sub)
		}
	}
}
