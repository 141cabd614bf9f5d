package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avashisht/tandem/internal/agent"
	"github.com/avashisht/tandem/internal/store"
	"github.com/avashisht/tandem/pkg/models"
)

// scriptedAgent replays a fixed chunk sequence per Stream call. Safe
// for concurrent cycles; detached recurring runs call it off the test
// goroutine.
type scriptedAgent struct {
	name    string
	chunks  []agent.StreamChunk
	openErr error

	mu    sync.Mutex
	calls int
}

func (a *scriptedAgent) Name() string { return a.name }

func (a *scriptedAgent) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *scriptedAgent) Stream(ctx context.Context, query, correlationID string) (<-chan agent.StreamChunk, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.openErr != nil {
		return nil, a.openErr
	}
	out := make(chan agent.StreamChunk, len(a.chunks))
	for _, c := range a.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

func newTestExecutor(t *testing.T, ag agent.Agent) (*Executor, *store.MemoryTaskStore) {
	t.Helper()
	reg := agent.NewRegistry()
	if err := reg.Register(ag); err != nil {
		t.Fatalf("register: %v", err)
	}
	tasks := store.NewMemoryTaskStore()
	// Tight retry budget keeps failure tests fast.
	cfg := DefaultRetryConfig()
	cfg.InitialInterval = time.Millisecond
	cfg.MaxElapsedTime = 10 * time.Millisecond
	return New(context.Background(), reg, tasks, WithRetryConfig(cfg)), tasks
}

func onceTask(agentName string) *models.Task {
	return &models.Task{
		ID:             models.NewTaskID(),
		ConversationID: "conv_test",
		Query:          "do the thing",
		AgentName:      agentName,
		Status:         models.TaskStatusPending,
		Pattern:        models.PatternOnce,
		CreatedAt:      time.Now(),
	}
}

func collect(ch <-chan models.ResponseChunk) []models.ResponseChunk {
	var out []models.ResponseChunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestExecuteOnceCompletes(t *testing.T) {
	ag := &scriptedAgent{name: "worker", chunks: []agent.StreamChunk{
		{Content: "hello "},
		{Content: "world"},
		{Done: true},
	}}
	exec, tasks := newTestExecutor(t, ag)
	task := onceTask("worker")

	chunks := collect(exec.Execute(context.Background(), task, "thread-1", false))

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks (started, 2 content, completed), got %d", len(chunks))
	}
	if chunks[0].Event != models.EventTaskStarted {
		t.Errorf("first chunk = %s, want task_started", chunks[0].Event)
	}
	if chunks[1].Content != "hello " || chunks[2].Content != "world" {
		t.Errorf("unexpected content chunks: %+v", chunks[1:3])
	}
	last := chunks[len(chunks)-1]
	if last.Event != models.EventTaskCompleted || !last.Done {
		t.Errorf("last chunk = %+v, want terminal task_completed", last)
	}

	saved, err := tasks.GetTask(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if saved.Status != models.TaskStatusCompleted {
		t.Errorf("persisted status = %s, want completed", saved.Status)
	}
	if saved.CompletedAt == nil {
		t.Error("completed task missing CompletedAt")
	}
}

func TestExecuteRunningPersistedBeforeStream(t *testing.T) {
	exec, tasks := newTestExecutor(t, &scriptedAgent{name: "worker", chunks: []agent.StreamChunk{{Done: true}}})
	task := onceTask("worker")

	ch := exec.Execute(context.Background(), task, "thread-1", false)

	// The task_started chunk is only emitted after the running state
	// is durable, so observing it proves the persist ordering.
	first := <-ch
	if first.Event != models.EventTaskStarted {
		t.Fatalf("first chunk = %s, want task_started", first.Event)
	}
	saved, err := tasks.GetTask(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if saved.Status != models.TaskStatusRunning && saved.Status != models.TaskStatusCompleted {
		t.Errorf("status after start = %s, want running (or completed)", saved.Status)
	}
	collect(ch)
}

func TestExecuteAgentErrorFailsTask(t *testing.T) {
	ag := &scriptedAgent{name: "worker", chunks: []agent.StreamChunk{
		{Content: "partial"},
		{Err: errors.New("model overloaded")},
	}}
	exec, tasks := newTestExecutor(t, ag)
	task := onceTask("worker")

	chunks := collect(exec.Execute(context.Background(), task, "thread-1", false))

	last := chunks[len(chunks)-1]
	if last.Event != models.EventTaskFailed {
		t.Fatalf("last chunk = %s, want task_failed", last.Event)
	}
	if last.Content != "model overloaded" {
		t.Errorf("failure content = %q", last.Content)
	}

	saved, _ := tasks.GetTask(task.ID)
	if saved.Status != models.TaskStatusFailed {
		t.Errorf("persisted status = %s, want failed", saved.Status)
	}
	if saved.ErrorMessage != "model overloaded" {
		t.Errorf("persisted error = %q", saved.ErrorMessage)
	}
}

func TestExecuteUnknownAgentFailsTask(t *testing.T) {
	exec, tasks := newTestExecutor(t, &scriptedAgent{name: "worker"})
	task := onceTask("nonexistent")

	chunks := collect(exec.Execute(context.Background(), task, "thread-1", false))

	if len(chunks) != 1 || chunks[0].Event != models.EventTaskFailed {
		t.Fatalf("expected single task_failed chunk, got %+v", chunks)
	}
	saved, _ := tasks.GetTask(task.ID)
	if saved.Status != models.TaskStatusFailed {
		t.Errorf("persisted status = %s, want failed", saved.Status)
	}
}

func TestExecuteStreamOpenRetries(t *testing.T) {
	// openErr on every attempt exhausts the retry budget and fails
	// the task; the agent must have been called more than once.
	ag := &scriptedAgent{name: "worker", openErr: errors.New("connection refused")}
	exec, _ := newTestExecutor(t, ag)
	task := onceTask("worker")

	chunks := collect(exec.Execute(context.Background(), task, "thread-1", false))

	last := chunks[len(chunks)-1]
	if last.Event != models.EventTaskFailed {
		t.Fatalf("last chunk = %s, want task_failed", last.Event)
	}
	if ag.callCount() < 2 {
		t.Errorf("expected retried opens, got %d call(s)", ag.callCount())
	}
}

func TestExecuteRecurringResetsToPending(t *testing.T) {
	ag := &scriptedAgent{name: "monitor", chunks: []agent.StreamChunk{
		{Content: "tick"},
		{Done: true},
	}}

	reg := agent.NewRegistry()
	if err := reg.Register(ag); err != nil {
		t.Fatalf("register: %v", err)
	}
	tasks := store.NewMemoryTaskStore()

	// Cancelled runtime keeps the detached next cycle from firing.
	runtime, cancel := context.WithCancel(context.Background())
	cancel()
	exec := New(runtime, reg, tasks)

	task := onceTask("monitor")
	task.Pattern = models.PatternRecurring
	task.IntervalSeconds = 3600

	chunks := collect(exec.Execute(context.Background(), task, "thread-1", false))

	last := chunks[len(chunks)-1]
	if last.Event != models.EventTaskCompleted || !last.Done {
		t.Fatalf("last chunk = %+v, want terminal task_completed", last)
	}

	saved, err := tasks.GetTask(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if saved.Status != models.TaskStatusPending {
		t.Errorf("persisted status = %s, want pending for next cycle", saved.Status)
	}
}

func TestExecuteRecurringRunsNextCycleAfterInterval(t *testing.T) {
	ag := &scriptedAgent{name: "monitor", chunks: []agent.StreamChunk{
		{Content: "tick"},
		{Done: true},
	}}

	reg := agent.NewRegistry()
	if err := reg.Register(ag); err != nil {
		t.Fatalf("register: %v", err)
	}
	tasks := store.NewMemoryTaskStore()

	runtime, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := New(runtime, reg, tasks)

	task := onceTask("monitor")
	task.Pattern = models.PatternRecurring
	task.IntervalSeconds = 0 // next cycle arms immediately

	collect(exec.Execute(context.Background(), task, "thread-1", false))

	// The caller's stream ended with the first cycle; the re-armed
	// cycle runs detached on the runtime context.
	deadline := time.Now().Add(2 * time.Second)
	for ag.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("next cycle never ran; agent called %d time(s)", ag.callCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestExecuteCancellationPersistsCancelled(t *testing.T) {
	// A stream that never produces output lets cancellation win.
	blocking := &blockingAgent{name: "slow", release: make(chan struct{})}
	exec, tasks := newTestExecutor(t, blocking)
	task := onceTask("slow")

	ctx, cancel := context.WithCancel(context.Background())
	ch := exec.Execute(ctx, task, "thread-1", false)

	if first := <-ch; first.Event != models.EventTaskStarted {
		t.Fatalf("first chunk = %s, want task_started", first.Event)
	}
	cancel()
	collect(ch)
	close(blocking.release)

	saved, err := tasks.GetTask(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if saved.Status != models.TaskStatusCancelled {
		t.Errorf("persisted status = %s, want cancelled", saved.Status)
	}
}

// blockingAgent opens a stream that stays silent until released.
type blockingAgent struct {
	name    string
	release chan struct{}
}

func (a *blockingAgent) Name() string { return a.name }

func (a *blockingAgent) Stream(ctx context.Context, query, correlationID string) (<-chan agent.StreamChunk, error) {
	out := make(chan agent.StreamChunk)
	go func() {
		defer close(out)
		<-a.release
	}()
	return out, nil
}
