package store

import (
	"sort"
	"sync"

	"github.com/avashisht/tandem/pkg/models"
)

// MemoryTaskStore is an in-memory TaskStore. It backs tests and runs
// where durability is not needed.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*models.Task)}
}

// Compile-time verification that MemoryTaskStore implements TaskStore.
var _ TaskStore = (*MemoryTaskStore)(nil)

// SaveTask inserts or replaces a task record. The task is copied so
// later mutation by the caller does not bypass the store.
func (s *MemoryTaskStore) SaveTask(task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

// GetTask returns a copy of the task with the given ID.
func (s *MemoryTaskStore) GetTask(id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *task
	return &cp, nil
}

// DeleteTask removes a task record.
func (s *MemoryTaskStore) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

// ListByStatus returns tasks in the given status, oldest first.
func (s *MemoryTaskStore) ListByStatus(status models.TaskStatus) ([]*models.Task, error) {
	return s.list(func(t *models.Task) bool { return t.Status == status })
}

// ListByConversation returns a conversation's tasks, oldest first.
func (s *MemoryTaskStore) ListByConversation(conversationID string) ([]*models.Task, error) {
	return s.list(func(t *models.Task) bool { return t.ConversationID == conversationID })
}

func (s *MemoryTaskStore) list(keep func(*models.Task) bool) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Task
	for _, task := range s.tasks {
		if keep(task) {
			cp := *task
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MemoryConversationStore is an in-memory ConversationStore counterpart
// to MemoryTaskStore.
type MemoryConversationStore struct {
	mu       sync.RWMutex
	convs    map[string]*models.Conversation
	messages map[string][]*models.Message

	// tasks, when bound, receives cancellations on conversation delete.
	tasks *MemoryTaskStore
}

// NewMemoryConversationStore creates an empty in-memory conversation store.
func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		convs:    make(map[string]*models.Conversation),
		messages: make(map[string][]*models.Message),
	}
}

var _ ConversationStore = (*MemoryConversationStore)(nil)

// BindTasks links a task store so DeleteConversation cancels the
// conversation's unfinished tasks, matching the SQLite store. Bind
// before handing the store to concurrent users.
func (s *MemoryConversationStore) BindTasks(tasks *MemoryTaskStore) {
	s.tasks = tasks
}

// SaveConversation inserts or replaces a conversation record.
func (s *MemoryConversationStore) SaveConversation(conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *conv
	s.convs[conv.ID] = &cp
	return nil
}

// GetConversation returns a copy of the conversation with the given ID.
func (s *MemoryConversationStore) GetConversation(id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

// DeleteConversation removes a conversation and its messages. With a
// bound task store, the conversation's unfinished tasks are cancelled;
// finished ones stay as an archive.
func (s *MemoryConversationStore) DeleteConversation(id string) error {
	if s.tasks != nil {
		tasks, err := s.tasks.ListByConversation(id)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if task.Finished() {
				continue
			}
			task.Cancel()
			if err := s.tasks.SaveTask(task); err != nil {
				return err
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	delete(s.messages, id)
	return nil
}

// AppendMessage records a message in a conversation.
func (s *MemoryConversationStore) AppendMessage(msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &cp)
	return nil
}

// History returns a conversation's messages, oldest first, capped at limit.
func (s *MemoryConversationStore) History(conversationID string, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}
