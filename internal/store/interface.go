package store

import "github.com/avashisht/tandem/pkg/models"

// TaskStore is CRUD over tasks keyed by ID. Implementations must
// provide read-your-writes consistency per task ID; the core never
// relies on multi-task atomicity.
type TaskStore interface {
	// SaveTask inserts or replaces a task record.
	SaveTask(task *models.Task) error
	// GetTask returns the task with the given ID, or ErrNotFound.
	GetTask(id string) (*models.Task, error)
	// DeleteTask removes a task. Deleting a missing task is not an error.
	DeleteTask(id string) error
	// ListByStatus returns tasks in the given status, oldest first.
	ListByStatus(status models.TaskStatus) ([]*models.Task, error)
	// ListByConversation returns a conversation's tasks, oldest first.
	ListByConversation(conversationID string) ([]*models.Task, error)
}

// ConversationStore persists conversations and their message history.
type ConversationStore interface {
	// SaveConversation inserts or replaces a conversation record.
	SaveConversation(conv *models.Conversation) error
	// GetConversation returns the conversation with the given ID, or ErrNotFound.
	GetConversation(id string) (*models.Conversation, error)
	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(id string) error
	// AppendMessage records a message in a conversation.
	AppendMessage(msg *models.Message) error
	// History returns a conversation's messages, oldest first. A
	// positive limit keeps only the most recent messages.
	History(conversationID string, limit int) ([]*models.Message, error)
}
