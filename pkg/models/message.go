package models

import "time"

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one exchanged message within a conversation. The message
// history is the context handed to triage and the planner.
type Message struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`
	// ConversationID is the owning conversation.
	ConversationID string `json:"conversation_id"`
	// Role is the message author.
	Role MessageRole `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// CreatedAt is when the message was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a user-scoped container of messages and tasks.
type Conversation struct {
	// ID is the unique identifier for this conversation.
	ID string `json:"id"`
	// UserID is the owning user.
	UserID string `json:"user_id"`
	// Title is a short human label, set from the first planned task.
	Title string `json:"title,omitempty"`
	// CreatedAt is when the conversation was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the conversation last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
