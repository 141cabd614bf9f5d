package models

import "time"

// ChunkEvent classifies a response chunk for the wire protocol.
// Each chunk becomes exactly one transport event (e.g. one SSE event).
type ChunkEvent string

const (
	// EventConversationStarted opens a brand-new conversation.
	EventConversationStarted ChunkEvent = "conversation_started"
	// EventMessageChunk carries incremental agent output.
	EventMessageChunk ChunkEvent = "message_chunk"
	// EventTaskStarted marks a task's dispatch to its agent.
	EventTaskStarted ChunkEvent = "task_started"
	// EventTaskCompleted marks a task's successful completion.
	EventTaskCompleted ChunkEvent = "task_completed"
	// EventTaskFailed carries a task-scoped failure. Sibling tasks continue.
	EventTaskFailed ChunkEvent = "task_failed"
	// EventRequireUserInput asks the user for clarification; no tasks were created.
	EventRequireUserInput ChunkEvent = "plan_require_user_input"
	// EventSystemFailed reports a failure fatal to the whole turn (e.g. deadlock).
	EventSystemFailed ChunkEvent = "system_failed"
	// EventDone terminates the stream for this turn.
	EventDone ChunkEvent = "done"
)

// ResponseChunk is one caller-visible unit of streamed output.
type ResponseChunk struct {
	// Event is the chunk's protocol classification.
	Event ChunkEvent `json:"event"`
	// ConversationID is the owning conversation.
	ConversationID string `json:"conversation_id"`
	// TaskID tags agent output with its originating task. Empty for
	// turn-level events such as done and system_failed.
	TaskID string `json:"task_id,omitempty"`
	// AgentName identifies the producing agent, when applicable.
	AgentName string `json:"agent_name,omitempty"`
	// Content is the chunk payload: agent text, an answer, a
	// clarification prompt, or an error description.
	Content string `json:"content,omitempty"`
	// Done is set on the final chunk of a task's stream.
	Done bool `json:"done,omitempty"`
	// Timestamp is when the chunk was produced.
	Timestamp time.Time `json:"timestamp"`
}

// Terminal returns true for events that end the turn's stream.
func (c ResponseChunk) Terminal() bool {
	return c.Event == EventDone
}
