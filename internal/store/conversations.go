package store

import (
	"database/sql"
	"fmt"

	"github.com/avashisht/tandem/pkg/models"
)

// Compile-time verification that DB implements ConversationStore.
var _ ConversationStore = (*DB)(nil)

// SaveConversation inserts or replaces a conversation record.
func (db *DB) SaveConversation(conv *models.Conversation) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, conv.ID, conv.UserID, conv.Title, formatTime(conv.CreatedAt), formatTime(conv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", conv.ID, err)
	}
	return nil
}

// GetConversation returns the conversation with the given ID.
func (db *DB) GetConversation(id string) (*models.Conversation, error) {
	var (
		conv                 models.Conversation
		title                sql.NullString
		createdAt, updatedAt string
	)
	err := db.QueryRow(`
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(&conv.ID, &conv.UserID, &title, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}

	conv.Title = title.String
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", id, err)
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", id, err)
	}
	return &conv, nil
}

// DeleteConversation removes a conversation, its messages, and cancels
// any of its unfinished tasks. Task rows are kept as an archive; only
// their status changes.
func (db *DB) DeleteConversation(id string) error {
	tasks, err := db.ListByConversation(id)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if task.Finished() {
			continue
		}
		task.Cancel()
		if err := db.SaveTask(task); err != nil {
			return err
		}
	}

	if _, err := db.Exec("DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("delete messages for %s: %w", id, err)
	}
	if _, err := db.Exec("DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

// AppendMessage records a message in a conversation.
func (db *DB) AppendMessage(msg *models.Message) error {
	_, err := db.Exec(`
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, string(msg.Role), msg.Content, formatTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("append message to %s: %w", msg.ConversationID, err)
	}
	return nil
}

// History returns a conversation's messages, oldest first, capped at
// limit. The cap keeps the most recent messages. A limit of 0 means
// no cap.
func (db *DB) History(conversationID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at ASC
	`
	args := []any{conversationID}
	if limit > 0 {
		query = `
			SELECT id, conversation_id, role, content, created_at FROM (
				SELECT id, conversation_id, role, content, created_at
				FROM messages WHERE conversation_id = ?
				ORDER BY created_at DESC LIMIT ?
			) ORDER BY created_at ASC
		`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var (
			msg       models.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &createdAt); err != nil {
			return nil, err
		}
		msg.Role = models.MessageRole(role)
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for message %s: %w", msg.ID, err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}
