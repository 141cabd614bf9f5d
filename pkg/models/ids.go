package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Prefixed ID constructors. The prefix makes log lines and DB rows
// self-describing when IDs from different entities end up side by side.

// NewTaskID returns a fresh task identifier.
func NewTaskID() string { return prefixedID("task") }

// NewPlanID returns a fresh plan identifier.
func NewPlanID() string { return prefixedID("plan") }

// NewThreadID returns a fresh thread identifier for correlating
// successive runs of a recurring task.
func NewThreadID() string { return prefixedID("thread") }

// NewConversationID returns a fresh conversation identifier.
func NewConversationID() string { return prefixedID("conv") }

// NewMessageID returns a fresh message identifier.
func NewMessageID() string { return prefixedID("msg") }

func prefixedID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
