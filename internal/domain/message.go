package domain

import (
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
	RoleAgent     MessageRole = "AGENT"
)

// Reaction is the operator feedback attached to a message
type Reaction string

const (
	ReactionPositive Reaction = "POSITIVE"
	ReactionNegative Reaction = "NEGATIVE"
	ReactionNone     Reaction = "NONE"
)

// Valid reports whether r is a known reaction
func (r Reaction) Valid() bool {
	switch r {
	case ReactionPositive, ReactionNegative, ReactionNone:
		return true
	}
	return false
}

// Message represents a chat message in a thread
type Message struct {
	ID        string      `json:"id"`
	ThreadID  string      `json:"threadId"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Reaction  *Reaction   `json:"reaction,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt *time.Time  `json:"updatedAt,omitempty"`
}
