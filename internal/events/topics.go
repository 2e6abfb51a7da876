package events

import (
	"github.com/Rrens/chatdesk/internal/domain"
)

// ThreadChange announces that fields of a thread changed
type ThreadChange struct {
	ID      string        `json:"id"`
	Changed domain.Fields `json:"changedFields"`
}

// MessageChange announces that fields of a message changed
type MessageChange struct {
	ID       string        `json:"id"`
	ThreadID string        `json:"threadId"`
	Changed  domain.Fields `json:"changedFields"`
}

// VisitorChange announces that fields of a visitor changed
type VisitorChange struct {
	ID      string        `json:"id"`
	Changed domain.Fields `json:"changedFields"`
}

var (
	ThreadUpdated  = Topic[ThreadChange]{name: "thread-updated"}
	MessageUpdated = Topic[MessageChange]{name: "message-updated"}
	VisitorUpdated = Topic[VisitorChange]{name: "visitor-updated"}
)
