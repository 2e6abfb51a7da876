package cache

import (
	"github.com/Rrens/chatdesk/internal/domain"
)

// Key prefixes, one per entity kind and shape
const (
	prefixThreads        = "threads"
	prefixThread         = "thread"
	prefixMessages       = "messages"
	prefixVisitors       = "visitors"
	prefixVisitor        = "visitor"
	prefixVisitorThreads = "visitorthreads"
)

// Keys builds cache keys for one tenant
type Keys struct {
	tenant domain.Tenant
}

// NewKeys creates a key builder bound to tenant
func NewKeys(tenant domain.Tenant) Keys {
	return Keys{tenant: tenant}
}

// Tenant returns the tenant the keys belong to
func (k Keys) Tenant() domain.Tenant {
	return k.tenant
}

// Threads is the thread list of the tenant's chatbot
func (k Keys) Threads() string {
	return key(prefixThreads, k.tenant.ChatbotID)
}

// Thread is the detail snapshot of one thread
func (k Keys) Thread(threadID string) string {
	return key(prefixThread, threadID)
}

// Messages is the message list of one thread
func (k Keys) Messages(threadID string) string {
	return key(prefixMessages, threadID)
}

// Visitors is the lead table of the tenant's chatbot
func (k Keys) Visitors() string {
	return key(prefixVisitors, k.tenant.ChatbotID)
}

// Visitor is the detail snapshot of one visitor
func (k Keys) Visitor(visitorID string) string {
	return key(prefixVisitor, visitorID)
}

// VisitorThreads is the accumulated thread pages of one visitor
func (k Keys) VisitorThreads(visitorID string) string {
	return key(prefixVisitorThreads, visitorID)
}

func key(prefix, id string) string {
	return prefix + "_" + id
}
