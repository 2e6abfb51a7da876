package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/chatdesk/internal/backend"
	"github.com/Rrens/chatdesk/internal/bulk"
	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/events"
	"github.com/Rrens/chatdesk/internal/mutation"
	"github.com/Rrens/chatdesk/internal/notify"
	"github.com/Rrens/chatdesk/internal/service"
	"github.com/Rrens/chatdesk/internal/view"
	"github.com/rs/zerolog/log"
)

// Options configures a Manager
type Options struct {
	SessionID string
	MaxAge    time.Duration
	PageSize  int
}

// Manager owns the console workspaces of one session. Workspaces of the
// same account share one cache namespace and one event bus.
type Manager struct {
	opts   Options
	store  cache.Store
	client *backend.Client
	feed   *notify.Feed

	mu         sync.Mutex
	accounts   map[string]*account
	workspaces map[string]*Workspace
}

type account struct {
	cache *cache.EntityCache
	bus   *events.Bus
}

// NewManager creates a workspace manager
func NewManager(opts Options, store cache.Store, client *backend.Client, feed *notify.Feed) *Manager {
	return &Manager{
		opts:       opts,
		store:      store,
		client:     client,
		feed:       feed,
		accounts:   make(map[string]*account),
		workspaces: make(map[string]*Workspace),
	}
}

// SessionID returns the id scoping every persisted entry
func (m *Manager) SessionID() string {
	return m.opts.SessionID
}

// Feed returns the notification feed shared by all workspaces
func (m *Manager) Feed() *notify.Feed {
	return m.feed
}

// Workspace returns the workspace of the operator's account and chatbotID,
// creating it on first use
func (m *Manager) Workspace(op *Operator, chatbotID string) (*Workspace, error) {
	tenant := domain.Tenant{AccountID: op.AccountID, ChatbotID: chatbotID}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.workspaces[tenant.String()]; ok {
		ws.client.SetToken(op.Token)
		return ws, nil
	}

	acc := m.accountLocked(op.AccountID)
	ws := newWorkspace(tenant, m.client.WithToken(op.Token), acc, m.feed, m.opts.PageSize)
	m.workspaces[tenant.String()] = ws

	log.Info().
		Str("account", tenant.AccountID).
		Str("chatbot", tenant.ChatbotID).
		Msg("Console workspace opened")
	return ws, nil
}

// Flush drops every cached entry of the operator's account
func (m *Manager) Flush(ctx context.Context, op *Operator) (int64, error) {
	m.mu.Lock()
	acc := m.accountLocked(op.AccountID)
	m.mu.Unlock()
	return acc.cache.Flush(ctx)
}

// Ready reports whether the session store can serve reads and writes
func (m *Manager) Ready(ctx context.Context) error {
	if p, ok := m.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close unsubscribes every view
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, ws := range m.workspaces {
		ws.close()
		delete(m.workspaces, key)
	}
}

func (m *Manager) accountLocked(accountID string) *account {
	if acc, ok := m.accounts[accountID]; ok {
		return acc
	}
	acc := &account{
		cache: cache.New(m.store, cache.Options{
			Namespace: fmt.Sprintf("%s:%s", m.opts.SessionID, accountID),
			MaxAge:    m.opts.MaxAge,
		}),
		bus: events.NewBus(),
	}
	m.accounts[accountID] = acc
	return acc
}

// Workspace is everything the console shows for one tenant
type Workspace struct {
	Tenant         domain.Tenant
	Cache          *cache.EntityCache
	Bus            *events.Bus
	ThreadList     *view.ThreadListView
	ThreadDetail   *view.ThreadDetailView
	Leads          *view.LeadTableView
	VisitorThreads *view.VisitorThreadsView
	Threads        *service.ThreadService
	LeadService    *service.LeadService

	client *backend.Client
}

func newWorkspace(tenant domain.Tenant, client *backend.Client, acc *account, feed *notify.Feed, pageSize int) *Workspace {
	c, bus := acc.cache, acc.bus
	keys := cache.NewKeys(tenant)

	ws := &Workspace{
		Tenant:         tenant,
		Cache:          c,
		Bus:            bus,
		ThreadList:     view.NewThreadListView(tenant, client, c, bus),
		ThreadDetail:   view.NewThreadDetailView(tenant, client, client, c, bus),
		Leads:          view.NewLeadTableView(tenant, client, c, bus),
		VisitorThreads: view.NewVisitorThreadsView(tenant, client, c, bus, pageSize),
		client:         client,
	}

	threadHolders := mutation.NewRegistry()
	threadHolders.Add(ws.ThreadList)
	threadHolders.Add(ws.ThreadDetail)
	threadHolders.Add(ws.VisitorThreads)
	threadHolders.Add(c.Holder(keys.Threads()))
	threadHolders.AddResolver(func(id string) []mutation.Holder {
		return []mutation.Holder{c.Holder(keys.Thread(id))}
	})
	threads := mutation.NewCoordinator("thread", threadHolders, func(id string, changed domain.Fields) {
		events.Publish(bus, events.ThreadUpdated, events.ThreadChange{ID: id, Changed: changed})
	}, feed)

	messageHolders := mutation.NewRegistry()
	messageHolders.Add(ws.ThreadDetail.MessageHolder())
	messageHolders.AddResolver(func(string) []mutation.Holder {
		if t, ok := ws.ThreadDetail.Thread(); ok {
			return []mutation.Holder{c.Holder(keys.Messages(t.ID))}
		}
		return nil
	})
	messages := mutation.NewCoordinator("message", messageHolders, func(id string, changed domain.Fields) {
		threadID, _ := changed["threadId"].(string)
		events.Publish(bus, events.MessageUpdated, events.MessageChange{ID: id, ThreadID: threadID, Changed: changed})
	}, feed)

	visitorHolders := mutation.NewRegistry()
	visitorHolders.Add(ws.Leads)
	visitorHolders.Add(c.Holder(keys.Visitors()))
	visitorHolders.AddResolver(func(id string) []mutation.Holder {
		return []mutation.Holder{c.Holder(keys.Visitor(id))}
	})
	visitors := mutation.NewCoordinator("visitor", visitorHolders, func(id string, changed domain.Fields) {
		events.Publish(bus, events.VisitorUpdated, events.VisitorChange{ID: id, Changed: changed})
	}, feed)

	executor := bulk.NewExecutor(tenant, client, threads, feed)
	ws.Threads = service.NewThreadService(tenant, client, c, threads, messages, executor)
	ws.LeadService = service.NewLeadService(tenant, client, visitors, ws.VisitorThreads)
	return ws
}

func (ws *Workspace) close() {
	ws.ThreadList.Close()
	ws.ThreadDetail.Close()
	ws.Leads.Close()
	ws.VisitorThreads.Close()
}
