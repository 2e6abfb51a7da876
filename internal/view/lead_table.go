package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/events"
	"github.com/rs/zerolog/log"
)

// LeadTableView holds the visitor rows of one chatbot
type LeadTableView struct {
	tenant domain.Tenant
	source VisitorSource
	cache  *cache.EntityCache
	key    string

	mu      sync.RWMutex
	rows    []domain.Visitor
	version uint64
	fetches int

	unsubscribe func()
}

// NewLeadTableView creates the lead table and subscribes it to visitor changes
func NewLeadTableView(tenant domain.Tenant, source VisitorSource, c *cache.EntityCache, bus *events.Bus) *LeadTableView {
	v := &LeadTableView{
		tenant: tenant,
		source: source,
		cache:  c,
		key:    cache.NewKeys(tenant).Visitors(),
	}
	v.unsubscribe = events.Subscribe(bus, events.VisitorUpdated, func(change events.VisitorChange) {
		v.Apply(context.Background(), change.ID, change.Changed)
	})
	return v
}

// Load paints cached rows, then fetches and replaces them
func (v *LeadTableView) Load(ctx context.Context) error {
	var cached []domain.Visitor
	if _, ok, err := v.cache.Load(ctx, v.key, &cached); err != nil {
		log.Warn().Err(err).Str("key", v.key).Msg("Ignoring unreadable cache entry")
	} else if ok {
		v.replace(cached)
	}

	ticket := v.cache.Ticket(v.key)
	v.mu.Lock()
	v.fetches++
	v.mu.Unlock()

	visitors, err := v.source.ListVisitors(ctx, v.tenant)
	if err != nil {
		return fmt.Errorf("failed to fetch visitors: %w", err)
	}
	if err := v.cache.PutSeq(ctx, v.key, ticket, visitors); err != nil {
		if errors.Is(err, cache.ErrStale) {
			return nil
		}
		log.Warn().Err(err).Str("key", v.key).Msg("Failed to cache visitors")
	}
	v.replace(visitors)
	return nil
}

// Rows returns a copy of the current rows
func (v *LeadTableView) Rows() []domain.Visitor {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]domain.Visitor(nil), v.rows...)
}

// Version increments on every re-render
func (v *LeadTableView) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Fetches counts backend list requests issued by the view
func (v *LeadTableView) Fetches() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetches
}

// Close unsubscribes the view
func (v *LeadTableView) Close() {
	v.unsubscribe()
}

func (v *LeadTableView) Name() string {
	return "lead-table:" + v.tenant.ChatbotID
}

func (v *LeadTableView) Snapshot(_ context.Context, id string, fields []string) (domain.Fields, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i := v.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	return snapshotOf(&v.rows[i], fields)
}

func (v *LeadTableView) Apply(_ context.Context, id string, fields domain.Fields) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.indexLocked(id)
	if i < 0 {
		return nil
	}
	if patchRecord(&v.rows[i], fields) {
		v.version++
	}
	return nil
}

func (v *LeadTableView) replace(rows []domain.Visitor) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = rows
	v.version++
}

func (v *LeadTableView) indexLocked(id string) int {
	for i := range v.rows {
		if v.rows[i].ID == id {
			return i
		}
	}
	return -1
}
