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

// ThreadListView holds the thread rows of one chatbot
type ThreadListView struct {
	tenant domain.Tenant
	source ThreadSource
	cache  *cache.EntityCache
	key    string

	mu      sync.RWMutex
	rows    []domain.Thread
	fresh   bool
	version uint64
	fetches int

	unsubscribe func()
}

// NewThreadListView creates the list view and subscribes it to thread changes
func NewThreadListView(tenant domain.Tenant, source ThreadSource, c *cache.EntityCache, bus *events.Bus) *ThreadListView {
	v := &ThreadListView{
		tenant: tenant,
		source: source,
		cache:  c,
		key:    cache.NewKeys(tenant).Threads(),
	}
	v.unsubscribe = events.Subscribe(bus, events.ThreadUpdated, func(change events.ThreadChange) {
		v.Apply(context.Background(), change.ID, change.Changed)
	})
	return v
}

// Load paints cached rows, then fetches and replaces them
func (v *ThreadListView) Load(ctx context.Context) error {
	var cached []domain.Thread
	entry, ok, err := v.cache.Load(ctx, v.key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", v.key).Msg("Ignoring unreadable cache entry")
	} else if ok {
		v.replace(cached, v.cache.Fresh(entry))
	}

	ticket := v.cache.Ticket(v.key)
	v.mu.Lock()
	v.fetches++
	v.mu.Unlock()

	threads, err := v.source.ListThreads(ctx, v.tenant)
	if err != nil {
		return fmt.Errorf("failed to fetch threads: %w", err)
	}

	if err := v.cache.PutSeq(ctx, v.key, ticket, threads); err != nil {
		if errors.Is(err, cache.ErrStale) {
			// A confirmed mutation landed while fetching; current rows are newer
			return nil
		}
		log.Warn().Err(err).Str("key", v.key).Msg("Failed to cache threads")
	}
	v.replace(threads, true)
	return nil
}

// Rows returns a copy of the current rows
func (v *ThreadListView) Rows() []domain.Thread {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]domain.Thread(nil), v.rows...)
}

// Thread returns the row with id
func (v *ThreadListView) Thread(id string) (domain.Thread, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i := v.indexLocked(id); i >= 0 {
		return v.rows[i], true
	}
	return domain.Thread{}, false
}

// Fresh reports whether the rows came from the backend or a fresh cache entry
func (v *ThreadListView) Fresh() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fresh
}

// Version increments on every re-render
func (v *ThreadListView) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Fetches counts backend list requests issued by the view
func (v *ThreadListView) Fetches() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetches
}

// Close unsubscribes the view
func (v *ThreadListView) Close() {
	v.unsubscribe()
}

// Name implements mutation.Holder
func (v *ThreadListView) Name() string {
	return "thread-list:" + v.tenant.ChatbotID
}

// Snapshot implements mutation.Holder
func (v *ThreadListView) Snapshot(_ context.Context, id string, fields []string) (domain.Fields, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i := v.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	return snapshotOf(&v.rows[i], fields)
}

// Apply implements mutation.Holder
func (v *ThreadListView) Apply(_ context.Context, id string, fields domain.Fields) error {
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

func (v *ThreadListView) replace(rows []domain.Thread, fresh bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = rows
	v.fresh = fresh
	v.version++
}

func (v *ThreadListView) indexLocked(id string) int {
	for i := range v.rows {
		if v.rows[i].ID == id {
			return i
		}
	}
	return -1
}
