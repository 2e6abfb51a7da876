package view

import (
	"context"
	"sync"

	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/events"
	"github.com/Rrens/chatdesk/internal/pagination"
	"github.com/rs/zerolog/log"
)

// VisitorThreadsView pages through the threads each visitor started
type VisitorThreadsView struct {
	tenant   domain.Tenant
	source   VisitorThreadSource
	cache    *cache.EntityCache
	keys     cache.Keys
	pageSize int
	cursor   *pagination.Cursor[domain.Thread]

	mu      sync.RWMutex
	version uint64
	fetches int

	unsubscribe func()
}

// NewVisitorThreadsView creates the pane and subscribes it to thread changes
func NewVisitorThreadsView(tenant domain.Tenant, source VisitorThreadSource, c *cache.EntityCache, bus *events.Bus, pageSize int) *VisitorThreadsView {
	if pageSize <= 0 {
		pageSize = 10
	}
	v := &VisitorThreadsView{
		tenant:   tenant,
		source:   source,
		cache:    c,
		keys:     cache.NewKeys(tenant),
		pageSize: pageSize,
		cursor:   pagination.NewCursor[domain.Thread](),
	}
	v.unsubscribe = events.Subscribe(bus, events.ThreadUpdated, func(change events.ThreadChange) {
		v.Apply(context.Background(), change.ID, change.Changed)
	})
	return v
}

// Open shows the threads of visitorID. A fresh cached page set is restored
// as is; otherwise paging restarts from the first page.
func (v *VisitorThreadsView) Open(ctx context.Context, visitorID string) error {
	key := v.keys.VisitorThreads(visitorID)
	var saved pagination.State[domain.Thread]
	entry, ok, err := v.cache.Load(ctx, key, &saved)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Ignoring unreadable cache entry")
	}
	if ok && v.cache.Fresh(entry) {
		v.cursor.Restore(visitorID, saved)
		v.rendered()
		return nil
	}

	v.cursor.Reset(visitorID)
	v.rendered()
	_, err = v.LoadMore(ctx, visitorID)
	return err
}

// LoadMore fetches the next page for visitorID. It reports false without
// fetching when no page remains or one is already loading.
func (v *VisitorThreadsView) LoadMore(ctx context.Context, visitorID string) (bool, error) {
	loaded, err := v.cursor.LoadMore(ctx, visitorID, func(ctx context.Context, page int) ([]domain.Thread, bool, error) {
		v.mu.Lock()
		v.fetches++
		v.mu.Unlock()

		res, err := v.source.ListVisitorThreads(ctx, v.tenant, visitorID, page, v.pageSize)
		if err != nil {
			return nil, false, err
		}
		return res.Threads, res.Pagination.HasMore(), nil
	})
	if !loaded || err != nil {
		return loaded, err
	}

	v.persist(ctx, visitorID)
	v.rendered()
	return true, nil
}

// State returns the accumulated pages for visitorID
func (v *VisitorThreadsView) State(visitorID string) pagination.State[domain.Thread] {
	return v.cursor.State(visitorID)
}

// Version increments on every re-render
func (v *VisitorThreadsView) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Fetches counts backend page requests issued by the view
func (v *VisitorThreadsView) Fetches() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetches
}

// Close unsubscribes the view
func (v *VisitorThreadsView) Close() {
	v.unsubscribe()
}

// Name implements mutation.Holder
func (v *VisitorThreadsView) Name() string {
	return "visitor-threads"
}

// Snapshot implements mutation.Holder
func (v *VisitorThreadsView) Snapshot(_ context.Context, id string, fields []string) (domain.Fields, bool) {
	for _, parent := range v.cursor.Parents() {
		items := v.cursor.State(parent).Items
		for i := range items {
			if items[i].ID == id {
				return snapshotOf(&items[i], fields)
			}
		}
	}
	return nil, false
}

// Apply implements mutation.Holder
func (v *VisitorThreadsView) Apply(ctx context.Context, id string, fields domain.Fields) error {
	changed := false
	for _, parent := range v.cursor.Parents() {
		updated := v.cursor.Update(parent, func(t *domain.Thread) bool {
			return t.ID == id && patchRecord(t, fields)
		})
		if updated {
			v.persist(ctx, parent)
			changed = true
		}
	}
	if changed {
		v.rendered()
	}
	return nil
}

func (v *VisitorThreadsView) persist(ctx context.Context, visitorID string) {
	st := v.cursor.State(visitorID)
	st.Loading = false
	key := v.keys.VisitorThreads(visitorID)
	if err := v.cache.Put(ctx, key, st); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache visitor threads")
	}
}

func (v *VisitorThreadsView) rendered() {
	v.mu.Lock()
	v.version++
	v.mu.Unlock()
}
