package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Rrens/chatdesk/internal/backend"
	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/events"
	"github.com/rs/zerolog/log"
)

// ErrThreadNotFound is returned when a detail view opens an unknown thread
var ErrThreadNotFound = errors.New("thread not found")

// ThreadDetailView holds one open thread and its messages
type ThreadDetailView struct {
	tenant   domain.Tenant
	threads  ThreadSource
	messages MessageSource
	cache    *cache.EntityCache
	keys     cache.Keys

	mu      sync.RWMutex
	thread  *domain.Thread
	msgs    []domain.Message
	version uint64
	fetches int

	unsubscribe []func()
}

// NewThreadDetailView creates the detail view and subscribes it to thread and message changes
func NewThreadDetailView(tenant domain.Tenant, threads ThreadSource, messages MessageSource, c *cache.EntityCache, bus *events.Bus) *ThreadDetailView {
	v := &ThreadDetailView{
		tenant:   tenant,
		threads:  threads,
		messages: messages,
		cache:    c,
		keys:     cache.NewKeys(tenant),
	}
	v.unsubscribe = []func(){
		events.Subscribe(bus, events.ThreadUpdated, func(change events.ThreadChange) {
			v.Apply(context.Background(), change.ID, change.Changed)
		}),
		events.Subscribe(bus, events.MessageUpdated, func(change events.MessageChange) {
			v.applyMessage(change.ID, change.Changed)
		}),
	}
	return v
}

// Open shows threadID: the record comes from the detail or list cache entry,
// falling back to a list fetch, then messages are painted and refetched.
// A cached record that is dirty or past MaxAge is painted and then refetched.
func (v *ThreadDetailView) Open(ctx context.Context, threadID string) error {
	thread, fresh, err := v.resolveThread(ctx, threadID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.thread = &thread
	v.msgs = nil
	v.version++
	v.mu.Unlock()

	if !fresh {
		if err := v.refreshThread(ctx, threadID); err != nil {
			return err
		}
	}

	msgKey := v.keys.Messages(threadID)
	var cached []domain.Message
	if _, ok, err := v.cache.Load(ctx, msgKey, &cached); err != nil {
		log.Warn().Err(err).Str("key", msgKey).Msg("Ignoring unreadable cache entry")
	} else if ok {
		v.setMessages(threadID, cached)
	}

	ticket := v.cache.Ticket(msgKey)
	v.mu.Lock()
	v.fetches++
	v.mu.Unlock()

	msgs, err := v.messages.ListMessages(ctx, v.tenant, threadID)
	if errors.Is(err, backend.ErrNotFound) {
		v.forget(ctx, threadID)
		return fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}
	if err := v.cache.PutSeq(ctx, msgKey, ticket, msgs); err != nil {
		if errors.Is(err, cache.ErrStale) {
			return nil
		}
		log.Warn().Err(err).Str("key", msgKey).Msg("Failed to cache messages")
	}
	v.setMessages(threadID, msgs)
	return nil
}

// resolveThread reports whether the record came from a fresh cache entry or
// straight from the backend
func (v *ThreadDetailView) resolveThread(ctx context.Context, threadID string) (domain.Thread, bool, error) {
	var thread domain.Thread
	detailKey := v.keys.Thread(threadID)
	if entry, ok, err := v.cache.Load(ctx, detailKey, &thread); err == nil && ok {
		return thread, v.cache.Fresh(entry), nil
	}

	listKey := v.keys.Threads()
	if rec, ok, err := v.cache.Record(ctx, listKey, threadID); err == nil && ok {
		if err := rec.ApplyTo(&thread); err == nil {
			v.storeDetail(ctx, detailKey, thread)
			entry, _, err := v.cache.Get(ctx, listKey)
			return thread, err == nil && v.cache.Fresh(entry), nil
		}
	}

	thread, found, err := v.fetchThread(ctx, threadID)
	if err != nil {
		return thread, false, err
	}
	if !found {
		return thread, false, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	v.storeDetail(ctx, detailKey, thread)
	return thread, true, nil
}

// refreshThread refetches the open thread and replaces the painted record.
// A cache write that raced ahead of the refetch wins.
func (v *ThreadDetailView) refreshThread(ctx context.Context, threadID string) error {
	detailKey := v.keys.Thread(threadID)
	ticket := v.cache.Ticket(detailKey)

	thread, found, err := v.fetchThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !found {
		v.forget(ctx, threadID)
		return fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}

	if err := v.cache.PutSeq(ctx, detailKey, ticket, thread); err != nil {
		if errors.Is(err, cache.ErrStale) {
			return nil
		}
		log.Warn().Err(err).Str("key", detailKey).Msg("Failed to cache thread detail")
	}

	v.mu.Lock()
	if v.thread != nil && v.thread.ID == threadID {
		v.thread = &thread
		v.version++
	}
	v.mu.Unlock()
	return nil
}

func (v *ThreadDetailView) fetchThread(ctx context.Context, threadID string) (domain.Thread, bool, error) {
	v.mu.Lock()
	v.fetches++
	v.mu.Unlock()
	threads, err := v.threads.ListThreads(ctx, v.tenant)
	if err != nil {
		return domain.Thread{}, false, fmt.Errorf("failed to fetch threads: %w", err)
	}
	for _, t := range threads {
		if t.ID == threadID {
			return t, true, nil
		}
	}
	return domain.Thread{}, false, nil
}

// forget drops a thread the backend no longer knows
func (v *ThreadDetailView) forget(ctx context.Context, threadID string) {
	for _, key := range []string{v.keys.Thread(threadID), v.keys.Messages(threadID)} {
		if err := v.cache.Invalidate(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate cache entry")
		}
	}

	v.mu.Lock()
	if v.thread != nil && v.thread.ID == threadID {
		v.thread = nil
		v.msgs = nil
		v.version++
	}
	v.mu.Unlock()
}

func (v *ThreadDetailView) storeDetail(ctx context.Context, key string, thread domain.Thread) {
	if err := v.cache.Put(ctx, key, thread); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache thread detail")
	}
}

// Thread returns the open thread
func (v *ThreadDetailView) Thread() (domain.Thread, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.thread == nil {
		return domain.Thread{}, false
	}
	return *v.thread, true
}

// Messages returns a copy of the open thread's messages
func (v *ThreadDetailView) Messages() []domain.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]domain.Message(nil), v.msgs...)
}

// Version increments on every re-render
func (v *ThreadDetailView) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Fetches counts backend requests issued by the view
func (v *ThreadDetailView) Fetches() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetches
}

// Close unsubscribes the view
func (v *ThreadDetailView) Close() {
	for _, fn := range v.unsubscribe {
		fn()
	}
}

// Name implements mutation.Holder
func (v *ThreadDetailView) Name() string {
	return "thread-detail"
}

// Snapshot implements mutation.Holder
func (v *ThreadDetailView) Snapshot(_ context.Context, id string, fields []string) (domain.Fields, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.thread == nil || v.thread.ID != id {
		return nil, false
	}
	return snapshotOf(v.thread, fields)
}

// Apply implements mutation.Holder
func (v *ThreadDetailView) Apply(_ context.Context, id string, fields domain.Fields) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.thread == nil || v.thread.ID != id {
		return nil
	}
	if patchRecord(v.thread, fields) {
		v.version++
	}
	return nil
}

// MessageHolder exposes the open thread's messages to the message coordinator
func (v *ThreadDetailView) MessageHolder() *MessageHolder {
	return &MessageHolder{view: v}
}

func (v *ThreadDetailView) setMessages(threadID string, msgs []domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.thread == nil || v.thread.ID != threadID {
		// Another thread was opened meanwhile
		return
	}
	v.msgs = msgs
	v.version++
}

func (v *ThreadDetailView) applyMessage(id string, fields domain.Fields) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.messageIndexLocked(id); i >= 0 && patchRecord(&v.msgs[i], fields) {
		v.version++
	}
}

func (v *ThreadDetailView) messageIndexLocked(id string) int {
	for i := range v.msgs {
		if v.msgs[i].ID == id {
			return i
		}
	}
	return -1
}

// MessageHolder adapts the messages of a ThreadDetailView to mutation.Holder
type MessageHolder struct {
	view *ThreadDetailView
}

func (h *MessageHolder) Name() string {
	return "thread-detail-messages"
}

func (h *MessageHolder) Snapshot(_ context.Context, id string, fields []string) (domain.Fields, bool) {
	h.view.mu.RLock()
	defer h.view.mu.RUnlock()
	i := h.view.messageIndexLocked(id)
	if i < 0 {
		return nil, false
	}
	return snapshotOf(&h.view.msgs[i], fields)
}

func (h *MessageHolder) Apply(_ context.Context, id string, fields domain.Fields) error {
	h.view.applyMessage(id, fields)
	return nil
}
