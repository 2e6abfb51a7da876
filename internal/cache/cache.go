package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrStale is returned when a write carries a sequence older than the last
// one applied to the same key
var ErrStale = errors.New("stale cache write discarded")

// Options configures an EntityCache
type Options struct {
	// Namespace prefixes every store key, scoping entries to a session and account
	Namespace string
	// MaxAge after which an entry is no longer fresh. Zero means entries never age.
	MaxAge time.Duration
}

// EntityCache maps keys to the last known snapshot of a list or a single record
type EntityCache struct {
	store     Store
	namespace string
	maxAge    time.Duration
	now       func() time.Time

	// mu serializes read-modify-write cycles so patches never interleave
	mu  sync.Mutex
	seq map[string]*sequence
}

type sequence struct {
	issued  uint64
	applied uint64
}

// New creates an EntityCache over store
func New(store Store, opts Options) *EntityCache {
	return &EntityCache{
		store:     store,
		namespace: opts.Namespace,
		maxAge:    opts.MaxAge,
		now:       time.Now,
		seq:       make(map[string]*sequence),
	}
}

// Get returns the entry stored under key
func (c *EntityCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	entry, ok, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if ok {
		entry.Key = key
	}
	return entry, ok, nil
}

// Load decodes the payload stored under key into dst
func (c *EntityCache) Load(ctx context.Context, key string, dst any) (Entry, bool, error) {
	entry, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return entry, ok, err
	}
	if err := json.Unmarshal(entry.Payload, dst); err != nil {
		return entry, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return entry, true, nil
}

// Ticket reserves the next sequence number for key. Pass it to PutSeq when
// the response the ticket was issued for arrives.
func (c *EntityCache) Ticket(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticketLocked(key)
}

// Put replaces the snapshot under key
func (c *EntityCache) Put(ctx context.Context, key string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.putLocked(ctx, key, c.ticketLocked(key), payload)
}

// PutSeq replaces the snapshot under key unless a newer ticket was already
// applied, in which case ErrStale is returned and the entry is untouched
func (c *EntityCache) PutSeq(ctx context.Context, key string, seq uint64, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.putLocked(ctx, key, seq, payload)
}

// Patch merges changes into the record with the given id. For list snapshots
// the matching element is replaced; for single-record snapshots the record
// itself is. It reports false when no record with that id is held.
func (c *EntityCache) Patch(ctx context.Context, key, id string, changes domain.Fields) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	payload, patched, err := patchPayload(entry.Payload, id, changes)
	if err != nil {
		return false, fmt.Errorf("failed to patch cache entry %s: %w", key, err)
	}
	if !patched {
		return false, nil
	}

	seq := c.ticketLocked(key)
	c.seq[key].applied = seq
	entry.Key = c.storeKey(key)
	entry.Payload = payload
	entry.WrittenAt = c.now()
	if err := c.store.Put(ctx, entry); err != nil {
		return false, fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return true, nil
}

// Record returns the fields of the record with id held under key
func (c *EntityCache) Record(ctx context.Context, key, id string) (domain.Fields, bool, error) {
	entry, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	rec, found, err := findRecord(entry.Payload, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return rec, found, nil
}

// MarkDirty flags the entry so Fresh reports false until it is rewritten
func (c *EntityCache) MarkDirty(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil {
		return fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if !ok || entry.Dirty {
		return nil
	}
	entry.Key = c.storeKey(key)
	entry.Dirty = true
	return c.store.Put(ctx, entry)
}

// Fresh reports whether the entry can be trusted without a refetch
func (c *EntityCache) Fresh(entry Entry) bool {
	if entry.Dirty {
		return false
	}
	if c.maxAge <= 0 {
		return true
	}
	return c.now().Sub(entry.WrittenAt) <= c.maxAge
}

// Invalidate removes the entry under key
func (c *EntityCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Delete(ctx, c.storeKey(key)); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// Flush removes every entry of this cache's namespace
func (c *EntityCache) Flush(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.store.Flush(ctx, c.storeKey(""))
	if err != nil {
		return n, fmt.Errorf("failed to flush cache: %w", err)
	}
	return n, nil
}

func (c *EntityCache) ticketLocked(key string) uint64 {
	s, ok := c.seq[key]
	if !ok {
		s = &sequence{}
		c.seq[key] = s
	}
	s.issued++
	return s.issued
}

func (c *EntityCache) putLocked(ctx context.Context, key string, seq uint64, payload any) error {
	s, ok := c.seq[key]
	if !ok {
		s = &sequence{}
		c.seq[key] = s
	}
	if seq < s.applied {
		log.Debug().
			Str("key", key).
			Uint64("seq", seq).
			Uint64("applied", s.applied).
			Msg("Discarding out-of-order cache write")
		return ErrStale
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
	}

	entry := Entry{
		Key:       c.storeKey(key),
		Payload:   data,
		WrittenAt: c.now(),
	}
	if err := c.store.Put(ctx, entry); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	s.applied = seq
	return nil
}

func (c *EntityCache) storeKey(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}
