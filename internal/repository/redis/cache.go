package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotPrefix = "console:"
)

// SnapshotStore persists cache entries in Redis. Every write refreshes the
// TTL so a session keyspace lives as long as the session keeps writing.
type SnapshotStore struct {
	client *Client
	ttl    time.Duration
}

// NewSnapshotStore creates a new snapshot store
func NewSnapshotStore(client *Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// Get retrieves a cached entry
func (s *SnapshotStore) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	data, err := s.client.rdb.Get(ctx, snapshotPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Entry{}, false, nil // Cache miss
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return entry, true, nil
}

// Put stores an entry, replacing any previous value
func (s *SnapshotStore) Put(ctx context.Context, entry cache.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return s.client.rdb.Set(ctx, snapshotPrefix+entry.Key, data, s.ttl).Err()
}

// Delete removes a cached entry
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	return s.client.rdb.Del(ctx, snapshotPrefix+key).Err()
}

// Flush removes all cached entries under prefix
func (s *SnapshotStore) Flush(ctx context.Context, prefix string) (int64, error) {
	pattern := snapshotPrefix + prefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := s.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := s.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}

// Close releases the underlying client
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

// Ping checks the backing server is reachable
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
