package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is the last known snapshot stored under a key. Entries are always
// replaced whole.
type Entry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	WrittenAt time.Time       `json:"writtenAt"`
	Dirty     bool            `json:"dirty,omitempty"`
}

// Store persists entries for the lifetime of a console session
type Store interface {
	// Get returns the entry for key. A miss is (Entry{}, false, nil).
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	// Flush removes every entry whose key starts with prefix
	Flush(ctx context.Context, prefix string) (int64, error)
	Close() error
}
