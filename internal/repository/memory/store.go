package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Rrens/chatdesk/internal/cache"
)

// Store keeps entries in process memory. Entries do not survive a restart.
type Store struct {
	mu      sync.RWMutex
	entries map[string]cache.Entry
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{entries: make(map[string]cache.Entry)}
}

func (s *Store) Get(_ context.Context, key string) (cache.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return cache.Entry{}, false, nil
	}
	// Callers may modify the payload slice
	e.Payload = append([]byte(nil), e.Payload...)
	return e, true, nil
}

func (s *Store) Put(_ context.Context, entry cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Payload = append([]byte(nil), entry.Payload...)
	s.entries[entry.Key] = entry
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Store) Flush(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) Close() error {
	return nil
}
