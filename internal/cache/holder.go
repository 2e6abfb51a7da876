package cache

import (
	"context"

	"github.com/Rrens/chatdesk/internal/domain"
)

// KeyHolder exposes the records held under one cache key to the mutation
// coordinator
type KeyHolder struct {
	cache *EntityCache
	key   string
}

// Holder returns a KeyHolder for key
func (c *EntityCache) Holder(key string) *KeyHolder {
	return &KeyHolder{cache: c, key: key}
}

// Name identifies the holder in logs
func (h *KeyHolder) Name() string {
	return "cache:" + h.key
}

// Snapshot returns the current values of fields for the record with id
func (h *KeyHolder) Snapshot(ctx context.Context, id string, fields []string) (domain.Fields, bool) {
	rec, ok, err := h.cache.Record(ctx, h.key, id)
	if err != nil || !ok {
		return nil, false
	}
	return rec.Pick(fields...), true
}

// Apply writes fields onto the record with id
func (h *KeyHolder) Apply(ctx context.Context, id string, fields domain.Fields) error {
	_, err := h.cache.Patch(ctx, h.key, id, fields)
	return err
}
