package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "console.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)

	c := cache.New(store, cache.Options{Namespace: "s1:acc"})
	require.NoError(t, c.Put(ctx, "threads_bot1", []domain.Fields{{"id": "T1", "title": "hello"}}))
	require.NoError(t, c.MarkDirty(ctx, "threads_bot1"))
	require.NoError(t, store.Close())

	// Reopening runs migrations again and must keep existing rows
	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	c = cache.New(reopened, cache.Options{Namespace: "s1:acc"})
	entry, ok, err := c.Get(ctx, "threads_bot1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, entry.Dirty)
	assert.WithinDuration(t, time.Now(), entry.WrittenAt, time.Minute)

	rec, ok, err := c.Record(ctx, "threads_bot1", "T1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", rec["title"])
}

func TestStore_FlushEscapesLikePattern(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "console.db"))
	require.NoError(t, err)
	defer store.Close()

	for _, k := range []string{"s_1:thread_T1", "s_1:thread_T2", "sx1:thread_T1"} {
		require.NoError(t, store.Put(ctx, cache.Entry{Key: k, Payload: []byte(`{}`), WrittenAt: time.Now()}))
	}

	n, err := store.Flush(ctx, "s_1:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, err := store.Get(ctx, "sx1:thread_T1")
	require.NoError(t, err)
	assert.True(t, ok, "underscore must match literally")

	require.NoError(t, store.Delete(ctx, "sx1:thread_T1"))
	_, ok, err = store.Get(ctx, "sx1:thread_T1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestStore_Ping(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "console.db"))
	require.NoError(t, err)

	assert.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(ctx))
}
