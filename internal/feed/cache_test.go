package feed

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedrunner/feedrunner/internal/store"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// newTestCache returns a cache over a fresh memory store with a
// controllable clock.
func newTestCache(t *testing.T) (*ModuleCache, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewModuleCache("testfeed", store.NewMemoryCacheStore(), setupTestLogger())
	c.now = func() time.Time { return now }
	require.NoError(t, c.SetNamespace(context.Background(), "testplugin"))
	return c, &now
}

func TestModuleCache_StoreGetRoundtrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.StoreFor(ctx, "k", "v", 10))
	assert.Equal(t, "v", c.Get(ctx, "k", nil))
}

func TestModuleCache_GetDefaultWhenAbsent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	assert.Nil(t, c.Get(ctx, "missing", nil))
	assert.Equal(t, "fallback", c.Get(ctx, "missing", "fallback"))
}

func TestModuleCache_PurgeExpired(t *testing.T) {
	c, now := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.StoreFor(ctx, "k", "v", 10))

	// Not yet expired: age == days does not evict.
	*now = now.AddDate(0, 0, 10)
	require.NoError(t, c.SetNamespace(ctx, "testplugin"))
	assert.Equal(t, "v", c.Get(ctx, "k", nil))

	// Getting refreshed the stored date; jump past the window without
	// further reads.
	*now = now.AddDate(0, 0, 11)
	require.NoError(t, c.SetNamespace(ctx, "testplugin"))
	assert.Nil(t, c.Get(ctx, "k", nil))
}

func TestModuleCache_ReadExtendsLifetime(t *testing.T) {
	c, now := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.StoreFor(ctx, "hot", "v", 45))

	// Keep touching the key every 40 days; it must survive well past
	// its nominal window because every read refreshes the stored date.
	for i := 0; i < 3; i++ {
		*now = now.AddDate(0, 0, 40)
		require.NoError(t, c.SetNamespace(ctx, "testplugin"))
		assert.Equal(t, "v", c.Get(ctx, "hot", nil), "iteration %d", i)
	}
}

func TestModuleCache_StoreDefault(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	first, err := c.StoreDefault(ctx, "k", "first", 10)
	require.NoError(t, err)
	assert.Equal(t, "first", first)

	// Second call with a different value returns the first value and
	// performs no store.
	second, err := c.StoreDefault(ctx, "k", "second", 10)
	require.NoError(t, err)
	assert.Equal(t, "first", second)
	assert.Equal(t, "first", c.Get(ctx, "k", nil))
}

func TestModuleCache_Remove(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "k", "v"))

	v, err := c.Remove(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.False(t, c.Has(ctx, "k"))

	_, err = c.Remove(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestModuleCache_CorruptRecordFallsBack(t *testing.T) {
	backend := store.NewMemoryCacheStore()
	c := NewModuleCache("testfeed", backend, setupTestLogger())
	ctx := context.Background()
	require.NoError(t, c.SetNamespace(ctx, "testplugin"))

	// A record missing its value payload must behave as absent.
	require.NoError(t, backend.Put(ctx, "testfeed", "testplugin", "broken", store.Record{
		Stored: store.Today(time.Now()),
		Days:   45,
	}))
	assert.Equal(t, "default", c.Get(ctx, "broken", "default"))
}

func TestModuleCache_NamespaceIsolation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "k", "from-a"))

	require.NoError(t, c.SetNamespace(ctx, "other"))
	assert.Nil(t, c.Get(ctx, "k", nil))
	assert.Equal(t, "other", c.Namespace())

	require.NoError(t, c.SetNamespace(ctx, "testplugin"))
	assert.Equal(t, "from-a", c.Get(ctx, "k", nil))
}

func TestModuleCache_MalformedStoredDateEvicted(t *testing.T) {
	backend := store.NewMemoryCacheStore()
	c := NewModuleCache("testfeed", backend, setupTestLogger())
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "testfeed", "p", "bad", store.Record{
		Stored: "not-a-date",
		Days:   45,
		Value:  "v",
	}))
	require.NoError(t, c.SetNamespace(ctx, "p"))
	assert.Nil(t, c.Get(ctx, "bad", nil))
}
