package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feedrunner/feedrunner/internal/store"
)

// Cache retention defaults, in days.
const (
	// DefaultCacheDays is the retention applied when a plugin stores a
	// value without specifying one.
	DefaultCacheDays = 45

	// logOnceDays is the retention window of the log-once dedup
	// mechanism: a deduplicated message may repeat after this many days.
	logOnceDays = 30
)

// SharedScope is the cache scope visible to all plugins of all feeds.
// It backs cross-feed concerns such as log-once deduplication.
const SharedScope = "_shared_"

// ModuleCache provides namespaced persistent storage for plugins,
// retaining key/value pairs for a number of days. It is a thin, scoped
// view over a shared store.CacheStore; the engine switches the active
// namespace to the plugin name before each plugin invocation.
//
// Reading a key refreshes its stored date, so frequently accessed data
// stays alive while idle data expires. Expired records are evicted by a
// purge pass whenever the active namespace changes.
type ModuleCache struct {
	scope     string
	backend   store.CacheStore
	namespace string
	logger    *slog.Logger
	now       func() time.Time
}

// NewModuleCache creates a cache view for the given scope (a feed name,
// or SharedScope). No namespace is selected; callers must call
// SetNamespace before storing or reading.
func NewModuleCache(scope string, backend store.CacheStore, logger *slog.Logger) *ModuleCache {
	return &ModuleCache{
		scope:   scope,
		backend: backend,
		logger:  logger.With("component", "modulecache", "scope", scope),
		now:     time.Now,
	}
}

// SetNamespace selects (creating if necessary) the active namespace and
// purges its expired records.
func (c *ModuleCache) SetNamespace(ctx context.Context, name string) error {
	c.namespace = name
	return c.purge(ctx)
}

// Namespace returns the currently active namespace.
func (c *ModuleCache) Namespace() string {
	return c.namespace
}

// Store saves a key value pair with the default retention.
func (c *ModuleCache) Store(ctx context.Context, key string, value any) error {
	return c.StoreFor(ctx, key, value, DefaultCacheDays)
}

// StoreFor saves a key value pair for the given number of days. It is
// an unconditional upsert with a fresh stored date.
func (c *ModuleCache) StoreFor(ctx context.Context, key string, value any, days int) error {
	rec := store.Record{
		Stored: store.Today(c.now()),
		Days:   days,
		Value:  value,
	}
	if err := c.backend.Put(ctx, c.scope, c.namespace, key, rec); err != nil {
		return fmt.Errorf("failed to store cache key %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, or def if the key is absent.
// A hit refreshes the record's stored date, extending its lifetime.
//
// The cache is advisory, so Get is fail-soft: a backend error or a
// record missing its value payload is logged at warning level and def
// is returned rather than failing the caller.
func (c *ModuleCache) Get(ctx context.Context, key string, def any) any {
	rec, err := c.backend.Get(ctx, c.scope, c.namespace, key)
	if err != nil {
		if !store.IsNotFoundError(err) {
			c.logger.Warn("cache read failed, using default",
				"namespace", c.namespace,
				"key", key,
				"error", err)
		}
		return def
	}

	// Reading a value refreshes its stored date.
	rec.Stored = store.Today(c.now())
	if err := c.backend.Put(ctx, c.scope, c.namespace, key, rec); err != nil {
		c.logger.Warn("failed to refresh cache record",
			"namespace", c.namespace,
			"key", key,
			"error", err)
	}

	// Records without a value payload have been observed in corrupt
	// session data; treat them as absent instead of failing.
	if rec.Value == nil {
		c.logger.Warn("cache key is missing value, using default",
			"namespace", c.namespace,
			"key", key)
		return def
	}
	return rec.Value
}

// Has reports whether key is present in the active namespace. Unlike
// Get it does not refresh the record's stored date.
func (c *ModuleCache) Has(ctx context.Context, key string) bool {
	_, err := c.backend.Get(ctx, c.scope, c.namespace, key)
	return err == nil
}

// StoreDefault returns the existing value for key if present, otherwise
// stores value with the given retention and returns it. The check and
// the store are not interleaved with other cache operations within a
// run, since plugin execution is single-threaded.
func (c *ModuleCache) StoreDefault(ctx context.Context, key string, value any, days int) (any, error) {
	sentinel := &struct{}{}
	if existing := c.Get(ctx, key, sentinel); existing != sentinel {
		return existing, nil
	}
	c.logger.Debug("storing default",
		"namespace", c.namespace,
		"key", key,
		"value", value)
	if err := c.StoreFor(ctx, key, value, days); err != nil {
		return nil, err
	}
	return c.Get(ctx, key, nil), nil
}

// Remove deletes key from the active namespace and returns the removed
// value. Removing an absent key returns store.ErrNotFound.
func (c *ModuleCache) Remove(ctx context.Context, key string) (any, error) {
	rec, err := c.backend.Delete(ctx, c.scope, c.namespace, key)
	if err != nil {
		return nil, fmt.Errorf("failed to remove cache key %q: %w", key, err)
	}
	return rec.Value, nil
}

// purge evicts all records in the active namespace that have passed
// their expiration date. Age is computed with calendar-day granularity,
// matching the stored-date format.
func (c *ModuleCache) purge(ctx context.Context) error {
	keys, err := c.backend.Keys(ctx, c.scope, c.namespace)
	if err != nil {
		return fmt.Errorf("failed to list cache keys for purge: %w", err)
	}

	now := c.now()
	for _, key := range keys {
		rec, err := c.backend.Get(ctx, c.scope, c.namespace, key)
		if err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			return fmt.Errorf("failed to read cache key %q for purge: %w", key, err)
		}

		stored, err := time.Parse(store.DateFormat, rec.Stored)
		if err != nil {
			// An unparseable stored date means the record can never
			// expire normally; evict it now.
			c.logger.Warn("evicting cache record with malformed stored date",
				"namespace", c.namespace,
				"key", key,
				"stored", rec.Stored)
			if _, err := c.backend.Delete(ctx, c.scope, c.namespace, key); err != nil && !store.IsNotFoundError(err) {
				return fmt.Errorf("failed to evict cache key %q: %w", key, err)
			}
			continue
		}

		age := int(now.Sub(stored).Hours() / 24)
		if age > rec.Days {
			c.logger.Debug("purging expired cache record",
				"namespace", c.namespace,
				"key", key,
				"stored", rec.Stored,
				"days", rec.Days)
			if _, err := c.backend.Delete(ctx, c.scope, c.namespace, key); err != nil && !store.IsNotFoundError(err) {
				return fmt.Errorf("failed to purge cache key %q: %w", key, err)
			}
		}
	}
	return nil
}
