package store

import (
	"context"
	"sync"
)

// MemoryCacheStore is an in-memory CacheStore implementation backed by
// nested maps. It is used by tests and as a fallback when no database
// is configured; nothing survives process exit.
//
// All methods are safe for concurrent use so multiple feeds can share
// one instance.
type MemoryCacheStore struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]Record
}

// NewMemoryCacheStore creates an empty in-memory cache store.
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		data: make(map[string]map[string]map[string]Record),
	}
}

// Get returns the record stored under (scope, namespace, key).
func (s *MemoryCacheStore) Get(ctx context.Context, scope, namespace, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[scope][namespace][key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Put unconditionally upserts the record under (scope, namespace, key).
func (s *MemoryCacheStore) Put(ctx context.Context, scope, namespace, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[scope]
	if !ok {
		ns = make(map[string]map[string]Record)
		s.data[scope] = ns
	}
	keys, ok := ns[namespace]
	if !ok {
		keys = make(map[string]Record)
		ns[namespace] = keys
	}
	keys[key] = rec
	return nil
}

// Delete removes and returns the record under (scope, namespace, key).
func (s *MemoryCacheStore) Delete(ctx context.Context, scope, namespace, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[scope][namespace][key]
	if !ok {
		return Record{}, ErrNotFound
	}
	delete(s.data[scope][namespace], key)
	return rec, nil
}

// Keys returns all keys present in the given namespace.
func (s *MemoryCacheStore) Keys(ctx context.Context, scope, namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data[scope][namespace]))
	for k := range s.data[scope][namespace] {
		keys = append(keys, k)
	}
	return keys, nil
}

// MemoryFailedStore is an in-memory FailedStore implementation, used by
// tests and when no database is configured.
type MemoryFailedStore struct {
	mu      sync.Mutex
	entries []FailedEntry
}

// NewMemoryFailedStore creates an empty in-memory failed-entry log.
func NewMemoryFailedStore() *MemoryFailedStore {
	return &MemoryFailedStore{}
}

// Add appends a failed entry to the log.
func (s *MemoryFailedStore) Add(ctx context.Context, fe FailedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, fe)
	return nil
}

// List returns all failed entries, oldest first.
func (s *MemoryFailedStore) List(ctx context.Context) ([]FailedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FailedEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Trim discards the oldest entries so that at most keep remain.
func (s *MemoryFailedStore) Trim(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if len(s.entries) > keep {
		s.entries = append([]FailedEntry(nil), s.entries[len(s.entries)-keep:]...)
	}
	return nil
}

// Clear removes all failed entries.
func (s *MemoryFailedStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return nil
}
