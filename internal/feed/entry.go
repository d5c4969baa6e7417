package feed

import (
	"fmt"

	"github.com/google/uuid"
)

// Reserved entry keys with engine-level semantics.
const (
	// KeyTitle must be present for an entry to be considered valid.
	KeyTitle = "title"

	// KeyURL is the entry's resolved location. Later plugins (resolvers)
	// may rewrite it.
	KeyURL = "url"

	// KeyOriginalURL captures the first value ever written to KeyURL.
	// Without it, a resolver rewriting the url would lose provenance.
	KeyOriginalURL = "original_url"
)

// Entry represents one item flowing through a feed's pipeline. It is an
// ordered-key mapping of string keys to arbitrary values, created by
// input plugins and enriched by later stages.
//
// Entries are compared by identity, not value: two entries may carry
// identical titles and urls yet represent distinct items in a run, so
// classification-list membership is pointer membership.
//
// An entry lives only for the duration of one feed execution; only
// cache data derived from it survives across runs.
type Entry struct {
	id     uuid.UUID
	keys   []string
	values map[string]any
}

// NewEntry creates an empty entry.
func NewEntry() *Entry {
	return &Entry{
		id:     uuid.New(),
		values: make(map[string]any),
	}
}

// NewEntryValues creates an entry with the given title and url set.
func NewEntryValues(title, url string) *Entry {
	e := NewEntry()
	e.Set(KeyTitle, title)
	e.Set(KeyURL, url)
	return e
}

// ID returns the entry's unique identifier. It is used for diagnostics
// and the failed-entry log only; it plays no part in classification.
func (e *Entry) ID() uuid.UUID {
	return e.id
}

// Set stores value under key. The first value ever written to "url" is
// additionally captured, once, under "original_url"; subsequent url
// writes do not alter it. Overwrites are allowed for all other keys.
func (e *Entry) Set(key string, value any) {
	if key == KeyURL {
		if _, ok := e.values[KeyOriginalURL]; !ok {
			e.set(KeyOriginalURL, value)
		}
	}
	e.set(key, value)
}

func (e *Entry) set(key string, value any) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Get returns the value stored under key and whether it was present.
func (e *Entry) Get(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// GetString returns the value under key as a string, or the empty
// string if the key is absent or holds a non-string.
func (e *Entry) GetString(key string) string {
	if s, ok := e.values[key].(string); ok {
		return s
	}
	return ""
}

// Has reports whether key is present.
func (e *Entry) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Delete removes key from the entry. Deleting an absent key is a no-op.
func (e *Entry) Delete(key string) {
	if _, ok := e.values[key]; !ok {
		return
	}
	delete(e.values, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the entry's keys in insertion order.
func (e *Entry) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Title returns the entry's title, or the empty string if unset.
func (e *Entry) Title() string {
	return e.GetString(KeyTitle)
}

// URL returns the entry's url, or the empty string if unset.
func (e *Entry) URL() string {
	return e.GetString(KeyURL)
}

// IsValid reports whether the entry can be used by the pipeline.
// Presence of a title is sufficient; a missing url does not make the
// entry invalid. That asymmetry is long-standing observed behavior that
// downstream plugins rely on, so it is preserved as-is.
func (e *Entry) IsValid() bool {
	return e.Has(KeyTitle)
}

// String returns a human-readable "title | url" rendering for logs.
// It never fails; absent fields render as empty strings.
func (e *Entry) String() string {
	return fmt.Sprintf("%s | %s", e.Title(), e.URL())
}
