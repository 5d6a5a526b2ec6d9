// Package cache is the process-lifetime resolution cache. It maps a
// normalized identity key to either a resolved metadata record or an
// explicit unresolved marker, so repeated lookups for the same release name
// never trigger a second round of external calls.
//
// Entries are never evicted or expired; a long-running deployment grows the
// map with every distinct name it sees. That is a deliberate capacity
// trade-off, not an oversight.
package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	csmap "github.com/mhmtszr/concurrent-swiss-map"
)

// Key identifies one normalized (title, year, season, episode) identity.
// Two identities whose titles differ only in casing or surrounding
// whitespace hash to the same key.
type Key uint64

// NewKey derives the cache key for an identity.
func NewKey(title string, year, season, episode int) Key {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(title)))
	for _, n := range [...]int{year, season, episode} {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(n))
	}
	return Key(xxhash.Sum64String(b.String()))
}

// Entry is one cache slot: either a value or the unresolved marker.
type Entry[V any] struct {
	Value      V
	Unresolved bool
}

// Store is a concurrency-safe key/value store with negative caching.
// A Set fully replaces any prior entry; two racing writers for the same key
// simply overwrite each other, which is harmless because resolution is
// idempotent.
type Store[V any] struct {
	entries *csmap.CsMap[Key, Entry[V]]
}

// New creates an empty store.
func New[V any]() *Store[V] {
	return &Store[V]{entries: csmap.Create[Key, Entry[V]]()}
}

// Get returns the entry for key, if any.
func (s *Store[V]) Get(key Key) (Entry[V], bool) {
	return s.entries.Load(key)
}

// Set stores a resolved value under key.
func (s *Store[V]) Set(key Key, value V) {
	s.entries.Store(key, Entry[V]{Value: value})
}

// SetUnresolved stores the negative marker under key, short-circuiting all
// future external calls for this identity.
func (s *Store[V]) SetUnresolved(key Key) {
	s.entries.Store(key, Entry[V]{Unresolved: true})
}

// Clear removes everything.
func (s *Store[V]) Clear() {
	keys := make([]Key, 0, s.entries.Count())
	s.entries.Range(func(key Key, _ Entry[V]) bool {
		keys = append(keys, key)
		return false
	})
	for _, key := range keys {
		s.entries.Delete(key)
	}
}

// Size reports the number of cached entries, negative markers included.
func (s *Store[V]) Size() int {
	return s.entries.Count()
}
