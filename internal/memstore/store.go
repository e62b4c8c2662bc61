// Package memstore provides a reference L1Store implementation: an
// LRU-bounded, concurrency-safe local cache satisfying the
// cache.L1Store[K, V] contract. A Coordinator is free to use any
// implementation of that interface; this one exists so the package is
// usable out of the box, the way cache-manager/cache.go's L1Cache is the
// concrete cache the rest of that repo's services are wired to.
package memstore

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/verdie-g/modern-caching-sub000/cache"
)

// hardTTLMultiplier bounds how long a never-refreshed entry can occupy
// memory before Store evicts it outright, independent of LRU pressure.
// It is deliberately generous: the coordinator relies on Store retaining
// stale entries so it can fall back to them when L2 and the source are
// both unavailable (spec §4.7.3), so Store must not expire on TTL alone
// the way a plain TTL cache would.
const hardTTLMultiplier = 10

type node[K comparable, V any] struct {
	key     K
	entry   cache.Entry[V]
	element *list.Element
}

// Store is a thread-safe, LRU-bounded implementation of cache.L1Store.
// Trade-off carried over from cache-manager/cache.go: one RWMutex guards
// both the map and the LRU list, which is simple and fast enough below
// roughly 10^5 ops/sec; sharding the lock is future work if that ever
// becomes the bottleneck.
type Store[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]*node[K, V]
	lru        *list.List
	maxEntries int
	count      shardedCounter
}

// New returns an empty Store that holds at most maxEntries before
// evicting the least recently used key. maxEntries <= 0 means unbounded.
func New[K comparable, V any](maxEntries int) *Store[K, V] {
	return &Store[K, V]{
		items:      make(map[K]*node[K, V]),
		lru:        list.New(),
		maxEntries: maxEntries,
	}
}

// TryGet returns the entry for key and moves it to the front of the LRU
// list. A hard-expired entry (see hardTTLMultiplier) is evicted lazily
// and reported as a miss.
func (s *Store[K, V]) TryGet(key K) (cache.Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[key]
	if !ok {
		return cache.Entry[V]{}, false
	}

	if hardExpired(n.entry) {
		s.removeLocked(key, n)
		return cache.Entry[V]{}, false
	}

	s.lru.MoveToFront(n.element)
	return n.entry, true
}

// Set stores entry under key, evicting the least recently used entry
// first if the store is at capacity.
func (s *Store[K, V]) Set(key K, entry cache.Entry[V]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.items[key]; ok {
		n.entry = entry
		s.lru.MoveToFront(n.element)
		return
	}

	if s.maxEntries > 0 && s.lru.Len() >= s.maxEntries {
		s.evictOldestLocked()
	}

	n := &node[K, V]{key: key, entry: entry}
	n.element = s.lru.PushFront(n)
	s.items[key] = n
	s.count.add(shardKeyFor(key), 1)
}

// TryDelete removes key, reporting whether it was present.
func (s *Store[K, V]) TryDelete(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[key]
	if !ok {
		return false
	}
	s.removeLocked(key, n)
	return true
}

// Count returns the approximate number of entries currently stored. It
// reads the sharded counter rather than len(s.items) under lock, so a
// high-throughput Count() caller (the metrics gauge) never contends with
// Get/Set/Delete.
func (s *Store[K, V]) Count() int {
	return int(s.count.sum())
}

func (s *Store[K, V]) removeLocked(key K, n *node[K, V]) {
	s.lru.Remove(n.element)
	delete(s.items, key)
	s.count.add(shardKeyFor(key), -1)
}

func (s *Store[K, V]) evictOldestLocked() {
	oldest := s.lru.Back()
	if oldest == nil {
		return
	}
	n := oldest.Value.(*node[K, V])
	s.removeLocked(n.key, n)
}

func hardExpired[V any](e cache.Entry[V]) bool {
	return time.Now().After(e.CreatedAt.Add(e.TTL * hardTTLMultiplier))
}

func shardKeyFor[K comparable](key K) string {
	return fmt.Sprint(key)
}
