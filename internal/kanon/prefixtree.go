package kanon

import (
	"sync"

	"github.com/kyleking/kanon/internal/errors"
)

// CacheStats reports hit/miss counters for a PrefixTree, mirrored after the
// teacher's file cache Stats shape (Hits, Misses, HitRate).
type CacheStats struct {
	Hits    int64
	Misses  int64
	HitRate float64
}

type prefixNode[V any] struct {
	key      string
	value    V
	hasValue bool
	children []*prefixNode[V]
}

func (n *prefixNode[V]) child(key string) *prefixNode[V] {
	for _, c := range n.children {
		if c.key == key {
			return c
		}
	}

	return nil
}

// PrefixTree caches values keyed by variable-length sequences of strings -
// a row's cells, one value per terminal. Sharing common prefixes between
// keys (e.g. many rows agreeing on their first few columns) keeps the cache
// far smaller than a flat map keyed by the full tuple would be.
type PrefixTree[V any] struct {
	mu       sync.Mutex
	root     prefixNode[V]
	hits     int64
	misses   int64
	disabled bool
}

// NewPrefixTree creates an empty cache.
func NewPrefixTree[V any]() *PrefixTree[V] {
	return &PrefixTree[V]{}
}

// Disable turns the cache into a pass-through: Contains always misses and
// Insert always no-ops, so --no-cache runs recompute every score and match
// instead of memoizing them, while every other code path stays the same.
func (t *PrefixTree[V]) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.disabled = true
}

// Contains reports whether a value is stored for key[0:prefixLen+1],
// recording a hit or miss for statistics.
func (t *PrefixTree[V]) Contains(key []string, prefixLen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disabled {
		t.misses++
		return false
	}

	_, ok := t.lookup(key, prefixLen)
	if ok {
		t.hits++
	} else {
		t.misses++
	}

	return ok
}

// Get returns the cached value for key[0:prefixLen+1]. Callers should guard
// with Contains first; Get on a missing key returns the zero value.
func (t *PrefixTree[V]) Get(key []string, prefixLen int) V {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, _ := t.lookup(key, prefixLen)

	return v
}

func (t *PrefixTree[V]) lookup(key []string, prefixLen int) (V, bool) {
	node := &t.root

	for x := 0; x <= prefixLen; x++ {
		node = node.child(key[x])
		if node == nil {
			var zero V
			return zero, false
		}
	}

	return node.value, node.hasValue
}

// Insert stores value for key[0:prefixLen+1], creating intermediate nodes
// as needed. Re-inserting a different value for an already-populated key is
// a cache collision and should never happen given the in-Contains-then-
// Insert call pattern every caller in this package follows.
func (t *PrefixTree[V]) Insert(key []string, value V, prefixLen int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disabled {
		return nil
	}

	node := &t.root

	for x := 0; x <= prefixLen; x++ {
		child := node.child(key[x])
		if child == nil {
			child = &prefixNode[V]{key: key[x]}
			node.children = append(node.children, child)
		}

		node = child
	}

	if node.hasValue {
		return errors.New(errors.CacheCollision, "overwriting a distinct cached value")
	}

	node.value = value
	node.hasValue = true

	return nil
}

// Stats returns the current hit/miss counters and hit rate.
func (t *PrefixTree[V]) Stats() CacheStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := CacheStats{Hits: t.hits, Misses: t.misses}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}

	return s
}
