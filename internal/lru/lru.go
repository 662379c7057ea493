// Package lru provides a generic least-recently-used container used by the
// content cache. Lookup, promotion, and eviction are all O(1): entries live in
// a map and on an intrusive doubly-linked list ordered from most- to
// least-recently used.
package lru

// node is an intrusive list element. The zero node is the list sentinel.
type node[K comparable, V any] struct {
	key        K
	value      V
	size       int64
	prev, next *node[K, V]
}

// List is an LRU-ordered container. It tracks entry count and the sum of
// per-entry size estimates but enforces no budget itself; eviction policy
// belongs to the caller.
//
// List is not safe for concurrent use.
type List[K comparable, V any] struct {
	index map[K]*node[K, V]
	root  node[K, V] // sentinel: root.next is MRU, root.prev is LRU
	bytes int64
}

// New creates an empty list.
func New[K comparable, V any]() *List[K, V] {
	l := &List[K, V]{index: make(map[K]*node[K, V])}
	l.root.prev = &l.root
	l.root.next = &l.root
	return l
}

// Get returns the value for key and promotes it to most-recently-used.
func (l *List[K, V]) Get(key K) (V, bool) {
	n, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.unlink(n)
	l.pushFront(n)
	return n.value, true
}

// Peek returns the value for key without touching its LRU position.
func (l *List[K, V]) Peek(key K) (V, bool) {
	n, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return n.value, true
}

// Put inserts or replaces the entry for key and makes it most-recently-used.
// size is the caller's memory estimate for the value.
func (l *List[K, V]) Put(key K, value V, size int64) {
	if n, ok := l.index[key]; ok {
		l.bytes += size - n.size
		n.value = value
		n.size = size
		l.unlink(n)
		l.pushFront(n)
		return
	}
	n := &node[K, V]{key: key, value: value, size: size}
	l.index[key] = n
	l.bytes += size
	l.pushFront(n)
}

// Remove deletes the entry for key if present.
func (l *List[K, V]) Remove(key K) bool {
	n, ok := l.index[key]
	if !ok {
		return false
	}
	l.unlink(n)
	delete(l.index, key)
	l.bytes -= n.size
	return true
}

// EvictOldest removes up to n entries from the least-recently-used end and
// returns the evicted keys.
func (l *List[K, V]) EvictOldest(n int) []K {
	evicted := make([]K, 0, n)
	for i := 0; i < n; i++ {
		tail := l.root.prev
		if tail == &l.root {
			break
		}
		l.unlink(tail)
		delete(l.index, tail.key)
		l.bytes -= tail.size
		evicted = append(evicted, tail.key)
	}
	return evicted
}

// EvictUntil removes least-recently-used entries one at a time until fit
// returns true for the current byte total, or the list is empty. It returns
// the evicted keys.
func (l *List[K, V]) EvictUntil(fit func(bytes int64) bool) []K {
	var evicted []K
	for !fit(l.bytes) {
		tail := l.root.prev
		if tail == &l.root {
			break
		}
		l.unlink(tail)
		delete(l.index, tail.key)
		l.bytes -= tail.size
		evicted = append(evicted, tail.key)
	}
	return evicted
}

// Oldest returns the least-recently-used key without removing it.
func (l *List[K, V]) Oldest() (K, bool) {
	tail := l.root.prev
	if tail == &l.root {
		var zero K
		return zero, false
	}
	return tail.key, true
}

// Len returns the number of entries.
func (l *List[K, V]) Len() int { return len(l.index) }

// Bytes returns the sum of entry size estimates.
func (l *List[K, V]) Bytes() int64 { return l.bytes }

// Clear removes all entries.
func (l *List[K, V]) Clear() {
	l.index = make(map[K]*node[K, V])
	l.root.prev = &l.root
	l.root.next = &l.root
	l.bytes = 0
}

func (l *List[K, V]) pushFront(n *node[K, V]) {
	n.prev = &l.root
	n.next = l.root.next
	l.root.next.prev = n
	l.root.next = n
}

func (l *List[K, V]) unlink(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}
