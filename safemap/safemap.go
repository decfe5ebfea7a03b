// Package safemap provides a mutex-guarded generic map for concurrent
// use.
package safemap

import (
	"sync"
)

// Map is a thread-safe map from K to V. The zero value is ready to use.
// A Map must not be copied after first use.
type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]V)}
}

// Get returns the value stored under key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.items[key]
	return val, ok
}

// Set stores value under key, replacing any existing entry.
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items == nil {
		m.items = make(map[K]V)
	}
	m.items[key] = value
}

// GetOrSet returns the existing value for key when present. Otherwise it
// stores value and returns it. The boolean reports whether the key was
// already present.
func (m *Map[K, V]) GetOrSet(key K, value V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.items[key]; ok {
		return existing, true
	}

	if m.items == nil {
		m.items = make(map[K]V)
	}
	m.items[key] = value
	return value, false
}

// Delete removes the entry stored under key.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Keys returns the keys in unspecified order.
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]K, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the values in unspecified order.
func (m *Map[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make([]V, 0, len(m.items))
	for _, v := range m.items {
		values = append(values, v)
	}
	return values
}

// Clone returns a copy of the contents as a plain map.
func (m *Map[K, V]) Clone() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[K]V, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}

// Replace swaps the contents for the entries of items. The provided map
// is copied, so the caller keeps ownership of it.
func (m *Map[K, V]) Replace(items map[K]V) {
	next := make(map[K]V, len(items))
	for k, v := range items {
		next[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = next
}

// Range calls fn for each entry until fn returns false. The map is
// locked for reading during the walk, so fn must not call methods that
// take the write lock.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for k, v := range m.items {
		if !fn(k, v) {
			return
		}
	}
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[K]V)
}
