package cache

import (
	"sync"
	"sync/atomic"
)

// Memo is a concurrent compute-once map. The first Get for a key runs the
// compute function; concurrent and later callers wait for and share its
// result, including an error.
//
// A compute function must not call Get for its own key.
type Memo[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*memoEntry[V]
	order   []K
}

type memoEntry[V any] struct {
	once sync.Once
	done atomic.Bool
	val  V
	err  error
}

// NewMemo returns an empty memo.
func NewMemo[K comparable, V any]() *Memo[K, V] {
	return &Memo[K, V]{entries: make(map[K]*memoEntry[V])}
}

// Get returns the memoized value for k, computing it with fn on first use.
// hit reports whether the value was already present or in flight.
func (m *Memo[K, V]) Get(k K, fn func() (V, error)) (v V, hit bool, err error) {
	m.mu.Lock()
	e, ok := m.entries[k]
	if !ok {
		e = &memoEntry[V]{}
		m.entries[k] = e
		m.order = append(m.order, k)
	}
	m.mu.Unlock()

	e.once.Do(func() {
		defer e.done.Store(true)
		e.val, e.err = fn()
	})
	return e.val, ok, e.err
}

// Peek returns a successfully computed value. It never waits for or starts
// a computation, so it is safe to call from inside a compute function.
func (m *Memo[K, V]) Peek(k K) (V, bool) {
	m.mu.Lock()
	e, ok := m.entries[k]
	m.mu.Unlock()
	if !ok || !e.done.Load() || e.err != nil {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Len returns the number of keys seen.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Keys returns the keys in first-request order.
func (m *Memo[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]K, len(m.order))
	copy(out, m.order)
	return out
}
