package pool

import (
	"sync"
	"sync/atomic"
)

// Metrics tracks pool reuse performance.
type Metrics struct {
	Hits   uint64
	Misses uint64
}

// Pool is a typed wrapper around sync.Pool that counts hits and misses and
// resets items on return so no data leaks between uses.
type Pool[T any] struct {
	inner  sync.Pool
	reset  func(*T)
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a pool. alloc produces a fresh item on miss; reset clears an
// item before it is made available for reuse. reset may be nil.
func New[T any](alloc func() *T, reset func(*T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.inner.New = func() interface{} {
		p.misses.Add(1)
		return alloc()
	}
	return p
}

// Get acquires an item from the pool, allocating when empty.
func (p *Pool[T]) Get() *T {
	p.hits.Add(1)
	return p.inner.Get().(*T)
}

// Put resets an item and returns it to the pool. Nil items are ignored.
func (p *Pool[T]) Put(item *T) {
	if item == nil {
		return
	}
	if p.reset != nil {
		p.reset(item)
	}
	p.inner.Put(item)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() Metrics {
	return Metrics{
		Hits:   p.hits.Load(),
		Misses: p.misses.Load(),
	}
}
