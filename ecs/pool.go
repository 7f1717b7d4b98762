package ecs

// Pool is a stack of reusable values. Acquire hands ownership to the caller
// and Release hands it back; an empty pool falls back to the constructor.
type Pool[T any] struct {
	items    []T
	capacity int
	newFn    func() T
}

// NewPool creates a pool holding at most capacity released items.
// A capacity of zero or less leaves the pool unbounded.
func NewPool[T any](capacity int, newFn func() T) *Pool[T] {
	return &Pool[T]{
		capacity: capacity,
		newFn:    newFn,
	}
}

// Acquire pops a pooled item or constructs a new one.
func (p *Pool[T]) Acquire() T {
	if n := len(p.items); n > 0 {
		item := p.items[n-1]
		var zero T
		p.items[n-1] = zero
		p.items = p.items[:n-1]
		return item
	}
	if p.newFn == nil {
		var zero T
		return zero
	}
	return p.newFn()
}

// Release returns an item to the pool. It reports false when the pool is full.
func (p *Pool[T]) Release(item T) bool {
	if p.capacity > 0 && len(p.items) >= p.capacity {
		return false
	}
	p.items = append(p.items, item)
	return true
}

// Len returns the number of pooled items.
func (p *Pool[T]) Len() int {
	return len(p.items)
}

// Cap returns the pool capacity, zero when unbounded.
func (p *Pool[T]) Cap() int {
	return p.capacity
}

// SetCap changes the capacity, dropping items above it.
func (p *Pool[T]) SetCap(capacity int) {
	p.capacity = capacity
	if capacity > 0 && len(p.items) > capacity {
		clear(p.items[capacity:])
		p.items = p.items[:capacity]
	}
}

// Clear drops every pooled item.
func (p *Pool[T]) Clear() {
	clear(p.items)
	p.items = p.items[:0]
}
