package testutils

import (
	"sync"
)

// StreamCollector drains a channel in the background and keeps every value
type StreamCollector[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	done   chan struct{}
}

// Collect starts draining ch
func Collect[T any](ch <-chan T) *StreamCollector[T] {
	c := &StreamCollector[T]{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		for v := range ch {
			c.mu.Lock()
			c.items = append(c.items, v)
			c.mu.Unlock()
		}
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	}()
	return c
}

// Items returns a copy of everything received so far
func (c *StreamCollector[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *StreamCollector[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Closed reports whether the source channel was closed
func (c *StreamCollector[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Done is closed once the source channel is closed and drained
func (c *StreamCollector[T]) Done() <-chan struct{} {
	return c.done
}
