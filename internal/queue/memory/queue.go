// Package memory provides the in-process queue implementation.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roberasa/legalario-transactional-api/internal/queue"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch     chan queue.Item
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan queue.Item, capacity),
	}
}

// Enqueue pushes an item into the queue or returns if the context ends.
// Returns an error instead of panicking when the queue has been closed; the
// read lock held across the send keeps Close from closing the channel while
// a send is in flight.
func (q *Queue) Enqueue(ctx context.Context, item queue.Item) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return errors.New("queue closed")
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next item, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (queue.Item, error) {
	select {
	case <-ctx.Done():
		return queue.Item{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return queue.Item{}, errors.New("queue closed")
		}
		return item, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
