// Package queue defines the work queue feeding the async finalizer workers.
package queue

import "context"

// Item is one pending transaction awaiting finalization.
type Item struct {
	TransactionID string
	// Attempt counts deliveries of this item, starting at 1.
	Attempt int
	// Submitted is the enqueue time as a Unix timestamp.
	Submitted int64
}

// Queue transports finalize items from the API to the workers.
type Queue interface {
	Enqueue(ctx context.Context, item Item) error
	Dequeue(ctx context.Context) (Item, error)
	Close()
}
