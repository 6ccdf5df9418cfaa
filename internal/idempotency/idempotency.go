// Package idempotency defines the store that maps client-supplied idempotency
// keys to previously computed responses so retried requests never re-execute
// side effects.
package idempotency

import (
	"context"
	"time"
)

// Record is the stored outcome for one idempotency key. A record starts as a
// claim (no response yet) and is completed once with the cached response; it
// is never mutated afterwards.
type Record struct {
	Key           string
	RequestHash   string
	TransactionID string
	StatusCode    int
	Body          []byte
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Complete reports whether a cached response has been stored for the key.
func (r *Record) Complete() bool {
	return r != nil && r.CompletedAt != nil
}

// Store is the idempotency-key deduplication contract. Implementations must
// make Claim an atomic check-and-set: when two requests race on the same key,
// exactly one wins the claim and the other observes the existing record.
type Store interface {
	// Claim reserves key for the caller. It returns won=true when the caller
	// created the claim. When won=false, existing holds the prior record for
	// the key; callers compare request hashes and either replay the cached
	// response or reject the reuse.
	Claim(ctx context.Context, key, requestHash string) (won bool, existing *Record, err error)

	// Complete stores the cached response under a previously claimed key.
	Complete(ctx context.Context, key string, transactionID string, statusCode int, body []byte) error

	// Release removes an incomplete claim so the key may be retried. Called
	// when processing fails before a response was committed.
	Release(ctx context.Context, key string) error

	// Get returns the record for key, or nil when absent. No side effects.
	Get(ctx context.Context, key string) (*Record, error)
}
