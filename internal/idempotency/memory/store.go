// Package memory provides an in-memory idempotency store for development and
// testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/roberasa/legalario-transactional-api/internal/idempotency"
)

// Store keeps idempotency records in a mutex-guarded map. Claim performs the
// check-and-set under the lock, so concurrent submissions with the same key
// resolve to exactly one winner.
type Store struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]*idempotency.Record)}
}

// Claim reserves key atomically. The second caller for a key observes the
// record created by the first.
func (s *Store) Claim(_ context.Context, key, requestHash string) (bool, *idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	s.records[key] = &idempotency.Record{
		Key:         key,
		RequestHash: requestHash,
		CreatedAt:   time.Now().UTC(),
	}
	return true, nil, nil
}

// Complete stores the cached response for a claimed key. Completing an
// unclaimed key is a no-op; the claim was already released.
func (s *Store) Complete(_ context.Context, key, transactionID string, statusCode int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok || rec.Complete() {
		return nil
	}
	now := time.Now().UTC()
	rec.TransactionID = transactionID
	rec.StatusCode = statusCode
	rec.Body = append([]byte(nil), body...)
	rec.CompletedAt = &now
	return nil
}

// Release drops an incomplete claim so a retry may attempt the key again.
func (s *Store) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok && !rec.Complete() {
		delete(s.records, key)
	}
	return nil
}

// Get returns a copy of the record for key, or nil when absent.
func (s *Store) Get(_ context.Context, key string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}
