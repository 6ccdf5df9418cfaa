// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

// TransactionStore keeps transactions in a mutex-guarded map.
type TransactionStore struct {
	mu   sync.RWMutex
	txns map[string]transaction.Transaction
}

// NewTransactionStore constructs an empty TransactionStore.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txns: make(map[string]transaction.Transaction)}
}

// Create stores a new transaction.
func (s *TransactionStore) Create(_ context.Context, txn transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[txn.ID] = txn
	return nil
}

// UpdateStatus transitions a pending transaction to a terminal status.
func (s *TransactionStore) UpdateStatus(_ context.Context, id string, status transaction.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return transaction.ErrNotFound
	}
	if err := transaction.CanTransition(txn.Status, status); err != nil {
		return err
	}
	txn.Status = status
	s.txns[id] = txn
	return nil
}

// Get fetches a transaction by ID.
func (s *TransactionStore) Get(_ context.Context, id string) (transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.txns[id]
	if !ok {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return txn, nil
}

// List returns transactions newest first.
func (s *TransactionStore) List(_ context.Context, limit, offset int) ([]transaction.Transaction, error) {
	s.mu.RLock()
	all := make([]transaction.Transaction, 0, len(s.txns))
	for _, txn := range s.txns {
		all = append(all, txn)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
