// Package storage defines the persistence interfaces for transactions and
// summaries. Interfaces decouple the service from a specific backend so tests
// can run against the in-memory implementations.
package storage

import (
	"context"

	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

// TransactionStore persists transaction records.
type TransactionStore interface {
	// Create inserts a new transaction. The transaction arrives in pending
	// status with ID and CreatedAt already assigned.
	Create(ctx context.Context, txn transaction.Transaction) error

	// UpdateStatus moves a pending transaction to a terminal status. It
	// returns transaction.ErrTerminalState when the transaction is already
	// terminal and transaction.ErrNotFound when it does not exist.
	UpdateStatus(ctx context.Context, id string, status transaction.Status) error

	// Get returns one transaction or transaction.ErrNotFound.
	Get(ctx context.Context, id string) (transaction.Transaction, error)

	// List returns transactions ordered by creation time descending.
	List(ctx context.Context, limit, offset int) ([]transaction.Transaction, error)
}

// SummaryStore persists summarization requests and their outputs.
type SummaryStore interface {
	Create(ctx context.Context, rec transaction.SummaryRecord) error
}
