// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roberasa/legalario-transactional-api/internal/database"
	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

// pgxQuerier is the subset of pgxpool.Pool the stores need; pgxmock satisfies
// it in tests.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// TransactionStore writes transaction rows into Postgres:
//
//	CREATE TABLE transactions (
//	    id              TEXT PRIMARY KEY,
//	    user_id         TEXT NOT NULL,
//	    amount          DOUBLE PRECISION NOT NULL,
//	    type            TEXT NOT NULL,
//	    status          TEXT NOT NULL,
//	    idempotency_key TEXT UNIQUE NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL
//	);
type TransactionStore struct {
	pool pgxQuerier
}

// NewTransactionStore connects a pgx pool for the given DSN.
func NewTransactionStore(ctx context.Context, dsn string) (*TransactionStore, error) {
	pool, err := database.Connect(ctx, dsn, 0)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &TransactionStore{pool: pool}, nil
}

// NewTransactionStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewTransactionStoreWithPool(pool pgxQuerier) (*TransactionStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TransactionStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *TransactionStore) Close() {
	s.pool.Close()
}

// Create inserts a new transaction row.
func (s *TransactionStore) Create(ctx context.Context, txn transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, type, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		txn.ID,
		txn.UserID,
		txn.Amount,
		txn.Type,
		string(txn.Status),
		txn.IdempotencyKey,
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// UpdateStatus moves a pending transaction to a terminal status. The WHERE
// clause on the current status makes terminal rows immutable.
func (s *TransactionStore) UpdateStatus(ctx context.Context, id string, status transaction.Status) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: cannot transition to %s", transaction.ErrTerminalState, status)
	}
	query := `
		UPDATE transactions
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	tag, err := s.pool.Exec(ctx, query, string(status), id, string(transaction.StatusPending))
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: transaction %s is already terminal", transaction.ErrTerminalState, id)
	}
	return nil
}

// Get fetches a transaction by ID.
func (s *TransactionStore) Get(ctx context.Context, id string) (transaction.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, status, idempotency_key, created_at
		FROM transactions
		WHERE id = $1
	`
	var (
		txn    transaction.Transaction
		status string
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Amount,
		&txn.Type,
		&status,
		&txn.IdempotencyKey,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return transaction.Transaction{}, transaction.ErrNotFound
		}
		return transaction.Transaction{}, fmt.Errorf("select transaction: %w", err)
	}
	txn.Status = transaction.Status(status)
	return txn, nil
}

// List returns transactions newest first.
func (s *TransactionStore) List(ctx context.Context, limit, offset int) ([]transaction.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, status, idempotency_key, created_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []transaction.Transaction
	for rows.Next() {
		var (
			txn    transaction.Transaction
			status string
		)
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Amount,
			&txn.Type,
			&status,
			&txn.IdempotencyKey,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txn.Status = transaction.Status(status)
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
