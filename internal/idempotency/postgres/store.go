// Package postgres provides the Postgres-backed idempotency store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roberasa/legalario-transactional-api/internal/database"
	"github.com/roberasa/legalario-transactional-api/internal/idempotency"
)

// pgxQuerier is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists idempotency records in the idempotency_keys table:
//
//	CREATE TABLE idempotency_keys (
//	    key             TEXT PRIMARY KEY,
//	    request_hash    TEXT NOT NULL,
//	    transaction_id  TEXT,
//	    status_code     INT,
//	    body            BYTEA,
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    completed_at    TIMESTAMPTZ
//	);
type Store struct {
	pool pgxQuerier
}

// NewStore connects a pgx pool for the given DSN.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := database.Connect(ctx, dsn, 0)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily for testing).
func NewStoreWithPool(pool pgxQuerier) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Claim inserts a claim row for key. ON CONFLICT DO NOTHING makes the insert
// the atomic check-and-set: when the row already exists the insert affects
// zero rows and the existing record is returned instead.
func (s *Store) Claim(ctx context.Context, key, requestHash string) (bool, *idempotency.Record, error) {
	query := `
		INSERT INTO idempotency_keys (key, request_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query, key, requestHash, time.Now().UTC())
	if err != nil {
		return false, nil, fmt.Errorf("insert idempotency claim: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil, nil
	}
	existing, err := s.Get(ctx, key)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		// The prior holder released its claim between our insert and read.
		return false, nil, fmt.Errorf("idempotency claim for %q vanished, retry", key)
	}
	return false, existing, nil
}

// Complete stores the cached response for a claimed key. The guard on
// completed_at keeps completed records immutable.
func (s *Store) Complete(ctx context.Context, key, transactionID string, statusCode int, body []byte) error {
	query := `
		UPDATE idempotency_keys
		SET transaction_id = $1, status_code = $2, body = $3, completed_at = $4
		WHERE key = $5 AND completed_at IS NULL
	`
	_, err := s.pool.Exec(ctx, query, transactionID, statusCode, body, time.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("store idempotency response: %w", err)
	}
	return nil
}

// Release deletes an incomplete claim so the key can be retried.
func (s *Store) Release(ctx context.Context, key string) error {
	query := `DELETE FROM idempotency_keys WHERE key = $1 AND completed_at IS NULL`
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("release idempotency claim: %w", err)
	}
	return nil
}

// Get returns the record for key, or nil when absent.
func (s *Store) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	query := `
		SELECT key, request_hash, transaction_id, status_code, body, created_at, completed_at
		FROM idempotency_keys
		WHERE key = $1
	`
	var (
		rec           idempotency.Record
		transactionID *string
		statusCode    *int
	)
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&rec.Key,
		&rec.RequestHash,
		&transactionID,
		&statusCode,
		&rec.Body,
		&rec.CreatedAt,
		&rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency key: %w", err)
	}
	if transactionID != nil {
		rec.TransactionID = *transactionID
	}
	if statusCode != nil {
		rec.StatusCode = *statusCode
	}
	return &rec, nil
}
