package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/roberasa/legalario-transactional-api/internal/database"
	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

// SummaryStore writes summary rows into Postgres:
//
//	CREATE TABLE summary_requests (
//	    id             TEXT PRIMARY KEY,
//	    input_text     TEXT NOT NULL,
//	    output_summary TEXT NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL
//	);
type SummaryStore struct {
	pool pgxQuerier
}

// NewSummaryStore connects a pgx pool for the given DSN.
func NewSummaryStore(ctx context.Context, dsn string) (*SummaryStore, error) {
	pool, err := database.Connect(ctx, dsn, 0)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SummaryStore{pool: pool}, nil
}

// NewSummaryStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewSummaryStoreWithPool(pool pgxQuerier) (*SummaryStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &SummaryStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *SummaryStore) Close() {
	s.pool.Close()
}

// Create inserts a summary record.
func (s *SummaryStore) Create(ctx context.Context, rec transaction.SummaryRecord) error {
	query := `
		INSERT INTO summary_requests (id, input_text, output_summary, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.pool.Exec(ctx, query, rec.ID, rec.InputText, rec.Summary, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert summary request: %w", err)
	}
	return nil
}
