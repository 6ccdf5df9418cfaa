package memory

import (
	"context"
	"sync"

	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

// SummaryStore keeps summary records in memory.
type SummaryStore struct {
	mu      sync.Mutex
	records []transaction.SummaryRecord
}

// NewSummaryStore constructs an empty SummaryStore.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{}
}

// Create appends a summary record.
func (s *SummaryStore) Create(_ context.Context, rec transaction.SummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// All returns a copy of the stored records, for tests.
func (s *SummaryStore) All() []transaction.SummaryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transaction.SummaryRecord(nil), s.records...)
}
