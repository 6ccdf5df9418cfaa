package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

func sampleTxn(id string, createdAt time.Time) transaction.Transaction {
	return transaction.Transaction{
		ID:        id,
		UserID:    "u-1",
		Amount:    100,
		Type:      "deposit",
		Status:    transaction.StatusPending,
		CreatedAt: createdAt,
	}
}

func TestUpdateStatusEnforcesTerminalStates(t *testing.T) {
	t.Parallel()

	s := NewTransactionStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleTxn("t-1", time.Now().UTC())))

	require.NoError(t, s.UpdateStatus(ctx, "t-1", transaction.StatusCompleted))

	err := s.UpdateStatus(ctx, "t-1", transaction.StatusFailed)
	require.True(t, errors.Is(err, transaction.ErrTerminalState))

	got, err := s.Get(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, transaction.StatusCompleted, got.Status)
}

func TestUpdateStatusUnknownID(t *testing.T) {
	t.Parallel()

	s := NewTransactionStore()
	err := s.UpdateStatus(context.Background(), "missing", transaction.StatusCompleted)
	require.True(t, errors.Is(err, transaction.ErrNotFound))
}

func TestListOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	s := NewTransactionStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	require.NoError(t, s.Create(ctx, sampleTxn("t-1", base)))
	require.NoError(t, s.Create(ctx, sampleTxn("t-2", base.Add(time.Second))))
	require.NoError(t, s.Create(ctx, sampleTxn("t-3", base.Add(2*time.Second))))

	got, err := s.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "t-3", got[0].ID)
	require.Equal(t, "t-2", got[1].ID)

	rest, err := s.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "t-1", rest[0].ID)
}
