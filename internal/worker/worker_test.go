package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roberasa/legalario-transactional-api/internal/queue"
	"github.com/roberasa/legalario-transactional-api/internal/queue/memory"
)

type countingFinalizer struct {
	mu       sync.Mutex
	attempts map[string]int
	fails    int
	done     chan string
}

func newCountingFinalizer(fails int) *countingFinalizer {
	return &countingFinalizer{
		attempts: make(map[string]int),
		fails:    fails,
		done:     make(chan string, 16),
	}
}

func (f *countingFinalizer) Finalize(_ context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[transactionID]++
	if f.attempts[transactionID] <= f.fails {
		return errors.New("transient error")
	}
	f.done <- transactionID
	return nil
}

func (f *countingFinalizer) attemptCount(transactionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[transactionID]
}

func TestPoolFinalizesQueuedItems(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(8)
	fin := newCountingFinalizer(0)
	pool := New(q, fin, Config{Count: 2}, zap.NewNop())
	pool.Start(ctx)

	for _, id := range []string{"txn-1", "txn-2", "txn-3"} {
		require.NoError(t, q.Enqueue(ctx, queue.Item{TransactionID: id, Attempt: 1}))
	}

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		select {
		case id := <-fin.done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for finalization")
		}
	}
	require.Len(t, seen, 3)

	cancel()
	pool.Wait()
}

func TestPoolRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(8)
	fin := newCountingFinalizer(2)
	pool := New(q, fin, Config{
		Count:        1,
		MaxAttempts:  5,
		RetryBackoff: time.Millisecond,
	}, zap.NewNop())
	pool.Start(ctx)

	require.NoError(t, q.Enqueue(ctx, queue.Item{TransactionID: "txn-retry", Attempt: 1}))

	select {
	case <-fin.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retried finalization")
	}
	require.Equal(t, 3, fin.attemptCount("txn-retry"))

	cancel()
	pool.Wait()
}

func TestPoolGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(8)
	fin := newCountingFinalizer(100)
	pool := New(q, fin, Config{
		Count:        1,
		MaxAttempts:  2,
		RetryBackoff: time.Millisecond,
	}, zap.NewNop())
	pool.Start(ctx)

	require.NoError(t, q.Enqueue(ctx, queue.Item{TransactionID: "txn-doomed", Attempt: 1}))

	require.Eventually(t, func() bool {
		return fin.attemptCount("txn-doomed") == 2
	}, 2*time.Second, 5*time.Millisecond)

	// No further redelivery past the attempt cap.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, fin.attemptCount("txn-doomed"))

	cancel()
	pool.Wait()
}

func TestPoolStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := memory.NewQueue(8)
	pool := New(q, newCountingFinalizer(0), Config{Count: 2}, zap.NewNop())
	pool.Start(ctx)

	cancel()

	stopped := make(chan struct{})
	go func() {
		pool.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop on cancel")
	}
}
