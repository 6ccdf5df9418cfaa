package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	transactionsTotal = nil
	httpRequestsTotal = nil
	httpRequestDurationSeconds = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if transactionsTotal == nil || httpRequestsTotal == nil ||
		httpRequestDurationSeconds == nil || streamSubscribers == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	// A simple check to see if a metric can be used.
	transactionsTotal.WithLabelValues("completed").Inc()
	if val := testutil.ToFloat64(transactionsTotal); val != 1 {
		t.Errorf("Expected transactionsTotal to be 1, got %f", val)
	}

	SetStreamSubscribers(3)
	if val := testutil.ToFloat64(streamSubscribers); val != 3 {
		t.Errorf("Expected streamSubscribers to be 3, got %f", val)
	}
}
