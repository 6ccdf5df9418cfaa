// Package worker implements the async finalization loop.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roberasa/legalario-transactional-api/internal/queue"
)

// Finalizer moves a pending transaction to its terminal status.
type Finalizer interface {
	Finalize(ctx context.Context, transactionID string) error
}

// Config controls Pool behavior.
type Config struct {
	// Count is the number of concurrent workers.
	Count int
	// Delay is waited before finalizing each item, simulating processing
	// latency on the async path.
	Delay time.Duration
	// MaxAttempts bounds redelivery of a failing item.
	MaxAttempts int
	// RetryBackoff is the delay before a failed item is re-enqueued.
	RetryBackoff time.Duration
}

// Pool consumes queue items and finalizes the referenced transactions.
type Pool struct {
	queue     queue.Queue
	finalizer Finalizer
	cfg       Config
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// New constructs a Pool.
func New(q queue.Queue, finalizer Finalizer, cfg Config, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Count <= 0 {
		cfg.Count = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	return &Pool{
		queue:     q,
		finalizer: finalizer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the workers. They run until the context finishes or the
// queue closes.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Count; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	logger := p.logger.With(zap.Int("worker", id))
	for {
		item, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Info("queue drained, worker exiting", zap.Error(err))
			return
		}
		logger.Debug("dequeued transaction",
			zap.String("transaction_id", item.TransactionID),
			zap.Int("attempt", item.Attempt))
		p.process(ctx, logger, item)
	}
}

func (p *Pool) process(ctx context.Context, logger *zap.Logger, item queue.Item) {
	if p.cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.Delay):
		}
	}

	err := p.finalizer.Finalize(ctx, item.TransactionID)
	if err == nil {
		logger.Debug("transaction finalized", zap.String("transaction_id", item.TransactionID))
		return
	}
	if ctx.Err() != nil {
		return
	}

	if item.Attempt >= p.cfg.MaxAttempts {
		logger.Error("giving up on transaction",
			zap.String("transaction_id", item.TransactionID),
			zap.Int("attempt", item.Attempt),
			zap.Error(err))
		return
	}

	logger.Warn("finalize failed, re-enqueueing",
		zap.String("transaction_id", item.TransactionID),
		zap.Int("attempt", item.Attempt),
		zap.Error(err))

	select {
	case <-ctx.Done():
		return
	case <-time.After(p.cfg.RetryBackoff):
	}
	item.Attempt++
	if err := p.queue.Enqueue(ctx, item); err != nil {
		logger.Error("re-enqueue failed",
			zap.String("transaction_id", item.TransactionID),
			zap.Error(err))
	}
}
