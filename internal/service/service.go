// Package service implements the transaction handler: validation, idempotent
// submission, finalization, and summarization.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/roberasa/legalario-transactional-api/internal/idempotency"
	"github.com/roberasa/legalario-transactional-api/internal/metrics"
	"github.com/roberasa/legalario-transactional-api/internal/queue"
	"github.com/roberasa/legalario-transactional-api/internal/storage"
	"github.com/roberasa/legalario-transactional-api/internal/stream"
	"github.com/roberasa/legalario-transactional-api/internal/summarize"
	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for new records.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher fingerprints request payloads for idempotency conflict detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Notifier pushes an event to all connected real-time subscribers.
type Notifier interface {
	Broadcast(evt stream.Event)
}

// Processor executes the side effect of a transaction (the actual money
// movement). A nil error finalizes the transaction as completed; an error
// finalizes it as failed.
type Processor interface {
	Process(ctx context.Context, txn transaction.Transaction) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, txn transaction.Transaction) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, txn transaction.Transaction) error {
	return f(ctx, txn)
}

// Result is the outcome of a submission. Body holds the exact response bytes;
// replays return the bytes cached on first processing.
type Result struct {
	Transaction transaction.Transaction
	StatusCode  int
	Body        []byte
	Replayed    bool
}

// Service wires the stores, queue, notifier, and summarizer together.
type Service struct {
	txns       storage.TransactionStore
	summaries  storage.SummaryStore
	keys       idempotency.Store
	queue      queue.Queue
	notifier   Notifier
	summarizer summarize.Summarizer
	processor  Processor
	idGen      IDGenerator
	clock      Clock
	hasher     Hasher
	logger     *zap.Logger
}

// New constructs a Service. The queue and summarizer may be nil when the
// corresponding endpoints are disabled; processor defaults to an immediate
// success.
func New(
	txns storage.TransactionStore,
	summaries storage.SummaryStore,
	keys idempotency.Store,
	q queue.Queue,
	notifier Notifier,
	summarizer summarize.Summarizer,
	processor Processor,
	idGen IDGenerator,
	clock Clock,
	hasher Hasher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if processor == nil {
		processor = ProcessorFunc(func(context.Context, transaction.Transaction) error {
			return nil
		})
	}
	return &Service{
		txns:       txns,
		summaries:  summaries,
		keys:       keys,
		queue:      q,
		notifier:   notifier,
		summarizer: summarizer,
		processor:  processor,
		idGen:      idGen,
		clock:      clock,
		hasher:     hasher,
		logger:     logger,
	}
}

// Submit processes a synchronous transaction submission. For a fresh
// idempotency key it persists the transaction, finalizes it, caches the
// response under the key, and notifies subscribers exactly once on the
// completed path. Repeated keys replay the cached response without side
// effects.
func (s *Service) Submit(ctx context.Context, key string, req transaction.SubmitRequest) (Result, error) {
	won, existing, err := s.claim(ctx, key, req)
	if err != nil {
		return Result{}, err
	}
	if !won {
		return *existing, nil
	}

	txn, err := s.persistPending(ctx, key, req)
	if err != nil {
		return Result{}, err
	}

	status := transaction.StatusCompleted
	if procErr := s.processor.Process(ctx, txn); procErr != nil {
		s.logger.Warn("transaction processing failed",
			zap.String("transaction_id", txn.ID), zap.Error(procErr))
		status = transaction.StatusFailed
	}
	if err := s.txns.UpdateStatus(ctx, txn.ID, status); err != nil {
		s.release(ctx, key)
		return Result{}, &transaction.StorageError{Op: "finalize transaction", Err: err}
	}
	txn.Status = status

	code := http.StatusCreated
	if status == transaction.StatusFailed {
		code = http.StatusOK
	}
	res, err := s.cacheResult(ctx, key, txn, code)
	if err != nil {
		return Result{}, err
	}

	metrics.ObserveTransaction(string(status))
	if status == transaction.StatusCompleted {
		s.broadcast(txn)
	}
	return res, nil
}

// SubmitAsync accepts a transaction in pending state and hands finalization
// to the worker pool. The accepted response is cached under the idempotency
// key, so retries observe the same 202 without enqueueing twice.
func (s *Service) SubmitAsync(ctx context.Context, key string, req transaction.SubmitRequest) (Result, error) {
	won, existing, err := s.claim(ctx, key, req)
	if err != nil {
		return Result{}, err
	}
	if !won {
		return *existing, nil
	}

	txn, err := s.persistPending(ctx, key, req)
	if err != nil {
		return Result{}, err
	}

	item := queue.Item{
		TransactionID: txn.ID,
		Attempt:       1,
		Submitted:     s.clock.Now().Unix(),
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		if updErr := s.txns.UpdateStatus(ctx, txn.ID, transaction.StatusFailed); updErr != nil {
			s.logger.Error("failed to mark unqueued transaction failed",
				zap.String("transaction_id", txn.ID), zap.Error(updErr))
		}
		s.release(ctx, key)
		return Result{}, &transaction.StorageError{Op: "enqueue transaction", Err: err}
	}

	return s.cacheResult(ctx, key, txn, http.StatusAccepted)
}

// Finalize is the worker entry point: it transitions a pending transaction to
// its terminal status and notifies subscribers on completion.
func (s *Service) Finalize(ctx context.Context, transactionID string) error {
	txn, err := s.txns.Get(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", transactionID, err)
	}
	if txn.Status.Terminal() {
		return nil
	}

	status := transaction.StatusCompleted
	if procErr := s.processor.Process(ctx, txn); procErr != nil {
		s.logger.Warn("transaction processing failed",
			zap.String("transaction_id", txn.ID), zap.Error(procErr))
		status = transaction.StatusFailed
	}
	if err := s.txns.UpdateStatus(ctx, txn.ID, status); err != nil {
		return fmt.Errorf("finalize transaction %s: %w", txn.ID, err)
	}
	txn.Status = status

	metrics.ObserveTransaction(string(status))
	if status == transaction.StatusCompleted {
		s.broadcast(txn)
	}
	return nil
}

// Get returns one transaction by ID.
func (s *Service) Get(ctx context.Context, id string) (transaction.Transaction, error) {
	return s.txns.Get(ctx, id)
}

// List returns transactions newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]transaction.Transaction, error) {
	return s.txns.List(ctx, limit, offset)
}

// Summarize generates a summary for text via the language-model API and
// persists both input and output.
func (s *Service) Summarize(ctx context.Context, text string) (transaction.SummaryRecord, error) {
	if s.summarizer == nil {
		return transaction.SummaryRecord{}, fmt.Errorf("summarizer not configured")
	}
	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		metrics.ObserveSummarize("error")
		return transaction.SummaryRecord{}, fmt.Errorf("summarize: %w", err)
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return transaction.SummaryRecord{}, fmt.Errorf("generate summary id: %w", err)
	}
	rec := transaction.SummaryRecord{
		ID:        id,
		InputText: text,
		Summary:   summary,
		CreatedAt: s.clock.Now(),
	}
	if err := s.summaries.Create(ctx, rec); err != nil {
		metrics.ObserveSummarize("error")
		return transaction.SummaryRecord{}, &transaction.StorageError{Op: "store summary", Err: err}
	}
	metrics.ObserveSummarize("ok")
	return rec, nil
}

// claim validates the request and reserves the idempotency key. won=false
// with a non-nil Result means the caller must replay the cached response.
func (s *Service) claim(ctx context.Context, key string, req transaction.SubmitRequest) (bool, *Result, error) {
	if key == "" {
		return false, nil, &transaction.ValidationError{Fields: []string{"idempotency key is required"}}
	}
	if err := req.Validate(); err != nil {
		return false, nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return false, nil, fmt.Errorf("marshal request: %w", err)
	}
	hash, err := s.hasher.Hash(payload)
	if err != nil {
		return false, nil, fmt.Errorf("hash request: %w", err)
	}

	won, existing, err := s.keys.Claim(ctx, key, hash)
	if err != nil {
		return false, nil, &transaction.StorageError{Op: "claim idempotency key", Err: err}
	}
	if won {
		return true, nil, nil
	}
	if existing.RequestHash != hash {
		metrics.ObserveIdempotencyConflict()
		return false, nil, transaction.ErrKeyConflict
	}
	if !existing.Complete() {
		return false, nil, transaction.ErrKeyInFlight
	}
	metrics.ObserveIdempotencyReplay()
	txn, err := s.txns.Get(ctx, existing.TransactionID)
	if err != nil {
		s.logger.Warn("cached transaction missing for idempotency key",
			zap.String("key", key), zap.Error(err))
	}
	return false, &Result{
		Transaction: txn,
		StatusCode:  existing.StatusCode,
		Body:        existing.Body,
		Replayed:    true,
	}, nil
}

// persistPending creates the transaction row; on failure the claim is
// released so the same key may be retried.
func (s *Service) persistPending(ctx context.Context, key string, req transaction.SubmitRequest) (transaction.Transaction, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		s.release(ctx, key)
		return transaction.Transaction{}, fmt.Errorf("generate transaction id: %w", err)
	}
	txn := transaction.Transaction{
		ID:             id,
		UserID:         req.UserID,
		Amount:         req.Amount,
		Type:           req.Type,
		Status:         transaction.StatusPending,
		IdempotencyKey: key,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		s.release(ctx, key)
		return transaction.Transaction{}, &transaction.StorageError{Op: "create transaction", Err: err}
	}
	return txn, nil
}

// cacheResult marshals the response body once and stores it under the key so
// replays return byte-identical responses.
func (s *Service) cacheResult(ctx context.Context, key string, txn transaction.Transaction, code int) (Result, error) {
	body, err := json.Marshal(txn)
	if err != nil {
		return Result{}, fmt.Errorf("marshal response: %w", err)
	}
	if err := s.keys.Complete(ctx, key, txn.ID, code, body); err != nil {
		// The transaction was persisted; failing the request now would let a
		// retry create a duplicate. The claim stays and retries observe the
		// in-flight key instead.
		s.logger.Error("failed to cache idempotent response",
			zap.String("key", key), zap.Error(err))
	}
	return Result{Transaction: txn, StatusCode: code, Body: body}, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if err := s.keys.Release(ctx, key); err != nil {
		s.logger.Error("failed to release idempotency claim",
			zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) broadcast(txn transaction.Transaction) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(stream.FromTransaction(txn, s.clock.Now()))
	metrics.ObserveStreamEvent()
}
