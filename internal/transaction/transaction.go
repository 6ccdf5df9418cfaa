// Package transaction defines the core domain types for the transactional API.
package transaction

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a Transaction.
type Status string

// Supported transaction statuses. Pending is the only non-terminal state.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state. Terminal transactions are
// immutable; no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction is a persisted record of one financial operation.
type Transaction struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Amount         float64   `json:"amount"`
	Type           string    `json:"type"`
	Status         Status    `json:"status"`
	IdempotencyKey string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// SubmitRequest is the validated payload for transaction submission.
type SubmitRequest struct {
	UserID string  `json:"user_id" validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Type   string  `json:"type" validate:"required,oneof=deposit withdrawal payment transfer"`
}

// SummaryRecord stores one summarization request and its generated output.
type SummaryRecord struct {
	ID        string    `json:"id"`
	InputText string    `json:"input_text"`
	Summary   string    `json:"output_summary"`
	CreatedAt time.Time `json:"created_at"`
}

// CanTransition reports whether a transaction may move from one status to
// another. Only pending -> completed and pending -> failed are legal.
func CanTransition(from, to Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: transaction already %s", ErrTerminalState, from)
	}
	if !to.Terminal() {
		return fmt.Errorf("%w: cannot transition to %s", ErrTerminalState, to)
	}
	return nil
}
