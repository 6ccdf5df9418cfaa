// Package stream fans transaction lifecycle events out to connected
// real-time subscribers.
package stream

import (
	"errors"
	"time"

	"github.com/roberasa/legalario-transactional-api/internal/transaction"
)

// Event is one transaction lifecycle notification delivered to subscribers.
type Event struct {
	TransactionID string             `json:"transaction_id"`
	Status        transaction.Status `json:"status"`
	Amount        float64            `json:"amount"`
	Type          string             `json:"type"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TransactionID == "" {
		return errors.New("transaction id is required")
	}
	if !e.Status.Valid() {
		return errors.New("unknown status")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}

// FromTransaction builds an Event from a transaction snapshot.
func FromTransaction(txn transaction.Transaction, at time.Time) Event {
	return Event{
		TransactionID: txn.ID,
		Status:        txn.Status,
		Amount:        txn.Amount,
		Type:          txn.Type,
		OccurredAt:    at,
	}
}
