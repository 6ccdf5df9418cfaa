package transaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors shared across the service. Handlers map these to HTTP
// statuses at the boundary.
var (
	// ErrNotFound indicates the requested transaction does not exist.
	ErrNotFound = errors.New("transaction not found")
	// ErrKeyConflict indicates an idempotency key was reused with a
	// divergent payload.
	ErrKeyConflict = errors.New("idempotency key reused with different payload")
	// ErrKeyInFlight indicates another request holding the same idempotency
	// key has not finished yet.
	ErrKeyInFlight = errors.New("request with this idempotency key is still in flight")
	// ErrTerminalState indicates an illegal status transition.
	ErrTerminalState = errors.New("illegal status transition")
)

// ValidationError describes a rejected submission payload.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	return "invalid request: " + strings.Join(e.Fields, ", ")
}

// StorageError wraps a persistence failure. Callers may retry the request
// with the same idempotency key because no record was committed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a SubmitRequest against the struct tags and returns a
// ValidationError listing the offending fields.
func (r SubmitRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "Amount":
			fields = append(fields, "amount must be greater than zero")
		case "UserID":
			fields = append(fields, "user_id is required")
		case "Type":
			fields = append(fields, "type must be one of deposit, withdrawal, payment, transfer")
		default:
			fields = append(fields, fe.Field())
		}
	}
	return &ValidationError{Fields: fields}
}
