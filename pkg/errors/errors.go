package errors

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrThrottled is returned when the platform keeps rate-limiting after all
// retries were spent. Err holds the last underlying error.
type ErrThrottled struct {
	Attempts int
	Err      error
}

func (e *ErrThrottled) Error() string {
	return fmt.Sprintf("platform throttled after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ErrThrottled) Unwrap() error {
	return e.Err
}

// ErrProductFetch is returned when a whole product's order fetch fails after
// retries. The batch run isolates it per product rather than aborting.
type ErrProductFetch struct {
	ProductID string
	Err       error
}

func (e *ErrProductFetch) Error() string {
	return fmt.Sprintf("order fetch failed for product %s: %v", e.ProductID, e.Err)
}

func (e *ErrProductFetch) Unwrap() error {
	return e.Err
}

// ErrDuplicatePayout is returned when a payout already exists for the
// creator and period. Callers treat it as a skip, never an overwrite.
type ErrDuplicatePayout struct {
	CreatorID   uuid.UUID
	PeriodStart time.Time
}

func (e *ErrDuplicatePayout) Error() string {
	return fmt.Sprintf("payout already generated for creator %s, period starting %s",
		e.CreatorID, e.PeriodStart.Format("2006-01-02"))
}

// ErrValidation is returned when request validation fails
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
