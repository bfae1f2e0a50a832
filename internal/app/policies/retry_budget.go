package policies

import (
	"context"
	"errors"
)

// ErrRetryBudgetExhausted is returned when a booking has used up its payment
// retry attempts for the current window.
var ErrRetryBudgetExhausted = errors.New("policies: payment retry budget exhausted")

// RetryBudget bounds user-triggered payment retries per booking. Backed by a
// TTL-keyed store so the bound holds across service instances.
type RetryBudget interface {
	Consume(ctx context.Context, bookingID string) error
}
