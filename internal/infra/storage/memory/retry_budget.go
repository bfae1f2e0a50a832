package memory

import (
	"context"
	"sync"
	"time"

	"adspace/internal/app/policies"
)

// RetryBudget bounds payment retries per booking with an expiring counter.
// Single-instance only; multi-instance deployments use the Redis budget.
type RetryBudget struct {
	mu     sync.Mutex
	counts map[string]budgetEntry
	limit  int
	window time.Duration
	now    func() time.Time
}

type budgetEntry struct {
	n       int
	resetAt time.Time
}

func NewRetryBudget(limit int, window time.Duration) *RetryBudget {
	return &RetryBudget{
		counts: make(map[string]budgetEntry),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (b *RetryBudget) Consume(ctx context.Context, bookingID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	entry, ok := b.counts[bookingID]
	if !ok || now.After(entry.resetAt) {
		entry = budgetEntry{resetAt: now.Add(b.window)}
	}
	entry.n++
	b.counts[bookingID] = entry
	if entry.n > b.limit {
		return policies.ErrRetryBudgetExhausted
	}
	return nil
}

var _ policies.RetryBudget = (*RetryBudget)(nil)
