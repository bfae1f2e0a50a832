package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"adspace/internal/app/policies"
)

// RetryBudget bounds payment retries per booking with a Redis counter that
// expires after the configured window. INCR followed by EXPIRE on first use
// keeps the budget shared across instances.
type RetryBudget struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRetryBudget(addr string, limit int, window time.Duration) *RetryBudget {
	return &RetryBudget{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		limit:  limit,
		window: window,
	}
}

func (b *RetryBudget) Consume(ctx context.Context, bookingID string) error {
	key := fmt.Sprintf("payment:retries:%s", bookingID)
	n, err := b.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("cache: retry budget incr: %w", err)
	}
	if n == 1 {
		if err := b.client.Expire(ctx, key, b.window).Err(); err != nil {
			return fmt.Errorf("cache: retry budget expire: %w", err)
		}
	}
	if n > int64(b.limit) {
		return policies.ErrRetryBudgetExhausted
	}
	return nil
}

func (b *RetryBudget) Close() error {
	return b.client.Close()
}

var _ policies.RetryBudget = (*RetryBudget)(nil)
