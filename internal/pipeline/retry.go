package pipeline

import (
	"context"
	"time"
)

// retryBackoffSchedule is the fixed exponential backoff schedule for store
// transport retries (spec.md §4.2): 3 attempts at 50/200/800ms.
var retryBackoffSchedule = []time.Duration{
	50 * time.Millisecond,
	200 * time.Millisecond,
	800 * time.Millisecond,
}

// WithRetry runs op up to len(retryBackoffSchedule)+1 times, retrying on any
// non-nil error except context cancellation/deadline. Exhausting the budget
// wraps the final error as StoreUnavailableError.
func WithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt >= len(retryBackoffSchedule) {
			return &StoreUnavailableError{Err: lastErr}
		}
		select {
		case <-time.After(retryBackoffSchedule[attempt]):
		case <-ctx.Done():
			return &StoreUnavailableError{Err: ctx.Err()}
		}
	}
}
