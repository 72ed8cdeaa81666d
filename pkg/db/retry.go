package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

// RetryPolicy bounds how often a conflicted transaction is re-run.
type RetryPolicy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the payment-confirmation contract: three
// attempts, exponential backoff doubling from the base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
}

// WithConflictRetry runs fn inside WithTx, re-running the whole transaction
// when the storage layer reports a write conflict. Any other error aborts
// immediately. After exhausting attempts the last conflict error is returned
// for the caller to classify.
func (c *Client) WithConflictRetry(ctx context.Context, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	return retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		err := c.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if IsWriteConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
