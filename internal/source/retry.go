package source

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// retryBase is the first backoff delay; tests shrink it.
var retryBase = 500 * time.Millisecond

const retryCap = 10 * time.Second

// do runs fn until it succeeds, returns a non-retryable error or the retry
// budget runs out. fn marks transient failures with retry.RetryableError.
func do(ctx context.Context, retries uint64, fn retry.RetryFunc) error {
	b := retry.NewExponential(retryBase)
	b = retry.WithCappedDuration(retryCap, b)
	b = retry.WithMaxRetries(retries, b)
	return retry.Do(ctx, b, fn)
}

// transient marks err as retryable unless the context is done.
func transient(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	return retry.RetryableError(err)
}
