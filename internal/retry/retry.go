// Package retry provides a bounded retry policy shared by read paths that
// need resilience against transient failures. Write paths never retry.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Classifier reports whether err is worth another attempt.
type Classifier func(err error) bool

// Policy bounds the number of attempts and spaces them with a backoff.
// Backoffs are stateful, so NewBackoff is called once per Do.
type Policy struct {
	MaxAttempts int
	NewBackoff  func() goretry.Backoff
}

// Constant retries up to attempts times with a fixed delay between them.
func Constant(attempts int, delay time.Duration) Policy {
	return Policy{
		MaxAttempts: attempts,
		NewBackoff:  func() goretry.Backoff { return goretry.NewConstant(delay) },
	}
}

// Do calls fn until it succeeds, returns an error that retryable rejects,
// or MaxAttempts is reached. fn receives the 1-based attempt number. The
// last error is returned as is; a cancelled ctx returns ctx.Err().
func (p Policy) Do(ctx context.Context, retryable Classifier, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	newBackoff := p.NewBackoff
	if newBackoff == nil {
		newBackoff = func() goretry.Backoff {
			return goretry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
		}
	}
	b := goretry.WithMaxRetries(uint64(attempts-1), newBackoff())

	attempt := 0
	return goretry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err != nil && retryable != nil && retryable(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
}
