package gateway

import (
	"context"
	"errors"
	"time"
)

const (
	defaultMaxRetries = 2
	defaultBaseDelay  = 500 * time.Millisecond
)

type retryCompleter struct {
	next       Completer
	maxRetries int
	baseDelay  time.Duration
}

type RetryOption func(*retryCompleter)

func WithMaxRetries(n int) RetryOption {
	return func(r *retryCompleter) { r.maxRetries = n }
}

func WithBaseDelay(d time.Duration) RetryOption {
	return func(r *retryCompleter) { r.baseDelay = d }
}

// WithRetry wraps a completer so that retryable provider errors are
// re-attempted with exponential backoff. Permanent errors pass through
// unchanged.
func WithRetry(next Completer, opts ...RetryOption) Completer {
	r := &retryCompleter{
		next:       next,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *retryCompleter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := r.next.Complete(ctx, prompt, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var perr *ProviderError
		if !errors.As(err, &perr) || !perr.Retryable {
			return "", err
		}
	}
	return "", lastErr
}
