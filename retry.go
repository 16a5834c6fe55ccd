package insightgate

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds repeated attempts against a single provider. Attempts
// are strictly sequential; the delay before attempt n is
// BaseDelay * Multiplier^n, capped at MaxDelay.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	// Retryable decides whether a failed attempt is worth repeating.
	// Nil means IsRetryable.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the gateway's default policy: two retries
// (three attempts total) with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
}

// Do invokes fn, retrying retryable failures with backoff until the attempt
// budget is spent or the context is done. It returns the last attempt's
// outcome and the number of attempts made; a retryable error on the final
// attempt comes back as a plain failure, never a panic.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) (ProviderResponse, error)) (ProviderResponse, int, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return ProviderResponse{}, attempts, fmt.Errorf("%w: %v", ErrNetwork, err)
		}

		attempts++
		resp, err := fn(ctx)
		if err == nil {
			return resp, attempts, nil
		}
		lastErr = err

		if !retryable(err) || attempt == p.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ProviderResponse{}, attempts, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
		case <-time.After(p.delay(attempt)):
		}
	}

	return ProviderResponse{}, attempts, lastErr
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
