package insightgate

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrNoCredentials = errors.New("insightgate: no credentials configured for provider")
	ErrQuotaExceeded = errors.New("insightgate: quota exceeded")
	ErrCircuitOpen   = errors.New("insightgate: circuit open")
	ErrRateLimited   = errors.New("insightgate: rate limited by provider")
	ErrNetwork       = errors.New("insightgate: network failure")
	ErrProvider      = errors.New("insightgate: provider rejected request")
)

// GatewayError wraps an error with dispatch context.
type GatewayError struct {
	Err          error
	Provider     string
	CredentialID string
	Attempts     int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("insightgate: provider=%s credential=%s attempts=%d: %v",
		e.Provider, e.CredentialID, e.Attempts, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error may succeed on a later attempt
// against the same provider.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}

// IsFatal returns true if the error indicates a configuration problem that
// no amount of retrying will fix.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoCredentials)
}

// KindOf maps an error onto its ErrorKind. Context cancellation and deadline
// expiry count as network failures so the circuit breaker sees them.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoCredentials):
		return KindConfiguration
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindNetwork
	default:
		return KindProvider
	}
}
