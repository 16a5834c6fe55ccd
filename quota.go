package insightgate

import (
	"context"
	"fmt"
)

// reserve selects an eligible credential for the provider, or reports why
// none is available. Selection prefers the credential with the largest
// remaining monthly-cost headroom; ties go to the least recently used key so
// recently-hot keys get a chance to cool.
//
// Reservation is advisory: nothing is locked, and the increment happens only
// after a successful provider call. Two concurrent dispatches may pick the
// same credential, which can overshoot a cap by at most one in-flight call.
func reserve(ctx context.Context, store CredentialStore, provider string) (*Credential, error) {
	creds, err := store.ListActive(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("insightgate: list credentials for %q: %w", provider, err)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoCredentials, provider)
	}

	var best *Credential
	costCapped, requestCapped := 0, 0

	for _, c := range creds {
		if c.CostCapped() {
			costCapped++
			continue
		}
		if c.RequestCapped() {
			requestCapped++
			continue
		}
		if best == nil {
			best = c
			continue
		}
		if c.CostHeadroom() > best.CostHeadroom() ||
			(c.CostHeadroom() == best.CostHeadroom() && c.LastUsedAt.Before(best.LastUsedAt)) {
			best = c
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: provider %q: %s", ErrQuotaExceeded, provider, capSummary(costCapped, requestCapped))
	}
	return best, nil
}

// capSummary names which cap blocked the reservation.
func capSummary(costCapped, requestCapped int) string {
	switch {
	case costCapped > 0 && requestCapped > 0:
		return fmt.Sprintf("%d credentials at monthly cost cap, %d at daily request cap", costCapped, requestCapped)
	case requestCapped > 0:
		return fmt.Sprintf("%d credentials at daily request cap", requestCapped)
	default:
		return fmt.Sprintf("%d credentials at monthly cost cap", costCapped)
	}
}
