package insightgate

import (
	"context"
	"math"
	"time"
)

// CredentialStatus is the lifecycle state of a credential.
type CredentialStatus string

const (
	StatusActive   CredentialStatus = "active"
	StatusDisabled CredentialStatus = "disabled"
)

// Credential is one configured (provider, key) record with its quota
// bookkeeping. The persistent store owns the record; the gateway holds a
// short-lived view per call and applies increments by ID. Daily and monthly
// accrual windows are reset by an external scheduler, never by the gateway.
type Credential struct {
	ID       string
	Provider string
	Key      string
	Status   CredentialStatus

	MonthlyCostCap float64
	AccruedCost    float64

	DailyRequestCap int64
	AccruedRequests int64

	LastUsedAt   time.Time
	ExtraHeaders map[string]string
}

// Eligible reports whether the credential may serve another call. A zero or
// negative cap means the dimension is uncapped.
func (c *Credential) Eligible() bool {
	return c.Status == StatusActive && !c.CostCapped() && !c.RequestCapped()
}

// CostCapped reports whether the monthly cost cap has been reached.
func (c *Credential) CostCapped() bool {
	return c.MonthlyCostCap > 0 && c.AccruedCost >= c.MonthlyCostCap
}

// RequestCapped reports whether the daily request cap has been reached.
func (c *Credential) RequestCapped() bool {
	return c.DailyRequestCap > 0 && c.AccruedRequests >= c.DailyRequestCap
}

// CostHeadroom is the remaining monthly budget. Uncapped credentials have
// infinite headroom.
func (c *Credential) CostHeadroom() float64 {
	if c.MonthlyCostCap <= 0 {
		return math.Inf(1)
	}
	return c.MonthlyCostCap - c.AccruedCost
}

// CredentialStore is the persistence boundary for credentials. Increment
// must be atomic per credential: two concurrent successes may not
// under-count usage.
type CredentialStore interface {
	// ListActive returns the active credentials for a provider. The
	// returned records are a point-in-time view; eligibility is
	// re-evaluated from them on every reservation.
	ListActive(ctx context.Context, provider string) ([]*Credential, error)

	// Increment adds the given cost and request deltas to a credential's
	// accrued counters and stamps LastUsedAt.
	Increment(ctx context.Context, credentialID string, costDelta float64, requestDelta int64) error
}
