package insightgate

import (
	"sync"
	"time"
)

// Breaker defaults.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second
)

// BreakerState is the per-provider circuit state.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerRegistry tracks per-provider circuit state. A provider's breaker is
// created lazily on first use and lives in memory only: a process restart
// closes every circuit.
type BreakerRegistry struct {
	mu        sync.Mutex
	providers map[string]*breaker

	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

type breaker struct {
	state       BreakerState
	failures    int // consecutive
	lastFailure time.Time
	probing     bool // a half-open probe is in flight
}

// NewBreakerRegistry creates a registry. Non-positive arguments fall back to
// the package defaults.
func NewBreakerRegistry(threshold int, cooldown time.Duration) *BreakerRegistry {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &BreakerRegistry{
		providers: make(map[string]*breaker),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call to the provider may proceed. In the open
// state it transitions to half-open once the cooldown has elapsed and then
// admits exactly one probe; concurrent callers are denied until the probe
// resolves via RecordSuccess or RecordFailure.
func (r *BreakerRegistry) Allow(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.getOrCreate(provider)
	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if r.now().Sub(b.lastFailure) < r.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess closes the provider's circuit and resets its failure count.
func (r *BreakerRegistry) RecordSuccess(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.getOrCreate(provider)
	b.state = StateClosed
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a consecutive failure. Reaching the threshold opens
// the circuit; a failed half-open probe reopens it and restarts the cooldown.
func (r *BreakerRegistry) RecordFailure(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.getOrCreate(provider)
	b.failures++
	b.lastFailure = r.now()
	b.probing = false

	if b.state == StateHalfOpen || b.failures >= r.threshold {
		b.state = StateOpen
	}
}

// releaseProbe returns an unused half-open probe slot when an admitted call
// was aborted before reaching the provider (e.g. quota denied it).
func (r *BreakerRegistry) releaseProbe(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.providers[provider]; ok && b.state == StateHalfOpen {
		b.probing = false
	}
}

// State returns the provider's current circuit state.
func (r *BreakerRegistry) State(provider string) BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.providers[provider]
	if !ok {
		return StateClosed
	}
	if b.state == StateOpen && r.now().Sub(b.lastFailure) >= r.cooldown {
		return StateHalfOpen
	}
	return b.state
}

func (r *BreakerRegistry) getOrCreate(provider string) *breaker {
	b, ok := r.providers[provider]
	if !ok {
		b = &breaker{state: StateClosed}
		r.providers[provider] = b
	}
	return b
}
