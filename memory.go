package insightgate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryCredentialStore is an in-memory CredentialStore. It is the default
// backend, seeded from config at construction. Single-process only; use
// credstore/postgres or credstore/redis when several instances share quota.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*Credential
	order []string // insertion order, for stable listing
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

// NewMemoryCredentialStore creates a store holding copies of the given
// credentials.
func NewMemoryCredentialStore(creds ...*Credential) *MemoryCredentialStore {
	s := &MemoryCredentialStore{creds: make(map[string]*Credential, len(creds))}
	for _, c := range creds {
		cp := *c
		s.creds[c.ID] = &cp
		s.order = append(s.order, c.ID)
	}
	return s
}

// ListActive returns point-in-time copies of the provider's active
// credentials in insertion order.
func (s *MemoryCredentialStore) ListActive(_ context.Context, provider string) ([]*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Credential
	for _, id := range s.order {
		c := s.creds[id]
		if c.Provider != provider || c.Status != StatusActive {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// Increment atomically adds usage to a credential's counters.
func (s *MemoryCredentialStore) Increment(_ context.Context, credentialID string, costDelta float64, requestDelta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[credentialID]
	if !ok {
		return fmt.Errorf("insightgate: unknown credential %q", credentialID)
	}
	c.AccruedCost += costDelta
	c.AccruedRequests += requestDelta
	c.LastUsedAt = time.Now().UTC()
	return nil
}

// Get returns a copy of a credential, for inspection in tests and reports.
func (s *MemoryCredentialStore) Get(credentialID string) (*Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[credentialID]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// ResetDaily zeroes every credential's daily request counter. Called by the
// embedding application's scheduler, not by the gateway.
func (s *MemoryCredentialStore) ResetDaily() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creds {
		c.AccruedRequests = 0
	}
}

// ResetMonthly zeroes every credential's monthly cost counter.
func (s *MemoryCredentialStore) ResetMonthly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creds {
		c.AccruedCost = 0
	}
}
