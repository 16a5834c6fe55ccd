// Package postgres provides a PostgreSQL-backed CredentialStore.
//
// Credential records live in one table with atomic increments applied by a
// single UPDATE, so concurrent successes never under-count usage. Safe for
// multi-instance deployments and durable across restarts. Daily and monthly
// counter resets are exposed for an external scheduler to call; the gateway
// never resets windows itself.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmetric/insightgate"
)

// Store is a PostgreSQL-backed CredentialStore.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

var _ insightgate.CredentialStore = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithTable sets the table name (default "gateway_credentials").
func WithTable(table string) Option {
	return func(s *Store) { s.table = table }
}

// New creates a new PostgreSQL-backed CredentialStore.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:  pool,
		table: "gateway_credentials",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the credentials table if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			key TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			monthly_cost_cap DOUBLE PRECISION NOT NULL DEFAULT 0,
			accrued_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			daily_request_cap BIGINT NOT NULL DEFAULT 0,
			accrued_requests BIGINT NOT NULL DEFAULT 0,
			last_used_at TIMESTAMPTZ,
			extra_headers JSONB NOT NULL DEFAULT '{}'::jsonb
		);
		CREATE INDEX IF NOT EXISTS %s_provider_idx ON %s (provider) WHERE status = 'active';
	`, s.table, s.table, s.table)
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("insightgate/postgres: ensure schema: %w", err)
	}
	return nil
}

// ListActive returns the active credentials for a provider.
func (s *Store) ListActive(ctx context.Context, provider string) ([]*insightgate.Credential, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, provider, key, status, monthly_cost_cap, accrued_cost,
			daily_request_cap, accrued_requests, last_used_at, extra_headers
			FROM %s WHERE provider = $1 AND status = 'active' ORDER BY id`, s.table),
		provider,
	)
	if err != nil {
		return nil, fmt.Errorf("insightgate/postgres: list credentials: %w", err)
	}
	defer rows.Close()

	var out []*insightgate.Credential
	for rows.Next() {
		var (
			c        insightgate.Credential
			status   string
			lastUsed *time.Time
			headers  map[string]string
		)
		if err := rows.Scan(&c.ID, &c.Provider, &c.Key, &status, &c.MonthlyCostCap, &c.AccruedCost,
			&c.DailyRequestCap, &c.AccruedRequests, &lastUsed, &headers); err != nil {
			return nil, fmt.Errorf("insightgate/postgres: scan credential: %w", err)
		}
		c.Status = insightgate.CredentialStatus(status)
		if lastUsed != nil {
			c.LastUsedAt = *lastUsed
		}
		c.ExtraHeaders = headers
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insightgate/postgres: list credentials: %w", err)
	}
	return out, nil
}

// Increment atomically adds usage to a credential's counters.
func (s *Store) Increment(ctx context.Context, credentialID string, costDelta float64, requestDelta int64) error {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET accrued_cost = accrued_cost + $1,
			accrued_requests = accrued_requests + $2,
			last_used_at = now()
			WHERE id = $3`, s.table),
		costDelta, requestDelta, credentialID,
	)
	if err != nil {
		return fmt.Errorf("insightgate/postgres: increment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insightgate/postgres: unknown credential %q", credentialID)
	}
	return nil
}

// Upsert inserts or updates a credential record. Counters are preserved on
// update; only the configuration fields change.
func (s *Store) Upsert(ctx context.Context, c *insightgate.Credential) error {
	headers := c.ExtraHeaders
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, provider, key, status, monthly_cost_cap, daily_request_cap, extra_headers)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				provider = $2, key = $3, status = $4,
				monthly_cost_cap = $5, daily_request_cap = $6, extra_headers = $7`, s.table),
		c.ID, c.Provider, c.Key, string(c.Status), c.MonthlyCostCap, c.DailyRequestCap, headers,
	)
	if err != nil {
		return fmt.Errorf("insightgate/postgres: upsert credential: %w", err)
	}
	return nil
}

// Get returns a single credential record.
func (s *Store) Get(ctx context.Context, credentialID string) (*insightgate.Credential, error) {
	var (
		c        insightgate.Credential
		status   string
		lastUsed *time.Time
		headers  map[string]string
	)
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, provider, key, status, monthly_cost_cap, accrued_cost,
			daily_request_cap, accrued_requests, last_used_at, extra_headers
			FROM %s WHERE id = $1`, s.table),
		credentialID,
	).Scan(&c.ID, &c.Provider, &c.Key, &status, &c.MonthlyCostCap, &c.AccruedCost,
		&c.DailyRequestCap, &c.AccruedRequests, &lastUsed, &headers)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("insightgate/postgres: unknown credential %q", credentialID)
	}
	if err != nil {
		return nil, fmt.Errorf("insightgate/postgres: get credential: %w", err)
	}
	c.Status = insightgate.CredentialStatus(status)
	if lastUsed != nil {
		c.LastUsedAt = *lastUsed
	}
	c.ExtraHeaders = headers
	return &c, nil
}

// ResetDaily zeroes every credential's daily request counter. Intended for
// a midnight cron job, not the gateway.
func (s *Store) ResetDaily(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET accrued_requests = 0`, s.table)); err != nil {
		return fmt.Errorf("insightgate/postgres: reset daily: %w", err)
	}
	return nil
}

// ResetMonthly zeroes every credential's monthly cost counter.
func (s *Store) ResetMonthly(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET accrued_cost = 0`, s.table)); err != nil {
		return fmt.Errorf("insightgate/postgres: reset monthly: %w", err)
	}
	return nil
}
