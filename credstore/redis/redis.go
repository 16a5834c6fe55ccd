// Package redis provides a Redis-backed CredentialStore.
//
// Each credential is a Redis hash; a provider index set maps provider names
// to credential ids. Increments run as a Lua script so the cost and request
// counters move together atomically. Safe for multi-instance deployments.
// Window resets are exposed for an external scheduler.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowmetric/insightgate"
)

// Store is a Redis-backed CredentialStore.
type Store struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ insightgate.CredentialStore = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithKeyPrefix sets the Redis key prefix (default "insightgate:cred:").
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// New creates a new Redis-backed CredentialStore.
// The client must be a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: "insightgate:cred:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) credKey(id string) string       { return s.keyPrefix + id }
func (s *Store) providerKey(name string) string { return s.keyPrefix + "provider:" + name }

// incrementScript atomically applies one call's usage to a credential hash.
// KEYS[1] = credential hash key
// ARGV[1] = cost delta
// ARGV[2] = request delta
// ARGV[3] = now (unix seconds)
//
// Returns 1 on success, 0 if the credential does not exist.
var incrementScript = goredis.NewScript(`
local cred_key = KEYS[1]
if redis.call("EXISTS", cred_key) == 0 then
    return 0
end
redis.call("HINCRBYFLOAT", cred_key, "accrued_cost", ARGV[1])
redis.call("HINCRBY", cred_key, "accrued_requests", ARGV[2])
redis.call("HSET", cred_key, "last_used_at", ARGV[3])
return 1
`)

// ListActive returns the active credentials for a provider.
func (s *Store) ListActive(ctx context.Context, provider string) ([]*insightgate.Credential, error) {
	ids, err := s.client.SMembers(ctx, s.providerKey(provider)).Result()
	if err != nil {
		return nil, fmt.Errorf("insightgate/redis: list provider index: %w", err)
	}

	var out []*insightgate.Credential
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, s.credKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("insightgate/redis: read credential %q: %w", id, err)
		}
		if len(fields) == 0 {
			continue // index entry without a record; skip
		}
		c := parseCredential(id, fields)
		if c.Status != insightgate.StatusActive {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Increment atomically adds usage to a credential's counters.
func (s *Store) Increment(ctx context.Context, credentialID string, costDelta float64, requestDelta int64) error {
	res, err := incrementScript.Run(ctx, s.client,
		[]string{s.credKey(credentialID)},
		strconv.FormatFloat(costDelta, 'f', -1, 64),
		strconv.FormatInt(requestDelta, 10),
		strconv.FormatInt(time.Now().UTC().Unix(), 10),
	).Int()
	if err != nil {
		return fmt.Errorf("insightgate/redis: increment: %w", err)
	}
	if res == 0 {
		return fmt.Errorf("insightgate/redis: unknown credential %q", credentialID)
	}
	return nil
}

// Upsert writes a credential's configuration fields, preserving counters.
func (s *Store) Upsert(ctx context.Context, c *insightgate.Credential) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.credKey(c.ID),
		"provider", c.Provider,
		"key", c.Key,
		"status", string(c.Status),
		"monthly_cost_cap", strconv.FormatFloat(c.MonthlyCostCap, 'f', -1, 64),
		"daily_request_cap", strconv.FormatInt(c.DailyRequestCap, 10),
	)
	pipe.HSetNX(ctx, s.credKey(c.ID), "accrued_cost", "0")
	pipe.HSetNX(ctx, s.credKey(c.ID), "accrued_requests", "0")
	for k, v := range c.ExtraHeaders {
		pipe.HSet(ctx, s.credKey(c.ID), "header:"+k, v)
	}
	pipe.SAdd(ctx, s.providerKey(c.Provider), c.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insightgate/redis: upsert credential: %w", err)
	}
	return nil
}

// ResetDaily zeroes every credential's daily request counter for the
// provider. Intended for a midnight cron job.
func (s *Store) ResetDaily(ctx context.Context, provider string) error {
	return s.resetField(ctx, provider, "accrued_requests")
}

// ResetMonthly zeroes every credential's monthly cost counter for the
// provider.
func (s *Store) ResetMonthly(ctx context.Context, provider string) error {
	return s.resetField(ctx, provider, "accrued_cost")
}

func (s *Store) resetField(ctx context.Context, provider, field string) error {
	ids, err := s.client.SMembers(ctx, s.providerKey(provider)).Result()
	if err != nil {
		return fmt.Errorf("insightgate/redis: list provider index: %w", err)
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.HSet(ctx, s.credKey(id), field, "0")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insightgate/redis: reset %s: %w", field, err)
	}
	return nil
}

func parseCredential(id string, fields map[string]string) *insightgate.Credential {
	c := &insightgate.Credential{
		ID:       id,
		Provider: fields["provider"],
		Key:      fields["key"],
		Status:   insightgate.CredentialStatus(fields["status"]),
	}
	c.MonthlyCostCap, _ = strconv.ParseFloat(fields["monthly_cost_cap"], 64)
	c.AccruedCost, _ = strconv.ParseFloat(fields["accrued_cost"], 64)
	c.DailyRequestCap, _ = strconv.ParseInt(fields["daily_request_cap"], 10, 64)
	c.AccruedRequests, _ = strconv.ParseInt(fields["accrued_requests"], 10, 64)
	if ts, err := strconv.ParseInt(fields["last_used_at"], 10, 64); err == nil {
		c.LastUsedAt = time.Unix(ts, 0).UTC()
	}
	for k, v := range fields {
		if len(k) > 7 && k[:7] == "header:" {
			if c.ExtraHeaders == nil {
				c.ExtraHeaders = make(map[string]string)
			}
			c.ExtraHeaders[k[7:]] = v
		}
	}
	return c
}
