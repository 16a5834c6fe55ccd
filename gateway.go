// Package insightgate is the AI request gateway for the insight features of
// the surrounding productivity application. It mediates every call from an
// insight generator to an external text-generation provider, enforcing
// per-credential spend and rate quotas, gating unhealthy providers behind a
// circuit breaker, and retrying transient failures with bounded backoff.
// Failures never escape Dispatch as errors: every outcome is a Response.
package insightgate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Gateway dispatches generation requests across providers. Construct one at
// process start and pass it by reference to the generators; it is safe for
// concurrent use.
type Gateway struct {
	cfg       Config
	providers map[string]Provider
	creds     CredentialStore
	breakers  *BreakerRegistry
	retry     RetryPolicy
	retrySet  bool
	meter     Meter
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCredentialStore sets the credential store. Default is an in-memory
// store seeded from the config's credentials.
func WithCredentialStore(s CredentialStore) Option {
	return func(g *Gateway) { g.creds = s }
}

// WithBreakerRegistry sets the circuit breaker registry.
func WithBreakerRegistry(r *BreakerRegistry) Option {
	return func(g *Gateway) { g.breakers = r }
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(g *Gateway) {
		g.retry = p
		g.retrySet = true
	}
}

// WithMeter sets the meter.
func WithMeter(m Meter) Option {
	return func(g *Gateway) { g.meter = m }
}

// NewGateway creates a Gateway from a validated config and provider
// adapters. Defaults (memory credential store, config-tuned breaker registry
// and retry policy, no-op meter) apply unless overridden via options.
func NewGateway(cfg Config, providers []Provider, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("insightgate: at least one provider is required")
	}

	provMap := make(map[string]Provider, len(providers))
	for _, p := range providers {
		provMap[p.Name()] = p
	}
	for _, pc := range cfg.Providers {
		if _, ok := provMap[pc.Name]; !ok {
			return nil, fmt.Errorf("insightgate: config names provider %q but no adapter was given", pc.Name)
		}
	}

	g := &Gateway{
		cfg:       cfg,
		providers: provMap,
	}

	for _, opt := range opts {
		opt(g)
	}

	// Apply defaults after options.
	if g.creds == nil {
		g.creds = NewMemoryCredentialStore(cfg.SeedCredentials()...)
	}
	if g.breakers == nil {
		g.breakers = NewBreakerRegistry(cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown())
	}
	if !g.retrySet {
		g.retry = cfg.RetryPolicy()
	}
	if g.meter == nil {
		g.meter = noopMeter{}
	}

	return g, nil
}

// CredentialStore returns the store the gateway accounts against.
func (g *Gateway) CredentialStore() CredentialStore { return g.creds }

// Breakers returns the gateway's circuit breaker registry.
func (g *Gateway) Breakers() *BreakerRegistry { return g.breakers }

// Dispatch performs one end-to-end attempt to fulfill a request: circuit
// breaker gate, credential reservation, retried provider call, usage
// accounting. Every failure mode is encoded in the Response's ErrKind; it
// never panics past its boundary.
func (g *Gateway) Dispatch(ctx context.Context, req Request) Response {
	start := time.Now()
	requestID := uuid.New().String()

	names := g.candidateProviders(req.Provider)
	if len(names) == 0 {
		return g.failure(req, requestID, start, 0, "", "",
			fmt.Errorf("%w: unknown provider %q", ErrNoCredentials, req.Provider))
	}

	// Gate on breaker and quota. The first provider that passes both gets
	// the call; later gate denials don't fail over mid-flight.
	var (
		lastErr  error
		provider Provider
		cred     *Credential
	)
	for _, name := range names {
		if !g.breakers.Allow(name) {
			lastErr = fmt.Errorf("%w: provider %q", ErrCircuitOpen, name)
			continue
		}
		c, err := reserve(ctx, g.creds, name)
		if err != nil {
			// The breaker admitted a call that never happened; a
			// half-open probe slot must not leak.
			g.breakers.releaseProbe(name)
			lastErr = err
			continue
		}
		provider = g.providers[name]
		cred = c
		break
	}
	if provider == nil {
		return g.failure(req, requestID, start, 0, "", "", lastErr)
	}

	g.meter.OnDispatch(DispatchEvent{
		RequestID:    requestID,
		Provider:     provider.Name(),
		CredentialID: cred.ID,
		UserID:       req.UserID,
		Kind:         req.Kind,
		EstimatedIn:  EstimateTokens(req.Prompt),
	})

	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	provReq := ProviderRequest{
		Key:          cred.Key,
		ExtraHeaders: cred.ExtraHeaders,
		Prompt:       req.Prompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	}

	resp, attempts, err := g.retry.Do(callCtx, func(ctx context.Context) (ProviderResponse, error) {
		return provider.Generate(ctx, provReq)
	})
	if err != nil {
		g.breakers.RecordFailure(provider.Name())
		return g.failure(req, requestID, start, attempts, provider.Name(), cred.ID, err)
	}

	cost := g.cfg.PricingFor(provider.Name()).Cost(resp.Usage)
	incErr := g.creds.Increment(ctx, cred.ID, cost, 1)
	g.breakers.RecordSuccess(provider.Name())

	latency := time.Since(start)
	g.meter.OnResult(ResultEvent{
		RequestID:    requestID,
		Provider:     provider.Name(),
		CredentialID: cred.ID,
		UserID:       req.UserID,
		Kind:         req.Kind,
		Success:      true,
		Attempts:     attempts,
		Duration:     latency,
		Usage:        resp.Usage,
		Cost:         cost,
		Error:        incErr,
	})

	return Response{
		Text:         resp.Text,
		Usage:        resp.Usage,
		Cost:         cost,
		Latency:      latency,
		Provider:     provider.Name(),
		CredentialID: cred.ID,
		Attempts:     attempts,
	}
}

// candidateProviders resolves a requested provider name to the list of
// provider names to gate through, honoring "any" routing.
func (g *Gateway) candidateProviders(requested string) []string {
	if requested != "" && requested != "any" {
		if _, ok := g.providers[requested]; !ok {
			return nil
		}
		return []string{requested}
	}

	var names []string
	if g.cfg.DefaultProvider != "" {
		names = append(names, g.cfg.DefaultProvider)
	}
	for _, pc := range g.cfg.Providers {
		if pc.Name == g.cfg.DefaultProvider {
			continue
		}
		names = append(names, pc.Name)
	}
	return names
}

func (g *Gateway) failure(req Request, requestID string, start time.Time, attempts int, provider, credentialID string, err error) Response {
	wrapped := &GatewayError{
		Err:          err,
		Provider:     provider,
		CredentialID: credentialID,
		Attempts:     attempts,
	}

	latency := time.Since(start)
	kind := KindOf(err)

	g.meter.OnResult(ResultEvent{
		RequestID:    requestID,
		Provider:     provider,
		CredentialID: credentialID,
		UserID:       req.UserID,
		Kind:         req.Kind,
		Success:      false,
		ErrKind:      kind,
		Attempts:     attempts,
		Duration:     latency,
		Error:        wrapped,
	})

	return Response{
		Latency:      latency,
		ErrKind:      kind,
		ErrMessage:   err.Error(),
		Provider:     provider,
		CredentialID: credentialID,
		Attempts:     attempts,
	}
}

// noopMeter is a meter that does nothing.
type noopMeter struct{}

func (noopMeter) OnDispatch(DispatchEvent) {}
func (noopMeter) OnResult(ResultEvent) {}
