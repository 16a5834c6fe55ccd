package insightgate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ig "github.com/flowmetric/insightgate"
	"github.com/flowmetric/insightgate/provider/mock"
)

func testConfig(providers ...string) ig.Config {
	cfg := ig.Config{}
	for _, name := range providers {
		cfg.Providers = append(cfg.Providers, ig.ProviderConfig{
			Name:    name,
			Pricing: ig.Pricing{InputPer1K: 0.1, OutputPer1K: 0.1},
		})
		cfg.Credentials = append(cfg.Credentials, ig.CredentialConfig{
			ID:              name + "-1",
			Provider:        name,
			Key:             "test-key",
			MonthlyCostCap:  100,
			DailyRequestCap: 1000,
		})
	}
	return cfg
}

func newTestGateway(t *testing.T, cfg ig.Config, providers []ig.Provider, opts ...ig.Option) *ig.Gateway {
	t.Helper()
	opts = append([]ig.Option{
		ig.WithRetryPolicy(ig.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Multiplier: 2}),
	}, opts...)
	gw, err := ig.NewGateway(cfg, providers, opts...)
	require.NoError(t, err)
	return gw
}

func TestDispatch_Success(t *testing.T) {
	prov := mock.New()
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov})

	resp := gw.Dispatch(context.Background(), ig.Request{
		Provider: "mock",
		Prompt:   "hello",
		UserID:   "u1",
		Kind:     "test",
	})
	require.True(t, resp.OK(), "unexpected failure: %s", resp.ErrMessage)
	assert.Equal(t, "Hello from mock provider", resp.Text)
	assert.Equal(t, "mock-1", resp.CredentialID)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, int64(30), resp.Usage.TotalTokens)
	// 10 input + 20 output tokens at 0.1 per 1k each.
	assert.InDelta(t, 0.003, resp.Cost, 1e-9)

	store := gw.CredentialStore().(*ig.MemoryCredentialStore)
	cred, ok := store.Get("mock-1")
	require.True(t, ok)
	assert.InDelta(t, 0.003, cred.AccruedCost, 1e-9)
	assert.Equal(t, int64(1), cred.AccruedRequests)
	assert.False(t, cred.LastUsedAt.IsZero())
}

func TestDispatch_AccrualIncrement(t *testing.T) {
	// 10 input tokens at 0.1 per 1k = 0.001 per call.
	prov := mock.New(mock.WithUsage(ig.Usage{InputTokens: 10, TotalTokens: 10}))

	store := ig.NewMemoryCredentialStore(&ig.Credential{
		ID: "c1", Provider: "mock", Key: "k", Status: ig.StatusActive,
		MonthlyCostCap: 100, AccruedCost: 10, DailyRequestCap: 1000,
	})
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov}, ig.WithCredentialStore(store))

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	require.True(t, resp.OK())

	cred, ok := store.Get("c1")
	require.True(t, ok)
	assert.InDelta(t, 10.001, cred.AccruedCost, 1e-9)
}

func TestDispatch_QuotaExceeded_CostCap(t *testing.T) {
	prov := mock.New()
	store := ig.NewMemoryCredentialStore(&ig.Credential{
		ID: "c1", Provider: "mock", Key: "k", Status: ig.StatusActive,
		MonthlyCostCap: 100, AccruedCost: 150, DailyRequestCap: 1000,
	})
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov}, ig.WithCredentialStore(store))

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	assert.Equal(t, ig.KindQuotaExceeded, resp.ErrKind)
	assert.Contains(t, resp.ErrMessage, "monthly cost cap")
	assert.Equal(t, int64(0), prov.CallCount(), "no provider call on quota denial")
}

func TestDispatch_QuotaExceeded_RequestCap(t *testing.T) {
	prov := mock.New()
	store := ig.NewMemoryCredentialStore(&ig.Credential{
		ID: "c1", Provider: "mock", Key: "k", Status: ig.StatusActive,
		MonthlyCostCap: 100, DailyRequestCap: 50, AccruedRequests: 50,
	})
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov}, ig.WithCredentialStore(store))

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	assert.Equal(t, ig.KindQuotaExceeded, resp.ErrKind)
	assert.Contains(t, resp.ErrMessage, "daily request cap")
	assert.Equal(t, int64(0), prov.CallCount())
}

func TestDispatch_NoCredentials_IsConfigurationError(t *testing.T) {
	prov := mock.New()
	cfg := testConfig("mock")
	cfg.Credentials = nil
	gw := newTestGateway(t, cfg, []ig.Provider{prov})

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	assert.Equal(t, ig.KindConfiguration, resp.ErrKind)
	assert.Equal(t, int64(0), prov.CallCount())
}

func TestDispatch_UnknownProvider(t *testing.T) {
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{mock.New()})

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "nope", Prompt: "hi"})
	assert.Equal(t, ig.KindConfiguration, resp.ErrKind)
}

func TestDispatch_RetriesRateLimitThenSucceeds(t *testing.T) {
	prov := mock.New(mock.WithScript(ig.ErrRateLimited, nil))
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov})

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	require.True(t, resp.OK())
	assert.Equal(t, "Hello from mock provider", resp.Text)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, int64(2), prov.CallCount(), "exactly two provider calls")
}

func TestDispatch_ProviderErrorNotRetried(t *testing.T) {
	prov := mock.New(mock.WithError(ig.ErrProvider))
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov})

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	assert.Equal(t, ig.KindProvider, resp.ErrKind)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, int64(1), prov.CallCount())
}

func TestDispatch_RetryBudgetExhausted(t *testing.T) {
	prov := mock.New(mock.WithError(ig.ErrRateLimited))
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov})

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	assert.Equal(t, ig.KindRateLimited, resp.ErrKind)
	assert.Equal(t, 3, resp.Attempts)
	assert.Equal(t, int64(3), prov.CallCount())
}

func TestDispatch_BreakerOpensAndProbes(t *testing.T) {
	// Three dispatches fail, the fourth must short-circuit, and after the
	// cooldown exactly one probe goes through.
	prov := mock.New(mock.WithScript(ig.ErrProvider, ig.ErrProvider, ig.ErrProvider))
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov},
		ig.WithBreakerRegistry(ig.NewBreakerRegistry(3, 50*time.Millisecond)))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		resp := gw.Dispatch(ctx, ig.Request{Provider: "mock", Prompt: "hi"})
		assert.Equal(t, ig.KindProvider, resp.ErrKind)
	}
	assert.Equal(t, int64(3), prov.CallCount())
	assert.Equal(t, ig.StateOpen, gw.Breakers().State("mock"))

	resp := gw.Dispatch(ctx, ig.Request{Provider: "mock", Prompt: "hi"})
	assert.Equal(t, ig.KindCircuitOpen, resp.ErrKind)
	assert.Equal(t, int64(3), prov.CallCount(), "open circuit makes no provider call")

	time.Sleep(60 * time.Millisecond)

	// Script exhausted: the probe succeeds and closes the circuit.
	resp = gw.Dispatch(ctx, ig.Request{Provider: "mock", Prompt: "hi"})
	require.True(t, resp.OK())
	assert.Equal(t, int64(4), prov.CallCount())
	assert.Equal(t, ig.StateClosed, gw.Breakers().State("mock"))
}

func TestDispatch_TimeoutReportsNetworkFailure(t *testing.T) {
	prov := mock.New(mock.WithLatency(200 * time.Millisecond))
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov})

	start := time.Now()
	resp := gw.Dispatch(context.Background(), ig.Request{
		Provider: "mock",
		Prompt:   "hi",
		Timeout:  20 * time.Millisecond,
	})
	assert.Equal(t, ig.KindNetwork, resp.ErrKind)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "timeout cancels the in-flight call")
}

func TestDispatch_AnyProvider_SkipsGatedProviders(t *testing.T) {
	p1 := mock.New(mock.WithName("p1"))
	p2 := mock.New(mock.WithName("p2"))
	store := ig.NewMemoryCredentialStore(
		&ig.Credential{
			ID: "p1-1", Provider: "p1", Key: "k", Status: ig.StatusActive,
			MonthlyCostCap: 100, AccruedCost: 100, DailyRequestCap: 1000,
		},
		&ig.Credential{
			ID: "p2-1", Provider: "p2", Key: "k", Status: ig.StatusActive,
			MonthlyCostCap: 100, DailyRequestCap: 1000,
		},
	)
	gw := newTestGateway(t, testConfig("p1", "p2"), []ig.Provider{p1, p2},
		ig.WithCredentialStore(store))

	resp := gw.Dispatch(context.Background(), ig.Request{Prompt: "hi"})
	require.True(t, resp.OK())
	assert.Equal(t, "p2", resp.Provider)
	assert.Equal(t, int64(0), p1.CallCount())
	assert.Equal(t, int64(1), p2.CallCount())
}

func TestDispatch_AllProvidersGated_ReportsLastDenial(t *testing.T) {
	p1 := mock.New(mock.WithName("p1"))
	store := ig.NewMemoryCredentialStore(&ig.Credential{
		ID: "p1-1", Provider: "p1", Key: "k", Status: ig.StatusActive,
		MonthlyCostCap: 100, AccruedCost: 100, DailyRequestCap: 1000,
	})
	gw := newTestGateway(t, testConfig("p1"), []ig.Provider{p1}, ig.WithCredentialStore(store))

	resp := gw.Dispatch(context.Background(), ig.Request{Prompt: "hi"})
	assert.Equal(t, ig.KindQuotaExceeded, resp.ErrKind)
	assert.Equal(t, int64(0), p1.CallCount())
}

func TestDispatch_SelectsLargestHeadroom(t *testing.T) {
	prov := mock.New()
	store := ig.NewMemoryCredentialStore(
		&ig.Credential{
			ID: "small", Provider: "mock", Key: "k", Status: ig.StatusActive,
			MonthlyCostCap: 100, AccruedCost: 60, DailyRequestCap: 1000,
		},
		&ig.Credential{
			ID: "big", Provider: "mock", Key: "k", Status: ig.StatusActive,
			MonthlyCostCap: 100, AccruedCost: 10, DailyRequestCap: 1000,
		},
	)
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov}, ig.WithCredentialStore(store))

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	require.True(t, resp.OK())
	assert.Equal(t, "big", resp.CredentialID)
}

func TestDispatch_HeadroomTie_PrefersLeastRecentlyUsed(t *testing.T) {
	prov := mock.New()
	now := time.Now().UTC()
	store := ig.NewMemoryCredentialStore(
		&ig.Credential{
			ID: "hot", Provider: "mock", Key: "k", Status: ig.StatusActive,
			MonthlyCostCap: 100, DailyRequestCap: 1000, LastUsedAt: now,
		},
		&ig.Credential{
			ID: "cool", Provider: "mock", Key: "k", Status: ig.StatusActive,
			MonthlyCostCap: 100, DailyRequestCap: 1000, LastUsedAt: now.Add(-time.Hour),
		},
	)
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov}, ig.WithCredentialStore(store))

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	require.True(t, resp.OK())
	assert.Equal(t, "cool", resp.CredentialID)
}

func TestDispatch_DisabledCredentialIgnored(t *testing.T) {
	prov := mock.New()
	store := ig.NewMemoryCredentialStore(
		&ig.Credential{
			ID: "off", Provider: "mock", Key: "k", Status: ig.StatusDisabled,
			MonthlyCostCap: 100, DailyRequestCap: 1000,
		},
		&ig.Credential{
			ID: "on", Provider: "mock", Key: "k", Status: ig.StatusActive,
			MonthlyCostCap: 100, DailyRequestCap: 1000,
		},
	)
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov}, ig.WithCredentialStore(store))

	resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
	require.True(t, resp.OK())
	assert.Equal(t, "on", resp.CredentialID)
}

func TestDispatch_ConcurrentAccountingIsExact(t *testing.T) {
	prov := mock.New()
	gw := newTestGateway(t, testConfig("mock"), []ig.Provider{prov})

	const calls = 20
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := gw.Dispatch(context.Background(), ig.Request{Provider: "mock", Prompt: "hi"})
			assert.True(t, resp.OK())
		}()
	}
	wg.Wait()

	store := gw.CredentialStore().(*ig.MemoryCredentialStore)
	cred, ok := store.Get("mock-1")
	require.True(t, ok)
	assert.Equal(t, int64(calls), cred.AccruedRequests)
	assert.InDelta(t, 0.003*calls, cred.AccruedCost, 1e-9)
}

func TestNewGateway_RejectsMissingAdapter(t *testing.T) {
	cfg := testConfig("mock", "ghost")
	_, err := ig.NewGateway(cfg, []ig.Provider{mock.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ig.KindQuotaExceeded, ig.KindOf(ig.ErrQuotaExceeded))
	assert.Equal(t, ig.KindCircuitOpen, ig.KindOf(ig.ErrCircuitOpen))
	assert.Equal(t, ig.KindRateLimited, ig.KindOf(ig.ErrRateLimited))
	assert.Equal(t, ig.KindNetwork, ig.KindOf(context.DeadlineExceeded))
	assert.Equal(t, ig.KindConfiguration, ig.KindOf(ig.ErrNoCredentials))
	assert.Equal(t, ig.KindProvider, ig.KindOf(errors.New("weird")))
	assert.Equal(t, ig.KindNone, ig.KindOf(nil))
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, ig.IsRetryable(ig.ErrRateLimited))
	assert.True(t, ig.IsRetryable(ig.ErrNetwork))
	assert.False(t, ig.IsRetryable(ig.ErrProvider))
	assert.True(t, ig.IsFatal(ig.ErrNoCredentials))
	assert.False(t, ig.IsFatal(ig.ErrRateLimited))
}
