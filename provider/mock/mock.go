// Package mock provides a scripted provider for tests and examples.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowmetric/insightgate"
)

// Provider is a mock text-generation provider.
type Provider struct {
	name      string
	latency   time.Duration
	callCount atomic.Int64
	usage     insightgate.Usage
	text      string

	mu        sync.Mutex
	staticErr error
	script    []error // per-call outcomes, consumed in order; nil entry = success

	responseFunc func(insightgate.ProviderRequest) (insightgate.ProviderResponse, error)
}

var _ insightgate.Provider = (*Provider)(nil)

// Option configures a mock Provider.
type Option func(*Provider)

// New creates a mock provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		name: "mock",
		text: "Hello from mock provider",
		usage: insightgate.Usage{
			InputTokens:  10,
			OutputTokens: 20,
			TotalTokens:  30,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithName sets the provider name.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithLatency adds simulated latency to each call.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithError makes the provider always return this error.
func WithError(err error) Option {
	return func(p *Provider) { p.staticErr = err }
}

// WithScript sets per-call outcomes consumed in order; a nil entry succeeds.
// Calls past the end of the script succeed.
func WithScript(outcomes ...error) Option {
	return func(p *Provider) { p.script = outcomes }
}

// WithText sets the generated text.
func WithText(text string) Option {
	return func(p *Provider) { p.text = text }
}

// WithUsage sets the usage returned by the mock.
func WithUsage(u insightgate.Usage) Option {
	return func(p *Provider) { p.usage = u }
}

// WithResponseFunc sets a custom response function.
func WithResponseFunc(fn func(insightgate.ProviderRequest) (insightgate.ProviderResponse, error)) Option {
	return func(p *Provider) { p.responseFunc = fn }
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Generate(ctx context.Context, req insightgate.ProviderRequest) (insightgate.ProviderResponse, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return insightgate.ProviderResponse{}, ctx.Err()
		}
	}

	p.callCount.Add(1)

	if err := p.nextOutcome(); err != nil {
		return insightgate.ProviderResponse{}, err
	}

	if p.responseFunc != nil {
		return p.responseFunc(req)
	}

	return insightgate.ProviderResponse{
		Text:  p.text,
		Usage: p.usage,
		Model: "mock-model",
	}, nil
}

func (p *Provider) nextOutcome() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.staticErr != nil {
		return p.staticErr
	}
	if len(p.script) > 0 {
		err := p.script[0]
		p.script = p.script[1:]
		return err
	}
	return nil
}

// CallCount returns the number of calls made to the provider.
func (p *Provider) CallCount() int64 { return p.callCount.Load() }
