// Package openai adapts the OpenAI chat completion API through the
// go-openai SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/flowmetric/insightgate"
)

// Provider is the OpenAI adapter. The API key travels with each request's
// credential, so a client is built per call.
type Provider struct {
	model   string
	baseURL string
}

var _ insightgate.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithModel sets the model requested from OpenAI.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL points the adapter at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// New creates a new OpenAI provider.
func New(opts ...Option) *Provider {
	p := &Provider{model: gopenai.GPT4oMini}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Generate(ctx context.Context, req insightgate.ProviderRequest) (insightgate.ProviderResponse, error) {
	cfg := gopenai.DefaultConfig(req.Key)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	if len(req.ExtraHeaders) > 0 {
		cfg.HTTPClient = &http.Client{
			Transport: headerTransport{headers: req.ExtraHeaders, base: http.DefaultTransport},
		}
	}
	client := gopenai.NewClientWithConfig(cfg)

	oaReq := gopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		oaReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		oaReq.Temperature = float32(*req.Temperature)
	}

	resp, err := client.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		return insightgate.ProviderResponse{}, classify(err)
	}

	if len(resp.Choices) == 0 {
		return insightgate.ProviderResponse{}, fmt.Errorf("%w: empty choices", insightgate.ErrProvider)
	}

	return insightgate.ProviderResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: insightgate.Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
			TotalTokens:  int64(resp.Usage.TotalTokens),
		},
	}, nil
}

// classify maps SDK errors onto the gateway sentinels.
func classify(err error) error {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", insightgate.ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: status %d", insightgate.ErrNetwork, apiErr.HTTPStatusCode)
		default:
			return fmt.Errorf("%w: %v", insightgate.ErrProvider, err)
		}
	}
	// Transport-level failure or cancellation.
	return fmt.Errorf("%w: %v", insightgate.ErrNetwork, err)
}

type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
