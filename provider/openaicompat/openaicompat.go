// Package openaicompat is a universal adapter for OpenAI-compatible chat
// completion APIs. Works with OpenAI, Grok/xAI, Together, Ollama and others.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flowmetric/insightgate"
)

// Provider is an OpenAI-compatible API adapter.
type Provider struct {
	name       string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ insightgate.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithModel sets the model requested from the endpoint.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// New creates a new OpenAI-compatible provider.
func New(name, baseURL string, opts ...Option) *Provider {
	p := &Provider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      "gpt-4o-mini",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewGrok creates a provider for Grok/xAI.
func NewGrok(opts ...Option) *Provider {
	return New("grok", "https://api.x.ai/v1", opts...)
}

func (p *Provider) Name() string { return p.name }

// apiRequest is the OpenAI chat completion request format.
type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	MaxTokens   *int         `json:"max_tokens,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiResponse is the OpenAI chat completion response format.
type apiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int        `json:"index"`
		Message apiMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

func (p *Provider) Generate(ctx context.Context, req insightgate.ProviderRequest) (insightgate.ProviderResponse, error) {
	body := apiRequest{
		Model:       p.model,
		Messages:    []apiMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = insightgate.IntPtr(req.MaxTokens)
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return insightgate.ProviderResponse{}, fmt.Errorf("insightgate: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return insightgate.ProviderResponse{}, fmt.Errorf("insightgate: create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Key)
	for k, v := range req.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return insightgate.ProviderResponse{}, fmt.Errorf("%w: %v", insightgate.ErrNetwork, ctx.Err())
		}
		return insightgate.ProviderResponse{}, fmt.Errorf("%w: %v", insightgate.ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	if err := mapHTTPError(httpResp); err != nil {
		return insightgate.ProviderResponse{}, err
	}

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return insightgate.ProviderResponse{}, fmt.Errorf("%w: decode response: %v", insightgate.ErrProvider, err)
	}

	if len(resp.Choices) == 0 {
		return insightgate.ProviderResponse{}, fmt.Errorf("%w: empty choices", insightgate.ErrProvider)
	}

	return insightgate.ProviderResponse{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: insightgate.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// mapHTTPError classifies a non-2xx response onto the gateway sentinels.
func mapHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return insightgate.ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", insightgate.ErrNetwork, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d: %s", insightgate.ErrProvider, resp.StatusCode, string(body))
	}
}
