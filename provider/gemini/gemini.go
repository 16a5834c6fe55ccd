// Package gemini adapts the Google Gemini generateContent API.
package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Provider is the Gemini API adapter.
type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ insightgate.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithModel sets the model requested from Gemini.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// New creates a new Gemini provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		model:      "gemini-2.0-flash",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "gemini" }

// Gemini API types.
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		TotalTokenCount      int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (p *Provider) Generate(ctx context.Context, req insightgate.ProviderRequest) (insightgate.ProviderResponse, error) {
	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{Temperature: req.Temperature}
		if req.MaxTokens > 0 {
			body.GenerationConfig.MaxOutputTokens = insightgate.IntPtr(req.MaxTokens)
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return insightgate.ProviderResponse{}, fmt.Errorf("insightgate: marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, req.Key)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return insightgate.ProviderResponse{}, fmt.Errorf("insightgate: create gemini request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return insightgate.ProviderResponse{}, fmt.Errorf("%w: %v", insightgate.ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	if err := mapHTTPError(httpResp); err != nil {
		return insightgate.ProviderResponse{}, err
	}

	var resp geminiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return insightgate.ProviderResponse{}, fmt.Errorf("%w: decode gemini response: %v", insightgate.ErrProvider, err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return insightgate.ProviderResponse{}, fmt.Errorf("%w: empty candidates", insightgate.ErrProvider)
	}

	return insightgate.ProviderResponse{
		Text:  resp.Candidates[0].Content.Parts[0].Text,
		Model: p.model,
		Usage: insightgate.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

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
