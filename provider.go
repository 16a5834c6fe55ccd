package insightgate

import "context"

// Provider is the interface text-generation provider adapters implement.
// Adapters translate their wire format into ProviderResponse and classify
// failures onto the package sentinels: ErrRateLimited for throttling,
// ErrNetwork for connection/timeout trouble, ErrProvider for permanent
// rejections.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "gemini").
	Name() string

	// Generate performs a synchronous text generation call.
	Generate(ctx context.Context, req ProviderRequest) (ProviderResponse, error)
}

// ProviderRequest is the request sent to a provider adapter.
type ProviderRequest struct {
	// Key is the credential's API key.
	Key string

	// ExtraHeaders are credential-specific headers (org ids, project
	// scopes) sent verbatim.
	ExtraHeaders map[string]string

	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// ProviderResponse is the normalized response from a provider adapter.
type ProviderResponse struct {
	Text  string
	Usage Usage
	Model string
}
