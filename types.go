package insightgate

import "time"

// Request describes a single generation request submitted to the gateway.
// It is built by a consumer, consumed by Dispatch, and discarded afterwards.
type Request struct {
	// Provider names the target provider. Empty (or "any") lets the
	// gateway pick the first configured provider that can take the call.
	Provider string

	// Prompt is the full prompt text.
	Prompt string

	// UserID identifies the requesting user. Carried into meter events;
	// the gateway performs no per-user accounting.
	UserID string

	// Kind is a free-form request tag ("productivity_insights",
	// "task_prioritization", ...) for logging and fallback routing.
	Kind string

	// MaxTokens caps the generated output size. Zero means provider default.
	MaxTokens int

	// Temperature controls sampling randomness. Nil means provider default.
	Temperature *float64

	// Timeout bounds the whole dispatch including retries and backoff.
	// Zero means no deadline beyond the caller's context.
	Timeout time.Duration
}

// Usage is the token breakdown reported by a provider.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Response is the outcome of one dispatch. Every failure mode is encoded in
// ErrKind/ErrMessage; Dispatch never returns a Go error for provider-side
// conditions.
type Response struct {
	Text    string
	Usage   Usage
	Cost    float64
	Latency time.Duration

	// ErrKind is empty on success.
	ErrKind    ErrorKind
	ErrMessage string

	// Routing context for the call that produced this response.
	Provider     string
	CredentialID string
	Attempts     int
}

// OK reports whether the dispatch succeeded.
func (r Response) OK() bool { return r.ErrKind == KindNone }

// ErrorKind classifies a failed dispatch.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindConfiguration ErrorKind = "configuration"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindCircuitOpen   ErrorKind = "circuit_open"
	KindRateLimited   ErrorKind = "rate_limited"
	KindNetwork       ErrorKind = "network"
	KindProvider      ErrorKind = "provider"
)

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to the given int.
func IntPtr(v int) *int { return &v }
