package insightgate

import "time"

// Meter observes dispatch events for monitoring/logging.
type Meter interface {
	// OnDispatch is called once a credential has been reserved, before
	// the provider call.
	OnDispatch(event DispatchEvent)

	// OnResult is called when a dispatch resolves, success or failure.
	OnResult(event ResultEvent)
}

// DispatchEvent describes a dispatch about to hit a provider.
type DispatchEvent struct {
	RequestID    string
	Provider     string
	CredentialID string
	UserID       string
	Kind         string
	EstimatedIn  int64
}

// ResultEvent describes the outcome of a dispatch.
type ResultEvent struct {
	RequestID    string
	Provider     string
	CredentialID string
	UserID       string
	Kind         string
	Success      bool
	ErrKind      ErrorKind
	Attempts     int
	Duration     time.Duration
	Usage        Usage
	Cost         float64
	Error        error
}
