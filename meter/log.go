package meter

import (
	"log/slog"

	"github.com/flowmetric/insightgate"
)

// LogMeter logs dispatch events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ insightgate.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnDispatch(e insightgate.DispatchEvent) {
	m.Logger.Info("dispatch",
		"request_id", e.RequestID,
		"provider", e.Provider,
		"credential", e.CredentialID,
		"user", e.UserID,
		"kind", e.Kind,
		"estimated_tokens", e.EstimatedIn,
	)
}

func (m *LogMeter) OnResult(e insightgate.ResultEvent) {
	if e.Success {
		m.Logger.Info("result",
			"request_id", e.RequestID,
			"provider", e.Provider,
			"credential", e.CredentialID,
			"kind", e.Kind,
			"attempts", e.Attempts,
			"duration_ms", e.Duration.Milliseconds(),
			"input_tokens", e.Usage.InputTokens,
			"output_tokens", e.Usage.OutputTokens,
			"cost", e.Cost,
		)
	} else {
		m.Logger.Warn("result_error",
			"request_id", e.RequestID,
			"provider", e.Provider,
			"credential", e.CredentialID,
			"kind", e.Kind,
			"err_kind", string(e.ErrKind),
			"attempts", e.Attempts,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
	}
}
