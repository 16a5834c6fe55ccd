package meter

import "github.com/flowmetric/insightgate"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ insightgate.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnDispatch(insightgate.DispatchEvent) {}
func (m *NoopMeter) OnResult(insightgate.ResultEvent) {}
