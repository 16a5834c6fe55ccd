package insightgate

// Pricing holds per-provider token rates in currency units per 1k tokens.
type Pricing struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// Cost computes the monetary cost of a response.
func (p Pricing) Cost(u Usage) float64 {
	return float64(u.InputTokens)/1000*p.InputPer1K +
		float64(u.OutputTokens)/1000*p.OutputPer1K
}

// EstimateTokens provides a rough token count for a prompt, used for meter
// events only. ~4 chars per token plus request overhead.
func EstimateTokens(prompt string) int64 {
	return int64(len(prompt))/4 + 3
}
