package insight

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseInsights decodes a model response into insights. Models wrap JSON in
// markdown fences or preamble text often enough that we cut out the
// outermost array before unmarshalling. Records without a title are
// dropped; confidence is clamped to [0, 1].
func parseInsights(text string) ([]Insight, error) {
	raw, err := extractArray(text)
	if err != nil {
		return nil, err
	}

	var decoded []Insight
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("insight: decode response: %w", err)
	}

	out := make([]Insight, 0, len(decoded))
	for _, in := range decoded {
		if in.Title == "" {
			continue
		}
		if in.Confidence < 0 {
			in.Confidence = 0
		}
		if in.Confidence > 1 {
			in.Confidence = 1
		}
		out = append(out, in)
	}
	return out, nil
}

// parseRecommendations decodes the prioritizer's response.
func parseRecommendations(text string) ([]PriorityRecommendation, error) {
	raw, err := extractArray(text)
	if err != nil {
		return nil, err
	}

	var decoded []PriorityRecommendation
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("insight: decode response: %w", err)
	}

	out := make([]PriorityRecommendation, 0, len(decoded))
	for _, r := range decoded {
		if r.TaskID == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// extractArray returns the outermost JSON array in the text.
func extractArray(text string) (string, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("insight: no JSON array in response")
	}
	return text[start : end+1], nil
}
