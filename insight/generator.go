package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowmetric/insightgate"
)

const defaultTimeout = 30 * time.Second

// generator is the plumbing every feature shares: fetch activity, render a
// prompt, dispatch, parse, fall back. Subtypes differ only in prompt
// construction and fallback.
type generator struct {
	gw       Dispatcher
	activity ActivityStore
	provider string
	timeout  time.Duration
	kind     string
}

// Option configures a generator.
type Option func(*generator)

// WithProvider pins a generator to one provider instead of "any".
func WithProvider(name string) Option {
	return func(g *generator) { g.provider = name }
}

// WithTimeout sets the per-dispatch timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(g *generator) { g.timeout = d }
}

func newGenerator(gw Dispatcher, activity ActivityStore, kind string, opts ...Option) generator {
	g := generator{
		gw:       gw,
		activity: activity,
		timeout:  defaultTimeout,
		kind:     kind,
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// run executes the shared pipeline for list-of-insight generators.
// buildPrompt receives the fetched activity; any failure along the way
// (fetch error, empty data, dispatch failure, unparseable response) resolves
// to the empty fallback, never an error.
func (g generator) run(ctx context.Context, userID string, categories []string, window Window, buildPrompt func(Activity, []string) string) ([]Insight, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	act, err := g.activity.FetchActivity(ctx, userID, window)
	if err != nil || act.Empty() {
		return []Insight{}, nil
	}

	resp := g.gw.Dispatch(ctx, insightgate.Request{
		Provider:    g.provider,
		Prompt:      buildPrompt(act, categories),
		UserID:      userID,
		Kind:        g.kind,
		MaxTokens:   1024,
		Temperature: insightgate.Float64Ptr(0.7),
		Timeout:     g.timeout,
	})
	if !resp.OK() {
		return []Insight{}, nil
	}

	insights, err := parseInsights(resp.Text)
	if err != nil {
		return []Insight{}, nil
	}
	return filterCategories(insights, categories), nil
}

// filterCategories drops insights outside the requested categories. An
// empty request means all categories.
func filterCategories(insights []Insight, categories []string) []Insight {
	if len(categories) == 0 {
		return insights
	}
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}
	out := make([]Insight, 0, len(insights))
	for _, in := range insights {
		if want[in.Category] {
			out = append(out, in)
		}
	}
	return out
}

// promptData renders activity as compact JSON for embedding in prompts.
func promptData(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// insightSchema is the output contract every prompt states.
const insightSchema = `Respond with only a JSON array, no prose. Each element:
{"title": string, "body": string, "category": string, "confidence": number 0-1, "priority": integer 1-5, "impact": string}`

func categoriesClause(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	return fmt.Sprintf("Only produce insights in these categories: %s.\n", promptData(categories))
}
