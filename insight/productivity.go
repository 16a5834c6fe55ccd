package insight

import (
	"context"
	"fmt"
)

// ProductivityGenerator produces general productivity insights from a
// user's recent tasks, goals and tracked time.
type ProductivityGenerator struct {
	generator
}

// NewProductivityGenerator creates the generator.
func NewProductivityGenerator(gw Dispatcher, activity ActivityStore, opts ...Option) *ProductivityGenerator {
	return &ProductivityGenerator{newGenerator(gw, activity, "productivity_insights", opts...)}
}

// Generate returns productivity insights for the user over the window.
// Always resolves to a list; only a missing user id is an error.
func (g *ProductivityGenerator) Generate(ctx context.Context, userID string, categories []string, window Window) ([]Insight, error) {
	return g.run(ctx, userID, categories, window, productivityPrompt)
}

func productivityPrompt(act Activity, categories []string) string {
	return fmt.Sprintf(`You are a productivity coach reviewing a user's recent activity.
Identify patterns worth acting on: completion habits, scheduling friction, goal drift.
%sActivity data:
%s

%s`, categoriesClause(categories), promptData(act), insightSchema)
}
