package insight

import (
	"context"
	"fmt"
)

// TimeBlockGenerator suggests time-blocking adjustments: when to schedule
// focused work given how the user's tracked time actually falls.
type TimeBlockGenerator struct {
	generator
}

// NewTimeBlockGenerator creates the generator.
func NewTimeBlockGenerator(gw Dispatcher, activity ActivityStore, opts ...Option) *TimeBlockGenerator {
	return &TimeBlockGenerator{newGenerator(gw, activity, "time_blocking", opts...)}
}

// Generate returns time-blocking insights for the user.
func (g *TimeBlockGenerator) Generate(ctx context.Context, userID string, categories []string, window Window) ([]Insight, error) {
	return g.run(ctx, userID, categories, window, timeBlockPrompt)
}

func timeBlockPrompt(act Activity, categories []string) string {
	return fmt.Sprintf(`You are planning time blocks for a user.
From their open tasks and where tracked time actually lands, propose blocks
that protect focus time and batch similar work. Reference concrete hours.
%sOpen tasks:
%s
Time entries:
%s

%s`, categoriesClause(categories), promptData(act.Tasks), promptData(act.TimeEntries), insightSchema)
}
