package insight

import (
	"context"
	"fmt"
)

// BurnoutGenerator predicts burnout risk from workload signals: task
// volume, tracked hours, and completion trends.
type BurnoutGenerator struct {
	generator
}

// NewBurnoutGenerator creates the generator.
func NewBurnoutGenerator(gw Dispatcher, activity ActivityStore, opts ...Option) *BurnoutGenerator {
	return &BurnoutGenerator{newGenerator(gw, activity, "burnout_prediction", opts...)}
}

// Generate returns burnout-risk insights for the user.
func (g *BurnoutGenerator) Generate(ctx context.Context, userID string, categories []string, window Window) ([]Insight, error) {
	return g.run(ctx, userID, categories, window, burnoutPrompt)
}

func burnoutPrompt(act Activity, categories []string) string {
	return fmt.Sprintf(`You are assessing burnout risk from a user's workload.
Weigh open task volume against tracked hours and flag sustained overload,
late-day work clusters, and dropped habits. Be conservative: only report
risks the data supports.
%sTasks:
%s
Time entries:
%s
Habits:
%s

%s`, categoriesClause(categories), promptData(act.Tasks), promptData(act.TimeEntries), promptData(act.Habits), insightSchema)
}
