package insight

import (
	"context"
	"fmt"
)

// HabitGenerator suggests habit optimizations: which habits to reinforce,
// reschedule or retire.
type HabitGenerator struct {
	generator
}

// NewHabitGenerator creates the generator.
func NewHabitGenerator(gw Dispatcher, activity ActivityStore, opts ...Option) *HabitGenerator {
	return &HabitGenerator{newGenerator(gw, activity, "habit_optimization", opts...)}
}

// Generate returns habit optimization insights for the user.
func (g *HabitGenerator) Generate(ctx context.Context, userID string, categories []string, window Window) ([]Insight, error) {
	return g.run(ctx, userID, categories, window, habitPrompt)
}

func habitPrompt(act Activity, categories []string) string {
	return fmt.Sprintf(`You are reviewing a user's habits and tracked time.
For each habit judge whether it is working: streaks, completion rate, and how
tracked time lines up with it. Suggest concrete adjustments.
%sHabits:
%s
Time entries:
%s

%s`, categoriesClause(categories), promptData(act.Habits), promptData(act.TimeEntries), insightSchema)
}
