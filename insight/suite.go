package insight

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Suite bundles one generator per feature, sharing a gateway and activity
// store. The dashboard renders all feature panels from one GenerateAll.
type Suite struct {
	Productivity *ProductivityGenerator
	Habits       *HabitGenerator
	Burnout      *BurnoutGenerator
	TimeBlocks   *TimeBlockGenerator
	Prioritizer  *TaskPrioritizer
}

// NewSuite wires every generator to the same gateway and store.
func NewSuite(gw Dispatcher, activity ActivityStore, opts ...Option) *Suite {
	return &Suite{
		Productivity: NewProductivityGenerator(gw, activity, opts...),
		Habits:       NewHabitGenerator(gw, activity, opts...),
		Burnout:      NewBurnoutGenerator(gw, activity, opts...),
		TimeBlocks:   NewTimeBlockGenerator(gw, activity, opts...),
		Prioritizer:  NewTaskPrioritizer(gw, opts...),
	}
}

// GenerateAll runs the list-of-insight generators concurrently and returns
// their results keyed by feature kind. Generators only error on bad caller
// input, so one bad argument fails the whole call; provider trouble just
// yields smaller lists.
func (s *Suite) GenerateAll(ctx context.Context, userID string, categories []string, window Window) (map[string][]Insight, error) {
	type feature struct {
		kind string
		gen  func(context.Context, string, []string, Window) ([]Insight, error)
	}
	features := []feature{
		{"productivity_insights", s.Productivity.Generate},
		{"habit_optimization", s.Habits.Generate},
		{"burnout_prediction", s.Burnout.Generate},
		{"time_blocking", s.TimeBlocks.Generate},
	}

	var mu sync.Mutex
	out := make(map[string][]Insight, len(features))

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range features {
		f := f
		g.Go(func() error {
			insights, err := f.gen(ctx, userID, categories, window)
			if err != nil {
				return err
			}
			mu.Lock()
			out[f.kind] = insights
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
