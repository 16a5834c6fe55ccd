package insight

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/flowmetric/insightgate"
)

// TaskPrioritizer ranks an explicit task list against the user's workload
// and preferences. Unlike the other generators it takes its input from the
// caller instead of the activity store.
type TaskPrioritizer struct {
	generator
}

// NewTaskPrioritizer creates the prioritizer.
func NewTaskPrioritizer(gw Dispatcher, opts ...Option) *TaskPrioritizer {
	return &TaskPrioritizer{newGenerator(gw, nil, "task_prioritization", opts...)}
}

// Prioritize ranks the given tasks. The AI path asks the provider for an
// ordering with reasons; any failure falls back to HeuristicRank. A task
// without an id is a hard error, everything else resolves to a list.
func (p *TaskPrioritizer) Prioritize(ctx context.Context, tasks []Task, uc UserContext) ([]PriorityRecommendation, error) {
	for _, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTask, t.Title)
		}
	}
	if len(tasks) == 0 {
		return []PriorityRecommendation{}, nil
	}

	resp := p.gw.Dispatch(ctx, insightgate.Request{
		Provider:    p.provider,
		Prompt:      prioritizePrompt(tasks, uc),
		Kind:        p.kind,
		MaxTokens:   1024,
		Temperature: insightgate.Float64Ptr(0.3),
		Timeout:     p.timeout,
	})
	if !resp.OK() {
		return HeuristicRank(time.Now().UTC(), tasks, uc), nil
	}

	recs, err := parseRecommendations(resp.Text)
	if err != nil {
		return HeuristicRank(time.Now().UTC(), tasks, uc), nil
	}

	// Keep only recommendations that refer to real input tasks; a model
	// inventing task ids must not reach the caller.
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	kept := recs[:0]
	for _, r := range recs {
		if known[r.TaskID] {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return HeuristicRank(time.Now().UTC(), tasks, uc), nil
	}
	for i := range kept {
		kept[i].Rank = i + 1
	}
	return kept, nil
}

func prioritizePrompt(tasks []Task, uc UserContext) string {
	return fmt.Sprintf(`Rank these tasks for a user, most important first.
Consider stated priority, due dates, estimated effort against available time
(%d of %d minutes today), preferred categories %s, and a recent completion
rate of %.0f%%.
Tasks:
%s

Respond with only a JSON array, no prose. Each element:
{"task_id": string, "title": string, "score": number, "reason": string}`,
		uc.AvailableMinutes, uc.DailyCapacityMinutes, promptData(uc.PreferredCategories),
		uc.RecentCompletionRate*100, promptData(tasks))
}

// HeuristicRank is the prioritizer's deterministic fallback: tasks are
// scored from their stated priority and due-date proximity, with a small
// bonus for preferred categories. Identical input (including now) yields
// identical output.
func HeuristicRank(now time.Time, tasks []Task, uc UserContext) []PriorityRecommendation {
	preferred := make(map[string]bool, len(uc.PreferredCategories))
	for _, c := range uc.PreferredCategories {
		preferred[c] = true
	}

	recs := make([]PriorityRecommendation, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			continue
		}

		score := float64(t.Priority) * 10
		reason := fmt.Sprintf("priority %d", t.Priority)

		if !t.DueDate.IsZero() {
			daysLeft := t.DueDate.Sub(now).Hours() / 24
			switch {
			case daysLeft <= 0:
				score += 50
				reason += ", overdue"
			case daysLeft <= 1:
				score += 40
				reason += ", due within a day"
			case daysLeft <= 3:
				score += 25
				reason += ", due within 3 days"
			case daysLeft <= 7:
				score += 10
				reason += ", due within a week"
			}
		}

		if preferred[t.Category] {
			score += 5
			reason += ", preferred category"
		}

		recs = append(recs, PriorityRecommendation{
			TaskID: t.ID,
			Title:  t.Title,
			Score:  score,
			Reason: reason,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].TaskID < recs[j].TaskID
	})
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}
