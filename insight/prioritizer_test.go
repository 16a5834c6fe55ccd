package insight_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ig "github.com/flowmetric/insightgate"
	"github.com/flowmetric/insightgate/insight"
)

func sampleTasks(now time.Time) []insight.Task {
	return []insight.Task{
		{ID: "t1", Title: "File taxes", Category: "admin", Priority: 3, DueDate: now.AddDate(0, 0, -1)},
		{ID: "t2", Title: "Prep talk", Category: "work", Priority: 5, DueDate: now.AddDate(0, 0, 5)},
		{ID: "t3", Title: "Read novel", Category: "leisure", Priority: 1},
		{ID: "t4", Title: "Old chore", Category: "home", Priority: 2, Completed: true},
	}
}

func TestPrioritize_UsesModelRanking(t *testing.T) {
	gw := &stubDispatcher{resp: okResponse(`[
  {"task_id": "t2", "title": "Prep talk", "score": 91, "reason": "deadline plus stated priority"},
  {"task_id": "ghost", "title": "Invented", "score": 80, "reason": "hallucinated"},
  {"task_id": "t1", "title": "File taxes", "score": 77, "reason": "overdue"}
]`)}
	p := insight.NewTaskPrioritizer(gw)

	recs, err := p.Prioritize(context.Background(), sampleTasks(time.Now().UTC()), insight.UserContext{})
	require.NoError(t, err)
	require.Len(t, recs, 2, "recommendations for unknown task ids are dropped")
	assert.Equal(t, "t2", recs[0].TaskID)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Equal(t, "t1", recs[1].TaskID)
	assert.Equal(t, 2, recs[1].Rank)

	assert.Equal(t, "task_prioritization", gw.lastReq.Kind)
}

func TestPrioritize_FallsBackWhenDispatchFails(t *testing.T) {
	now := time.Now().UTC()
	gw := &stubDispatcher{resp: failedResponse(ig.KindCircuitOpen)}
	p := insight.NewTaskPrioritizer(gw)

	recs, err := p.Prioritize(context.Background(), sampleTasks(now), insight.UserContext{})
	require.NoError(t, err)
	assert.Equal(t, insight.HeuristicRank(now, sampleTasks(now), insight.UserContext{}), recs)
}

func TestPrioritize_FallsBackWhenAllIDsInvented(t *testing.T) {
	now := time.Now().UTC()
	gw := &stubDispatcher{resp: okResponse(`[{"task_id": "ghost", "title": "x", "score": 1, "reason": "r"}]`)}
	p := insight.NewTaskPrioritizer(gw)

	recs, err := p.Prioritize(context.Background(), sampleTasks(now), insight.UserContext{})
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, insight.HeuristicRank(now, sampleTasks(now), insight.UserContext{})[0].TaskID, recs[0].TaskID)
}

func TestPrioritize_TaskWithoutIDIsHardError(t *testing.T) {
	gw := &stubDispatcher{resp: okResponse("[]")}
	p := insight.NewTaskPrioritizer(gw)

	_, err := p.Prioritize(context.Background(), []insight.Task{{Title: "no id"}}, insight.UserContext{})
	require.ErrorIs(t, err, insight.ErrInvalidTask)
	assert.Equal(t, 0, gw.callCount())
}

func TestPrioritize_EmptyTaskList(t *testing.T) {
	gw := &stubDispatcher{resp: okResponse("[]")}
	p := insight.NewTaskPrioritizer(gw)

	recs, err := p.Prioritize(context.Background(), nil, insight.UserContext{})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
	assert.Equal(t, 0, gw.callCount())
}

func TestHeuristicRank_Ordering(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recs := insight.HeuristicRank(now, sampleTasks(now), insight.UserContext{
		PreferredCategories: []string{"leisure"},
	})

	// t1: 30 + 50 overdue = 80; t2: 50 + 10 due-in-week = 60;
	// t3: 10 + 5 preferred = 15; t4 skipped as completed.
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{recs[0].TaskID, recs[1].TaskID, recs[2].TaskID})
	assert.Equal(t, 80.0, recs[0].Score)
	assert.Equal(t, 60.0, recs[1].Score)
	assert.Equal(t, 15.0, recs[2].Score)
	assert.Equal(t, []int{1, 2, 3}, []int{recs[0].Rank, recs[1].Rank, recs[2].Rank})
	assert.Contains(t, recs[0].Reason, "overdue")
	assert.Contains(t, recs[2].Reason, "preferred category")
}

func TestHeuristicRank_Deterministic(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	uc := insight.UserContext{PreferredCategories: []string{"work"}}

	first := insight.HeuristicRank(now, sampleTasks(now), uc)
	second := insight.HeuristicRank(now, sampleTasks(now), uc)
	assert.Equal(t, first, second)
}

func TestHeuristicRank_TieBreaksOnTaskID(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tasks := []insight.Task{
		{ID: "b", Title: "B", Priority: 2},
		{ID: "a", Title: "A", Priority: 2},
	}
	recs := insight.HeuristicRank(now, tasks, insight.UserContext{})
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].TaskID)
	assert.Equal(t, "b", recs[1].TaskID)
}
