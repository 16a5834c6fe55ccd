// Package insight holds the feature-level generators that turn a user's
// activity data into domain insights via the gateway. Every generator
// degrades to a deterministic local heuristic when the AI path fails; the
// public entry points return slices and never error for provider-side
// failures.
package insight

import (
	"context"
	"errors"
	"time"

	"github.com/flowmetric/insightgate"
)

// Caller-input validation errors. These are the only hard errors a
// generator raises; operational failures degrade to fallbacks.
var (
	ErrMissingUserID = errors.New("insight: user id is required")
	ErrInvalidTask   = errors.New("insight: task is missing an id")
)

// Dispatcher is the gateway surface a generator depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, req insightgate.Request) insightgate.Response
}

// Insight is one generated recommendation. Ownership passes to the caller
// immediately; the generator keeps nothing.
type Insight struct {
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Priority   int     `json:"priority"`
	Impact     string  `json:"impact"`
}

// PriorityRecommendation is the prioritizer's per-task output.
type PriorityRecommendation struct {
	TaskID string  `json:"task_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
	Reason string  `json:"reason"`
}

// Task is a user task as stored by the collaborator store.
type Task struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Priority         int       `json:"priority"` // 1 (low) .. 5 (urgent)
	DueDate          time.Time `json:"due_date,omitempty"`
	Completed        bool      `json:"completed"`
	EstimatedMinutes int       `json:"estimated_minutes,omitempty"`
}

// Goal is a longer-horizon objective.
type Goal struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Progress   float64   `json:"progress"` // 0..1
	TargetDate time.Time `json:"target_date,omitempty"`
}

// Habit is a recurring practice with streak tracking.
type Habit struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Streak         int     `json:"streak"`
	CompletionRate float64 `json:"completion_rate"` // 0..1 over the window
}

// TimeEntry is one tracked block of time.
type TimeEntry struct {
	TaskID   string        `json:"task_id,omitempty"`
	Category string        `json:"category"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

// Activity bundles the records a generator works from.
type Activity struct {
	Tasks       []Task      `json:"tasks"`
	Goals       []Goal      `json:"goals"`
	Habits      []Habit     `json:"habits"`
	TimeEntries []TimeEntry `json:"time_entries"`
}

// Empty reports whether there is nothing to reason about. Data
// insufficiency is not an error; generators fall straight through to their
// fallback.
func (a Activity) Empty() bool {
	return len(a.Tasks) == 0 && len(a.Goals) == 0 && len(a.Habits) == 0 && len(a.TimeEntries) == 0
}

// Window bounds an activity query.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastNDays returns a window covering the n days up to now.
func LastNDays(n int) Window {
	end := time.Now().UTC()
	return Window{Start: end.AddDate(0, 0, -n), End: end}
}

// UserContext describes workload and preferences for the prioritizer.
type UserContext struct {
	DailyCapacityMinutes int
	AvailableMinutes     int
	PreferredCategories  []string
	RecentCompletionRate float64 // 0..1
}

// ActivityStore is the collaborator store generators read from.
type ActivityStore interface {
	FetchActivity(ctx context.Context, userID string, window Window) (Activity, error)
}
