package insight

import (
	"context"
	"sync"
)

// MemoryActivityStore is an in-memory ActivityStore for tests and examples.
type MemoryActivityStore struct {
	mu    sync.RWMutex
	users map[string]Activity
}

var _ ActivityStore = (*MemoryActivityStore)(nil)

// NewMemoryActivityStore creates an empty store.
func NewMemoryActivityStore() *MemoryActivityStore {
	return &MemoryActivityStore{users: make(map[string]Activity)}
}

// Put replaces a user's activity.
func (s *MemoryActivityStore) Put(userID string, a Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = a
}

// FetchActivity returns the user's activity with time entries filtered to
// the window. Tasks, goals and habits are window-independent snapshots.
func (s *MemoryActivityStore) FetchActivity(_ context.Context, userID string, window Window) (Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.users[userID]
	if !ok {
		return Activity{}, nil
	}

	out := Activity{
		Tasks:  append([]Task(nil), a.Tasks...),
		Goals:  append([]Goal(nil), a.Goals...),
		Habits: append([]Habit(nil), a.Habits...),
	}
	for _, e := range a.TimeEntries {
		if !window.Start.IsZero() && e.Start.Before(window.Start) {
			continue
		}
		if !window.End.IsZero() && e.Start.After(window.End) {
			continue
		}
		out.TimeEntries = append(out.TimeEntries, e)
	}
	return out, nil
}
