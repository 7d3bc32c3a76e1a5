package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/daypilot/pkg/model"
)

// MemStore is an in-memory Store. It backs tests and keeps the interface
// honest with a second implementation.
type MemStore struct {
	mu       sync.RWMutex
	tasks    map[string]map[string]model.Task // userID -> taskID -> task
	goals    map[string]map[string]model.Goal
	daily    map[string]map[model.Date]model.DailyEntry
	weekly   map[string]map[model.Date]model.WeeklyEntry
	analyses map[string][]model.WeeklyAnalysis

	// FailCreateTitles makes CreateTask fail for tasks with these titles.
	// Used by tests exercising partial-batch behavior.
	FailCreateTitles map[string]bool
	// FailUpdateIDs makes UpdateTask fail for these task IDs.
	FailUpdateIDs map[string]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		tasks:    make(map[string]map[string]model.Task),
		goals:    make(map[string]map[string]model.Goal),
		daily:    make(map[string]map[model.Date]model.DailyEntry),
		weekly:   make(map[string]map[model.Date]model.WeeklyEntry),
		analyses: make(map[string][]model.WeeklyAnalysis),
	}
}

func (s *MemStore) Init() error  { return nil }
func (s *MemStore) Close() error { return nil }

func (s *MemStore) CreateTask(_ context.Context, task model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreateTitles[task.Title] {
		return model.Task{}, fmt.Errorf("simulated create failure for %q", task.Title)
	}
	if task.FromCalendar {
		for _, existing := range s.tasks[task.UserID] {
			if existing.FromCalendar && existing.CalendarEventID == task.CalendarEventID {
				return model.Task{}, fmt.Errorf("duplicate calendar event %s for user %s",
					task.CalendarEventID, task.UserID)
			}
		}
	}

	task.ID = uuid.NewString()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if s.tasks[task.UserID] == nil {
		s.tasks[task.UserID] = make(map[string]model.Task)
	}
	s.tasks[task.UserID][task.ID] = task
	return task, nil
}

func (s *MemStore) GetTask(_ context.Context, userID, taskID string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[userID][taskID]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return task, nil
}

func (s *MemStore) ListTasks(_ context.Context, userID string) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []model.Task
	for _, t := range s.tasks[userID] {
		tasks = append(tasks, t)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Date != tasks[j].Date {
			return tasks[i].Date.Before(tasks[j].Date)
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *MemStore) ListTasksByDate(ctx context.Context, userID string, date model.Date) ([]model.Task, error) {
	all, err := s.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	var tasks []model.Task
	for _, t := range all {
		if t.Date == date {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (s *MemStore) UpdateTask(_ context.Context, userID, taskID string, patch model.TaskPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpdateIDs[taskID] {
		return fmt.Errorf("simulated update failure for %s", taskID)
	}
	task, ok := s.tasks[userID][taskID]
	if !ok {
		return ErrNotFound
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Category != nil {
		task.Category = *patch.Category
	}
	if patch.Tags != nil {
		task.Tags = *patch.Tags
	}
	if patch.Date != nil {
		task.Date = *patch.Date
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	s.tasks[userID][taskID] = task
	return nil
}

func (s *MemStore) DeleteTask(_ context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[userID][taskID]; !ok {
		return ErrNotFound
	}
	delete(s.tasks[userID], taskID)
	return nil
}

func (s *MemStore) CreateGoal(_ context.Context, goal model.Goal) (model.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	goal.ID = uuid.NewString()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	if s.goals[goal.UserID] == nil {
		s.goals[goal.UserID] = make(map[string]model.Goal)
	}
	s.goals[goal.UserID][goal.ID] = goal
	return goal, nil
}

func (s *MemStore) ListGoals(_ context.Context, userID string) ([]model.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var goals []model.Goal
	for _, g := range s.goals[userID] {
		goals = append(goals, g)
	}
	sort.SliceStable(goals, func(i, j int) bool {
		return goals[i].CreatedAt.After(goals[j].CreatedAt)
	})
	return goals, nil
}

func (s *MemStore) UpdateGoal(_ context.Context, goal model.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.goals[goal.UserID][goal.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = goal.Title
	existing.Description = goal.Description
	existing.Active = goal.Active
	s.goals[goal.UserID][goal.ID] = existing
	return nil
}

func (s *MemStore) DeleteGoal(_ context.Context, userID, goalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[userID][goalID]; !ok {
		return ErrNotFound
	}
	delete(s.goals[userID], goalID)
	return nil
}

func (s *MemStore) SaveDailyEntry(_ context.Context, entry model.DailyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.daily[entry.UserID] == nil {
		s.daily[entry.UserID] = make(map[model.Date]model.DailyEntry)
	}
	s.daily[entry.UserID][entry.Date] = entry
	return nil
}

func (s *MemStore) GetDailyEntry(_ context.Context, userID string, date model.Date) (model.DailyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.daily[userID][date]
	if !ok {
		return model.DailyEntry{}, ErrNotFound
	}
	return entry, nil
}

func (s *MemStore) ListDailyEntries(_ context.Context, userID string, start, end model.Date) ([]model.DailyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []model.DailyEntry
	for _, e := range s.daily[userID] {
		if !start.IsZero() && e.Date.Before(start) {
			continue
		}
		if !end.IsZero() && end.Before(e.Date) {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[j].Date.Before(entries[i].Date)
	})
	return entries, nil
}

func (s *MemStore) SaveWeeklyEntry(_ context.Context, entry model.WeeklyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.weekly[entry.UserID] == nil {
		s.weekly[entry.UserID] = make(map[model.Date]model.WeeklyEntry)
	}
	s.weekly[entry.UserID][entry.WeekStart] = entry
	return nil
}

func (s *MemStore) GetWeeklyEntry(_ context.Context, userID string, weekStart model.Date) (model.WeeklyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.weekly[userID][weekStart]
	if !ok {
		return model.WeeklyEntry{}, ErrNotFound
	}
	return entry, nil
}

func (s *MemStore) ListWeeklyEntries(_ context.Context, userID string) ([]model.WeeklyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []model.WeeklyEntry
	for _, e := range s.weekly[userID] {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[j].WeekStart.Before(entries[i].WeekStart)
	})
	return entries, nil
}

func (s *MemStore) CreateWeeklyAnalysis(_ context.Context, analysis model.WeeklyAnalysis) (model.WeeklyAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	analysis.ID = uuid.NewString()
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}
	s.analyses[analysis.UserID] = append(s.analyses[analysis.UserID], analysis)
	return analysis, nil
}

func (s *MemStore) ListWeeklyAnalyses(_ context.Context, userID string) ([]model.WeeklyAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	analyses := make([]model.WeeklyAnalysis, len(s.analyses[userID]))
	copy(analyses, s.analyses[userID])
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})
	return analyses, nil
}

func (s *MemStore) ClearUserData(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, userID)
	delete(s.goals, userID)
	delete(s.daily, userID)
	delete(s.weekly, userID)
	delete(s.analyses, userID)
	return nil
}
