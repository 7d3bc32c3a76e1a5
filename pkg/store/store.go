package store

import (
	"context"
	"errors"

	"github.com/harrisonrobin/daypilot/pkg/model"
)

// ErrNotFound is returned when a point read or targeted update misses.
var ErrNotFound = errors.New("record not found")

// Store is the document store the application persists user records in.
// Every record belongs to exactly one user; no record is shared across users.
type Store interface {
	// Lifecycle
	Init() error
	Close() error

	// Tasks. CreateTask assigns the record ID and creation timestamp.
	// ListTasks orders by date ascending, then creation time descending
	// (newest first within a day).
	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (model.Task, error)
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	ListTasksByDate(ctx context.Context, userID string, date model.Date) ([]model.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, patch model.TaskPatch) error
	DeleteTask(ctx context.Context, userID, taskID string) error

	// Goals
	CreateGoal(ctx context.Context, goal model.Goal) (model.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]model.Goal, error)
	UpdateGoal(ctx context.Context, goal model.Goal) error
	DeleteGoal(ctx context.Context, userID, goalID string) error

	// Daily entries, keyed by civil date.
	SaveDailyEntry(ctx context.Context, entry model.DailyEntry) error
	GetDailyEntry(ctx context.Context, userID string, date model.Date) (model.DailyEntry, error)
	ListDailyEntries(ctx context.Context, userID string, start, end model.Date) ([]model.DailyEntry, error)

	// Weekly entries, keyed by week start date.
	SaveWeeklyEntry(ctx context.Context, entry model.WeeklyEntry) error
	GetWeeklyEntry(ctx context.Context, userID string, weekStart model.Date) (model.WeeklyEntry, error)
	ListWeeklyEntries(ctx context.Context, userID string) ([]model.WeeklyEntry, error)

	// Weekly analyses
	CreateWeeklyAnalysis(ctx context.Context, analysis model.WeeklyAnalysis) (model.WeeklyAnalysis, error)
	ListWeeklyAnalyses(ctx context.Context, userID string) ([]model.WeeklyAnalysis, error)

	// ClearUserData bulk-deletes every record the user owns.
	ClearUserData(ctx context.Context, userID string) error
}
