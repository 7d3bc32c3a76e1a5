package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/harrisonrobin/daypilot/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	date TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	from_calendar INTEGER NOT NULL DEFAULT 0,
	calendar_event_id TEXT NOT NULL DEFAULT '',
	event_end TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_date ON tasks(user_id, date);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_calendar_event
	ON tasks(user_id, calendar_event_id) WHERE from_calendar = 1;

CREATE TABLE IF NOT EXISTS goals (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);

CREATE TABLE IF NOT EXISTS daily_entries (
	user_id TEXT NOT NULL,
	date TEXT NOT NULL,
	completed_categories TEXT NOT NULL DEFAULT '[]',
	progress_percent REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, date)
);

CREATE TABLE IF NOT EXISTS weekly_entries (
	user_id TEXT NOT NULL,
	week_start TEXT NOT NULL,
	category_progress TEXT NOT NULL DEFAULT '{}',
	overall_progress REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, week_start)
);

CREATE TABLE IF NOT EXISTS weekly_analyses (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	week_start TEXT NOT NULL,
	goal_id TEXT NOT NULL,
	goal_title TEXT NOT NULL,
	analysis TEXT NOT NULL,
	tasks_reviewed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_weekly_analyses_user ON weekly_analyses(user_id);
`

// SQLiteStore is the production Store backed by a single SQLite database
// file.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// NewSQLiteStore creates a store rooted at the given database path. Init
// must be called before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func encodeJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// Tasks

func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	task.ID = uuid.NewString()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	var eventEnd sql.NullString
	if task.EventEnd != nil {
		eventEnd = sql.NullString{String: encodeTime(*task.EventEnd), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, category, tags, date, completed,
			from_calendar, calendar_event_id, event_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Category, encodeJSON(task.Tags),
		task.Date.String(), task.Completed, task.FromCalendar,
		task.CalendarEventID, eventEnd, encodeTime(task.CreatedAt))
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) scanTask(row interface {
	Scan(dest ...interface{}) error
}) (model.Task, error) {
	var t model.Task
	var tags, date, createdAt string
	var eventEnd sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Category, &tags, &date,
		&t.Completed, &t.FromCalendar, &t.CalendarEventID, &eventEnd, &createdAt); err != nil {
		return model.Task{}, err
	}
	t.Date = model.Date(date)
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return model.Task{}, fmt.Errorf("failed to decode task tags: %w", err)
	}
	created, err := decodeTime(createdAt)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to decode task created_at: %w", err)
	}
	t.CreatedAt = created
	if eventEnd.Valid {
		end, err := decodeTime(eventEnd.String)
		if err != nil {
			return model.Task{}, fmt.Errorf("failed to decode task event_end: %w", err)
		}
		t.EventEnd = &end
	}
	return t, nil
}

const taskColumns = `id, user_id, title, category, tags, date, completed,
	from_calendar, calendar_event_id, event_end, created_at`

func (s *SQLiteStore) GetTask(ctx context.Context, userID, taskID string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?`, userID, taskID)
	task, err := s.scanTask(row)
	if err == sql.ErrNoRows {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to read task: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) listTasks(ctx context.Context, query string, args ...interface{}) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ?
		 ORDER BY date ASC, created_at DESC`, userID)
}

func (s *SQLiteStore) ListTasksByDate(ctx context.Context, userID string, date model.Date) ([]model.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND date = ?
		 ORDER BY created_at DESC`, userID, date.String())
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, userID, taskID string, patch model.TaskPatch) error {
	var sets []string
	var args []interface{}
	if patch.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *patch.Title)
	}
	if patch.Category != nil {
		sets, args = append(sets, "category = ?"), append(args, *patch.Category)
	}
	if patch.Tags != nil {
		sets, args = append(sets, "tags = ?"), append(args, encodeJSON(*patch.Tags))
	}
	if patch.Date != nil {
		sets, args = append(sets, "date = ?"), append(args, patch.Date.String())
	}
	if patch.Completed != nil {
		sets, args = append(sets, "completed = ?"), append(args, *patch.Completed)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, userID, taskID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Goals

func (s *SQLiteStore) CreateGoal(ctx context.Context, goal model.Goal) (model.Goal, error) {
	goal.ID = uuid.NewString()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, description, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.UserID, goal.Title, goal.Description, goal.Active, encodeTime(goal.CreatedAt))
	if err != nil {
		return model.Goal{}, fmt.Errorf("failed to create goal: %w", err)
	}
	return goal, nil
}

func (s *SQLiteStore) ListGoals(ctx context.Context, userID string) ([]model.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, active, created_at
		FROM goals WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		var g model.Goal
		var createdAt string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		if g.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to decode goal created_at: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *SQLiteStore) UpdateGoal(ctx context.Context, goal model.Goal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE goals SET title = ?, description = ?, active = ?
		WHERE user_id = ? AND id = ?`,
		goal.Title, goal.Description, goal.Active, goal.UserID, goal.ID)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteGoal(ctx context.Context, userID, goalID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM goals WHERE user_id = ? AND id = ?`, userID, goalID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Daily entries

func (s *SQLiteStore) SaveDailyEntry(ctx context.Context, entry model.DailyEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_entries (user_id, date, completed_categories, progress_percent)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			completed_categories = excluded.completed_categories,
			progress_percent = excluded.progress_percent`,
		entry.UserID, entry.Date.String(), encodeJSON(entry.CompletedCategories), entry.ProgressPercent)
	if err != nil {
		return fmt.Errorf("failed to save daily entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDailyEntry(ctx context.Context, userID string, date model.Date) (model.DailyEntry, error) {
	var e model.DailyEntry
	var d, categories string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, date, completed_categories, progress_percent
		FROM daily_entries WHERE user_id = ? AND date = ?`,
		userID, date.String()).Scan(&e.UserID, &d, &categories, &e.ProgressPercent)
	if err == sql.ErrNoRows {
		return model.DailyEntry{}, ErrNotFound
	}
	if err != nil {
		return model.DailyEntry{}, fmt.Errorf("failed to read daily entry: %w", err)
	}
	e.Date = model.Date(d)
	if err := json.Unmarshal([]byte(categories), &e.CompletedCategories); err != nil {
		return model.DailyEntry{}, fmt.Errorf("failed to decode daily entry: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListDailyEntries(ctx context.Context, userID string, start, end model.Date) ([]model.DailyEntry, error) {
	query := `SELECT user_id, date, completed_categories, progress_percent
		FROM daily_entries WHERE user_id = ?`
	args := []interface{}{userID}
	if !start.IsZero() && !end.IsZero() {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, start.String(), end.String())
	}
	query += ` ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily entries: %w", err)
	}
	defer rows.Close()

	var entries []model.DailyEntry
	for rows.Next() {
		var e model.DailyEntry
		var d, categories string
		if err := rows.Scan(&e.UserID, &d, &categories, &e.ProgressPercent); err != nil {
			return nil, fmt.Errorf("failed to scan daily entry: %w", err)
		}
		e.Date = model.Date(d)
		if err := json.Unmarshal([]byte(categories), &e.CompletedCategories); err != nil {
			return nil, fmt.Errorf("failed to decode daily entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Weekly entries

func (s *SQLiteStore) SaveWeeklyEntry(ctx context.Context, entry model.WeeklyEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weekly_entries (user_id, week_start, category_progress, overall_progress)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, week_start) DO UPDATE SET
			category_progress = excluded.category_progress,
			overall_progress = excluded.overall_progress`,
		entry.UserID, entry.WeekStart.String(), encodeJSON(entry.Categories), entry.OverallProgress)
	if err != nil {
		return fmt.Errorf("failed to save weekly entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetWeeklyEntry(ctx context.Context, userID string, weekStart model.Date) (model.WeeklyEntry, error) {
	var e model.WeeklyEntry
	var ws, progress string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, week_start, category_progress, overall_progress
		FROM weekly_entries WHERE user_id = ? AND week_start = ?`,
		userID, weekStart.String()).Scan(&e.UserID, &ws, &progress, &e.OverallProgress)
	if err == sql.ErrNoRows {
		return model.WeeklyEntry{}, ErrNotFound
	}
	if err != nil {
		return model.WeeklyEntry{}, fmt.Errorf("failed to read weekly entry: %w", err)
	}
	e.WeekStart = model.Date(ws)
	if err := json.Unmarshal([]byte(progress), &e.Categories); err != nil {
		return model.WeeklyEntry{}, fmt.Errorf("failed to decode weekly entry: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListWeeklyEntries(ctx context.Context, userID string) ([]model.WeeklyEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, week_start, category_progress, overall_progress
		FROM weekly_entries WHERE user_id = ? ORDER BY week_start DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly entries: %w", err)
	}
	defer rows.Close()

	var entries []model.WeeklyEntry
	for rows.Next() {
		var e model.WeeklyEntry
		var ws, progress string
		if err := rows.Scan(&e.UserID, &ws, &progress, &e.OverallProgress); err != nil {
			return nil, fmt.Errorf("failed to scan weekly entry: %w", err)
		}
		e.WeekStart = model.Date(ws)
		if err := json.Unmarshal([]byte(progress), &e.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode weekly entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Weekly analyses

func (s *SQLiteStore) CreateWeeklyAnalysis(ctx context.Context, analysis model.WeeklyAnalysis) (model.WeeklyAnalysis, error) {
	analysis.ID = uuid.NewString()
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weekly_analyses (id, user_id, week_start, goal_id, goal_title,
			analysis, tasks_reviewed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID, analysis.UserID, analysis.WeekStart.String(), analysis.GoalID,
		analysis.GoalTitle, analysis.Analysis, analysis.TasksReviewed, encodeTime(analysis.CreatedAt))
	if err != nil {
		return model.WeeklyAnalysis{}, fmt.Errorf("failed to create weekly analysis: %w", err)
	}
	return analysis, nil
}

func (s *SQLiteStore) ListWeeklyAnalyses(ctx context.Context, userID string) ([]model.WeeklyAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, week_start, goal_id, goal_title, analysis, tasks_reviewed, created_at
		FROM weekly_analyses WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly analyses: %w", err)
	}
	defer rows.Close()

	var analyses []model.WeeklyAnalysis
	for rows.Next() {
		var a model.WeeklyAnalysis
		var ws, createdAt string
		if err := rows.Scan(&a.ID, &a.UserID, &ws, &a.GoalID, &a.GoalTitle,
			&a.Analysis, &a.TasksReviewed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan weekly analysis: %w", err)
		}
		a.WeekStart = model.Date(ws)
		if a.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to decode weekly analysis created_at: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func (s *SQLiteStore) ClearUserData(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"tasks", "goals", "daily_entries", "weekly_entries", "weekly_analyses"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
