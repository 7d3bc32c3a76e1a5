// Package sync reconciles external calendar events into the task list: one
// task per new event, deduplicated through a persisted per-user set of
// already-imported event identifiers, auto-completed once the underlying
// event has ended.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harrisonrobin/daypilot/pkg/gcal"
	"github.com/harrisonrobin/daypilot/pkg/model"
	"github.com/harrisonrobin/daypilot/pkg/state"
	"github.com/harrisonrobin/daypilot/pkg/store"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

// calendarCategory is the category imported events land in; the user can
// re-categorize afterwards.
const calendarCategory = "Work"

// titlePrefix marks imported tasks in the task list.
const titlePrefix = "📅 "

// EventSource fetches a user's external events for a time window. pkg/gcal
// is the production implementation.
type EventSource interface {
	EventsForDay(ctx context.Context, account model.ConnectedAccount, start, end time.Time) ([]gcal.Event, error)
}

// Result is the outcome of syncing one account.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// AllResult is the aggregate outcome across every connected account.
type AllResult struct {
	TotalCreated int `json:"totalCreated"`
	TotalFailed  int `json:"totalFailed"`
}

// AutoResult reports whether the once-per-day auto-sync actually ran.
type AutoResult struct {
	Ran          bool `json:"ran"`
	TotalCreated int `json:"totalCreated"`
	TotalFailed  int `json:"totalFailed"`
}

// Engine is the reconciliation engine. One Engine serves all users; a
// per-user mutex serializes the read-dedup-set, create-tasks, persist
// critical section so two concurrent passes cannot import the same event
// twice.
type Engine struct {
	store  store.Store
	users  *state.Users
	clock  *timezone.Clock
	events EventSource
	locks  sync.Map // userID -> *sync.Mutex
}

func NewEngine(st store.Store, users *state.Users, clock *timezone.Clock, events EventSource) *Engine {
	return &Engine{store: st, users: users, clock: clock, events: events}
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// SyncAccount imports today's events from one account. A fetch failure
// propagates and leaves all prior state untouched; a single event's creation
// failure is counted and never aborts the batch. Re-running with the same
// provider response is idempotent: the dedup set guarantees no event
// identifier ever produces a second task.
func (e *Engine) SyncAccount(ctx context.Context, userID string, account model.ConnectedAccount) (Result, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()
	return e.syncAccountLocked(ctx, userID, account)
}

func (e *Engine) syncAccountLocked(ctx context.Context, userID string, account model.ConnectedAccount) (Result, error) {
	var res Result
	today := model.Date(e.clock.Today())
	start, end := e.clock.DayBounds()

	events, err := e.events.EventsForDay(ctx, account, start, end)
	if err != nil {
		return res, err
	}

	synced, err := e.users.SyncedEventIDs(userID)
	if err != nil {
		return res, err
	}

	for _, ev := range events {
		switch {
		case synced[ev.ID]:
			res.Skipped++
			continue
		case ev.Title == "":
			res.Skipped++
			continue
		case ev.Start.IsZero() && ev.End.IsZero():
			res.Skipped++
			continue
		}

		task := model.Task{
			UserID:          userID,
			Title:           titlePrefix + ev.Title,
			Category:        calendarCategory,
			Date:            today,
			Completed:       e.clock.HasPassed(ev.End),
			FromCalendar:    true,
			CalendarEventID: ev.ID,
		}
		if !ev.End.IsZero() {
			end := ev.End
			task.EventEnd = &end
		}

		if _, err := e.store.CreateTask(ctx, task); err != nil {
			log.Error("failed to create task for event", "event", ev.ID, "title", ev.Title, "err", err)
			res.Failed++
			continue
		}
		synced[ev.ID] = true
		res.Created++
	}

	if err := e.users.SaveSyncedEventIDs(userID, synced); err != nil {
		return res, err
	}
	if err := e.users.SetLastSyncDate(userID, today.String()); err != nil {
		return res, err
	}
	return res, nil
}

// SyncAllAccounts runs SyncAccount for every connected account. One
// account's failure never prevents attempting the others; it is counted
// into the aggregate instead.
func (e *Engine) SyncAllAccounts(ctx context.Context, userID string, accounts []model.ConnectedAccount) AllResult {
	var all AllResult
	for _, account := range accounts {
		res, err := e.SyncAccount(ctx, userID, account)
		if err != nil {
			log.Error("failed to sync account", "account", account.Email, "err", err)
			all.TotalFailed++
			continue
		}
		all.TotalCreated += res.Created
		all.TotalFailed += res.Failed
	}
	return all
}

// AutoSyncIfNeeded runs the daily sync at most once per canonical day: a
// no-op when the last-sync marker already reads today.
func (e *Engine) AutoSyncIfNeeded(ctx context.Context, userID string, accounts []model.ConnectedAccount) (AutoResult, error) {
	last, err := e.users.LastSyncDate(userID)
	if err != nil {
		return AutoResult{}, err
	}
	if last == e.clock.Today() {
		return AutoResult{Ran: false}, nil
	}

	all := e.SyncAllAccounts(ctx, userID, accounts)
	return AutoResult{Ran: true, TotalCreated: all.TotalCreated, TotalFailed: all.TotalFailed}, nil
}

// AutoCompleteExpired marks calendar-origin tasks completed once their
// event's end has passed. Tasks without an end timestamp and non-calendar
// tasks are never touched, and one update failure never blocks the rest.
// Completion is one-way from this engine; only a manual toggle brings a
// task back.
func (e *Engine) AutoCompleteExpired(ctx context.Context, userID string) (int, error) {
	tasks, err := e.store.ListTasks(ctx, userID)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, task := range tasks {
		if !task.FromCalendar || task.Completed || task.EventEnd == nil {
			continue
		}
		if !e.clock.HasPassed(*task.EventEnd) {
			continue
		}
		done := true
		if err := e.store.UpdateTask(ctx, userID, task.ID, model.TaskPatch{Completed: &done}); err != nil {
			log.Error("failed to auto-complete task", "task", task.ID, "err", err)
			continue
		}
		completed++
	}
	return completed, nil
}
