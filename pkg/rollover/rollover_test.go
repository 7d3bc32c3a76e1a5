package rollover

import (
	"context"
	"testing"
	"time"

	"github.com/harrisonrobin/daypilot/pkg/model"
	"github.com/harrisonrobin/daypilot/pkg/store"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

// testNow makes 2024-01-03 the canonical today.
var testNow = time.Date(2024, 1, 3, 6, 30, 0, 0, time.UTC)

func newSweeper(t *testing.T) (*Sweeper, *store.MemStore) {
	t.Helper()
	clock, err := timezone.NewFixed(timezone.DefaultZone, testNow)
	if err != nil {
		t.Fatalf("NewFixed failed: %v", err)
	}
	st := store.NewMemStore()
	return NewSweeper(st, clock), st
}

func mkTask(t *testing.T, st *store.MemStore, date model.Date, completed bool) model.Task {
	t.Helper()
	task, err := st.CreateTask(context.Background(), model.Task{
		UserID:    "u1",
		Title:     string(date),
		Date:      date,
		Completed: completed,
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	return task
}

func TestRolloverMovesOverdueToToday(t *testing.T) {
	sweeper, st := newSweeper(t)
	ctx := context.Background()

	overdue := mkTask(t, st, model.Date("2024-01-01"), false)
	today := mkTask(t, st, model.Date("2024-01-03"), false)

	rolled, err := sweeper.RolloverIncomplete(ctx, "u1")
	if err != nil {
		t.Fatalf("RolloverIncomplete failed: %v", err)
	}
	if rolled != 1 {
		t.Errorf("rolled = %d, want 1", rolled)
	}

	got, _ := st.GetTask(ctx, "u1", overdue.ID)
	if got.Date != model.Date("2024-01-03") {
		t.Errorf("overdue task date = %s, want 2024-01-03", got.Date)
	}
	got, _ = st.GetTask(ctx, "u1", today.ID)
	if got.Date != model.Date("2024-01-03") {
		t.Errorf("today's task was touched: %s", got.Date)
	}
}

func TestRolloverLeavesCompletedAndFutureAlone(t *testing.T) {
	sweeper, st := newSweeper(t)
	ctx := context.Background()

	done := mkTask(t, st, model.Date("2023-12-20"), true)
	future := mkTask(t, st, model.Date("2024-01-10"), false)

	rolled, err := sweeper.RolloverIncomplete(ctx, "u1")
	if err != nil {
		t.Fatalf("RolloverIncomplete failed: %v", err)
	}
	if rolled != 0 {
		t.Errorf("rolled = %d, want 0", rolled)
	}

	got, _ := st.GetTask(ctx, "u1", done.ID)
	if got.Date != model.Date("2023-12-20") {
		t.Error("completed task should never roll forward")
	}
	got, _ = st.GetTask(ctx, "u1", future.ID)
	if got.Date != model.Date("2024-01-10") {
		t.Error("future task should never roll forward")
	}
}

func TestRolloverPostconditionNoOverdueLeft(t *testing.T) {
	sweeper, st := newSweeper(t)
	ctx := context.Background()

	for _, date := range []model.Date{"2023-12-01", "2024-01-01", "2024-01-02"} {
		mkTask(t, st, date, false)
	}

	if _, err := sweeper.RolloverIncomplete(ctx, "u1"); err != nil {
		t.Fatalf("RolloverIncomplete failed: %v", err)
	}

	tasks, _ := st.ListTasks(ctx, "u1")
	for _, task := range tasks {
		if !task.Completed && task.Date.Before(model.Date("2024-01-03")) {
			t.Errorf("task %q still overdue at %s", task.Title, task.Date)
		}
	}

	// The steady state: a second run finds nothing.
	rolled, err := sweeper.RolloverIncomplete(ctx, "u1")
	if err != nil {
		t.Fatalf("second RolloverIncomplete failed: %v", err)
	}
	if rolled != 0 {
		t.Errorf("second run rolled %d tasks, want 0", rolled)
	}
}

func TestRolloverAppliesRegardlessOfOrigin(t *testing.T) {
	sweeper, st := newSweeper(t)
	ctx := context.Background()

	end := testNow.Add(-48 * time.Hour)
	fromCalendar, err := st.CreateTask(ctx, model.Task{
		UserID: "u1", Title: "old meeting", Date: model.Date("2024-01-01"),
		FromCalendar: true, CalendarEventID: "E1", EventEnd: &end,
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if _, err := sweeper.RolloverIncomplete(ctx, "u1"); err != nil {
		t.Fatalf("RolloverIncomplete failed: %v", err)
	}
	got, _ := st.GetTask(ctx, "u1", fromCalendar.ID)
	if got.Date != model.Date("2024-01-03") {
		t.Error("calendar-origin tasks must roll forward like any other")
	}
}

func TestRolloverPartialFailure(t *testing.T) {
	sweeper, st := newSweeper(t)
	ctx := context.Background()

	bad := mkTask(t, st, model.Date("2024-01-01"), false)
	good := mkTask(t, st, model.Date("2024-01-02"), false)
	st.FailUpdateIDs = map[string]bool{bad.ID: true}

	rolled, err := sweeper.RolloverIncomplete(ctx, "u1")
	if err == nil {
		t.Error("expected the failure to be reported")
	}
	if rolled != 1 {
		t.Errorf("rolled = %d, want 1 (successes are not rolled back)", rolled)
	}
	got, _ := st.GetTask(ctx, "u1", good.ID)
	if got.Date != model.Date("2024-01-03") {
		t.Error("healthy task should have rolled despite the sibling failure")
	}
}
