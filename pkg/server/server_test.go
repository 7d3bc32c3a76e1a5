package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/daypilot/pkg/ai"
	"github.com/harrisonrobin/daypilot/pkg/auth"
	"github.com/harrisonrobin/daypilot/pkg/gcal"
	"github.com/harrisonrobin/daypilot/pkg/model"
	"github.com/harrisonrobin/daypilot/pkg/rollover"
	"github.com/harrisonrobin/daypilot/pkg/state"
	"github.com/harrisonrobin/daypilot/pkg/store"
	daysync "github.com/harrisonrobin/daypilot/pkg/sync"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

// 12:00 in the reference zone on 2024-01-03.
var testNow = time.Date(2024, 1, 3, 6, 30, 0, 0, time.UTC)

type stubSource struct {
	events []gcal.Event
	err    error
}

func (s *stubSource) EventsForDay(ctx context.Context, account model.ConnectedAccount, start, end time.Time) ([]gcal.Event, error) {
	return s.events, s.err
}

type testEnv struct {
	store  *store.MemStore
	users  *state.Users
	source *stubSource
	gen    func(ctx context.Context, prompt string) (string, error)
	server *Server
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock, err := timezone.NewFixed(timezone.DefaultZone, testNow)
	if err != nil {
		t.Fatalf("failed to build clock: %v", err)
	}

	env := &testEnv{
		store:  store.NewMemStore(),
		users:  state.NewUsers(state.NewMemKV()),
		source: &stubSource{},
	}
	env.gen = func(ctx context.Context, prompt string) (string, error) {
		return "", fmt.Errorf("no generator configured in test")
	}
	gen := ai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return env.gen(ctx, prompt)
	})

	engine := daysync.NewEngine(env.store, env.users, clock, env.source)
	sweeper := rollover.NewSweeper(env.store, clock)
	tokens := auth.NewTokens("test-secret")

	env.server = NewServer(env.store, env.users, clock, engine, sweeper,
		ai.NewService(gen, clock), tokens)

	env.token, err = tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	env.server.Router().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: got status %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	env.server.Router().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: got status %d, want 401", w.Code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{
		"title":    "Write report",
		"category": "Work",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got status %d, want 201: %s", w.Code, w.Body.String())
	}
	task := decode[model.Task](t, w)
	if task.ID == "" {
		t.Fatal("created task has no ID")
	}
	if task.Date != "2024-01-03" {
		t.Errorf("got default date %s, want today 2024-01-03", task.Date)
	}

	w = env.do(t, http.MethodPatch, "/api/tasks/"+task.ID, map[string]interface{}{
		"completed": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: got status %d, want 200: %s", w.Code, w.Body.String())
	}
	if got := decode[model.Task](t, w); !got.Completed {
		t.Error("patched task should be completed")
	}

	w = env.do(t, http.MethodGet, "/api/tasks?date=2024-01-03", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got status %d, want 200", w.Code)
	}
	if tasks := decode[[]model.Task](t, w); len(tasks) != 1 {
		t.Errorf("got %d tasks for today, want 1", len(tasks))
	}

	w = env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: got status %d, want 204", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: got status %d, want 404", w.Code)
	}
}

func TestCreateTaskRejectsEmptyTitle(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{"title": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", w.Code)
	}
}

func TestDashboardRunsHousekeeping(t *testing.T) {
	env := newTestEnv(t)

	// One overdue task that should roll forward, one calendar event to
	// import.
	_, err := env.store.CreateTask(context.Background(), model.Task{
		UserID: "user-1", Title: "Old chore", Category: "Personal", Date: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("seed task failed: %v", err)
	}
	if err := env.users.AddAccount("user-1", model.ConnectedAccount{Email: "a@example.com"}); err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	env.source.events = []gcal.Event{{
		ID:    "ev-1",
		Title: "Standup",
		Start: testNow.Add(time.Hour),
		End:   testNow.Add(2 * time.Hour),
	}}

	w := env.do(t, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}

	resp := decode[struct {
		Date       model.Date   `json:"date"`
		RolledOver int          `json:"rolledOver"`
		Tasks      []model.Task `json:"tasks"`
		AutoSync   struct {
			Ran          bool `json:"ran"`
			TotalCreated int  `json:"totalCreated"`
		} `json:"autoSync"`
	}](t, w)

	if resp.Date != "2024-01-03" {
		t.Errorf("got date %s, want 2024-01-03", resp.Date)
	}
	if resp.RolledOver != 1 {
		t.Errorf("got %d rolled over, want 1", resp.RolledOver)
	}
	if !resp.AutoSync.Ran || resp.AutoSync.TotalCreated != 1 {
		t.Errorf("got autoSync %+v, want ran with 1 created", resp.AutoSync)
	}
	// The rolled-over chore plus the imported event.
	if len(resp.Tasks) != 2 {
		t.Errorf("got %d tasks on today, want 2", len(resp.Tasks))
	}
}

func TestDashboardSurvivesSyncFailure(t *testing.T) {
	env := newTestEnv(t)

	if err := env.users.AddAccount("user-1", model.ConnectedAccount{Email: "a@example.com"}); err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	env.source.err = fmt.Errorf("calendar provider down")

	w := env.do(t, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200 despite sync failure: %s", w.Code, w.Body.String())
	}
}

func TestParseNoteCreatesTasks(t *testing.T) {
	env := newTestEnv(t)
	env.gen = func(ctx context.Context, prompt string) (string, error) {
		return `Sure! [{"title":"Call Bob","category":"Work","date":"2024-01-03"},{"title":"Buy milk","category":"Personal","date":"2024-01-04"}]`, nil
	}

	w := env.do(t, http.MethodPost, "/api/notes", map[string]string{
		"note": "call bob and buy milk tomorrow",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", w.Code, w.Body.String())
	}

	created := decode[[]model.Task](t, w)
	if len(created) != 2 {
		t.Fatalf("got %d created tasks, want 2", len(created))
	}
	if created[0].Title != "Call Bob" || created[1].Title != "Buy milk" {
		t.Errorf("unexpected titles: %q, %q", created[0].Title, created[1].Title)
	}
}

func TestGoalAndAnalysisFlow(t *testing.T) {
	env := newTestEnv(t)
	env.gen = func(ctx context.Context, prompt string) (string, error) {
		return "Solid progress this week.", nil
	}

	w := env.do(t, http.MethodPost, "/api/goals", map[string]interface{}{
		"title": "Ship the project", "isActive": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create goal: got status %d: %s", w.Code, w.Body.String())
	}
	goal := decode[model.Goal](t, w)

	done := true
	task, err := env.store.CreateTask(context.Background(), model.Task{
		UserID: "user-1", Title: "Finish draft", Category: "Work", Date: "2024-01-02",
	})
	if err != nil {
		t.Fatalf("seed task failed: %v", err)
	}
	if err := env.store.UpdateTask(context.Background(), "user-1", task.ID, model.TaskPatch{Completed: &done}); err != nil {
		t.Fatalf("seed complete failed: %v", err)
	}

	w = env.do(t, http.MethodPost, "/api/analyses", map[string]string{
		"goalId": goal.ID, "weekStart": "2024-01-01",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create analysis: got status %d: %s", w.Code, w.Body.String())
	}
	analysis := decode[model.WeeklyAnalysis](t, w)
	if analysis.Analysis != "Solid progress this week." {
		t.Errorf("got analysis %q", analysis.Analysis)
	}
	if analysis.TasksReviewed != 1 {
		t.Errorf("got %d tasks reviewed, want 1", analysis.TasksReviewed)
	}

	w = env.do(t, http.MethodPost, "/api/analyses", map[string]string{
		"goalId": "missing", "weekStart": "2024-01-01",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown goal: got status %d, want 404", w.Code)
	}
}

func TestDailyAndWeeklyEntries(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/days/2024-01-03", map[string]interface{}{
		"completedCategories": []string{"Work"},
		"progressPercent":     50.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save day: got status %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/days/2024-01-03", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get day: got status %d", w.Code)
	}
	entry := decode[model.DailyEntry](t, w)
	if entry.ProgressPercent != 50.0 {
		t.Errorf("got progress %v, want 50", entry.ProgressPercent)
	}

	w = env.do(t, http.MethodGet, "/api/days/2024-01-04", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing day: got status %d, want 404", w.Code)
	}

	w = env.do(t, http.MethodPut, "/api/weeks/2024-01-01", map[string]interface{}{
		"overallProgress": 75.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save week: got status %d: %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/api/weeks", nil)
	if entries := decode[[]model.WeeklyEntry](t, w); len(entries) != 1 {
		t.Errorf("got %d weekly entries, want 1", len(entries))
	}
}

func TestCategoriesMergeAndGenerate(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Gardening"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add category: got status %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/categories", nil)
	resp := decode[struct {
		Categories []string `json:"categories"`
	}](t, w)
	if len(resp.Categories) == 0 || resp.Categories[0] != "Gardening" {
		t.Errorf("custom category should lead the merged list, got %v", resp.Categories)
	}

	calls := 0
	env.gen = func(ctx context.Context, prompt string) (string, error) {
		calls++
		return `["Fitness","Reading"]`, nil
	}

	w = env.do(t, http.MethodPost, "/api/categories/generate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: got status %d: %s", w.Code, w.Body.String())
	}
	gen := decode[struct {
		Categories []string `json:"categories"`
		Cached     bool     `json:"cached"`
	}](t, w)
	if gen.Cached || len(gen.Categories) != 2 {
		t.Errorf("got %+v, want 2 fresh categories", gen)
	}

	// Same day: served from cache, provider untouched.
	w = env.do(t, http.MethodPost, "/api/categories/generate", nil)
	gen = decode[struct {
		Categories []string `json:"categories"`
		Cached     bool     `json:"cached"`
	}](t, w)
	if !gen.Cached {
		t.Error("second generate on the same day should be cached")
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
}

func TestAccountsViewHidesToken(t *testing.T) {
	env := newTestEnv(t)
	if err := env.users.AddAccount("user-1", model.ConnectedAccount{
		Email: "a@example.com",
		Token: []byte(`{"access_token":"secret"}`),
	}); err != nil {
		t.Fatalf("seed account failed: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/accounts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("secret")) {
		t.Error("account listing leaked the stored credential")
	}

	w = env.do(t, http.MethodDelete, "/api/accounts/a@example.com", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("disconnect: got status %d, want 204", w.Code)
	}
	accounts, err := env.users.Accounts("user-1")
	if err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("got %d accounts after disconnect, want 0", len(accounts))
	}
}

func TestManualSync(t *testing.T) {
	env := newTestEnv(t)
	if err := env.users.AddAccount("user-1", model.ConnectedAccount{Email: "a@example.com"}); err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	env.source.events = []gcal.Event{{
		ID:    "ev-1",
		Title: "Planning",
		Start: testNow.Add(time.Hour),
		End:   testNow.Add(2 * time.Hour),
	}}

	w := env.do(t, http.MethodPost, "/api/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}
	result := decode[struct {
		TotalCreated int `json:"totalCreated"`
	}](t, w)
	if result.TotalCreated != 1 {
		t.Errorf("got %d created, want 1", result.TotalCreated)
	}
}

func TestResetWipesEverything(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.store.CreateTask(context.Background(), model.Task{
		UserID: "user-1", Title: "Something", Category: "Work", Date: "2024-01-03",
	}); err != nil {
		t.Fatalf("seed task failed: %v", err)
	}
	if err := env.users.AddCustomCategory("user-1", "Gardening"); err != nil {
		t.Fatalf("seed category failed: %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/reset", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204: %s", w.Code, w.Body.String())
	}

	tasks, err := env.store.ListTasks(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("got %d tasks after reset, want 0", len(tasks))
	}
	cats, err := env.users.CustomCategories("user-1")
	if err != nil {
		t.Fatalf("CustomCategories failed: %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("got %d custom categories after reset, want 0", len(cats))
	}
}
