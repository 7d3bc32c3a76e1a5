package model

import "time"

// Task is a single tracked item on a user's day. A task either comes from
// manual entry / note parsing, or is imported from an external calendar
// event, in which case FromCalendar is set and CalendarEventID identifies
// the source event uniquely per user.
type Task struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	Tags            []string   `json:"tags,omitempty"`
	Date            Date       `json:"date"`
	Completed       bool       `json:"completed"`
	FromCalendar    bool       `json:"isFromCalendar,omitempty"`
	CalendarEventID string     `json:"calendarEventId,omitempty"`
	EventEnd        *time.Time `json:"eventEndTime,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title     *string   `json:"title,omitempty"`
	Category  *string   `json:"category,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	Date      *Date     `json:"date,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
}

// Goal is a longer-horizon objective that weekly analyses are run against.
type Goal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Active      bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DailyEntry is the per-day progress summary, keyed by civil date.
type DailyEntry struct {
	UserID              string   `json:"userId"`
	Date                Date     `json:"date"`
	CompletedCategories []string `json:"completedCategories"`
	ProgressPercent     float64  `json:"progressPercent"`
}

// CategoryProgress is one category's slice of a weekly entry.
type CategoryProgress struct {
	Target   int     `json:"target"`
	Achieved int     `json:"achieved"`
	Percent  float64 `json:"percent"`
}

// WeeklyEntry is the per-week progress summary, keyed by the week's starting
// civil date.
type WeeklyEntry struct {
	UserID          string                      `json:"userId"`
	WeekStart       Date                        `json:"weekStart"`
	Categories      map[string]CategoryProgress `json:"categoryProgress"`
	OverallProgress float64                     `json:"overallProgress"`
}

// WeeklyAnalysis is a generated review of a week's completed tasks against
// one goal.
type WeeklyAnalysis struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	WeekStart     Date      `json:"weekStart"`
	GoalID        string    `json:"goalId"`
	GoalTitle     string    `json:"goalTitle"`
	Analysis      string    `json:"analysis"`
	TasksReviewed int       `json:"tasksReviewed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ConnectedAccount is an external calendar account a user has authorized,
// along with the credential needed to query it.
type ConnectedAccount struct {
	Email       string    `json:"email"`
	Token       []byte    `json:"token"` // serialized oauth2 token
	ConnectedAt time.Time `json:"connectedAt"`
}
