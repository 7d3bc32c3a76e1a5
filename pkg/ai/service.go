package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harrisonrobin/daypilot/pkg/category"
	"github.com/harrisonrobin/daypilot/pkg/model"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

// ParsedTask is one task extracted from a free-text note.
type ParsedTask struct {
	Title    string     `json:"title"`
	Category string     `json:"category"`
	Tags     []string   `json:"tags,omitempty"`
	Date     model.Date `json:"date"`
}

// Service wraps a Generator with the note-parsing, category-generation, and
// weekly-analysis contracts. Every operation has a deterministic local
// fallback: a provider or parse failure is logged and recovered, never
// surfaced as fatal. Only a missing credential propagates, and it does so
// before any network call.
type Service struct {
	gen   Generator
	clock *timezone.Clock
}

func NewService(gen Generator, clock *timezone.Clock) *Service {
	return &Service{gen: gen, clock: clock}
}

// ParseNote turns a free-text note into one or more tasks. On any provider
// or extraction failure the note itself becomes a single task with a guessed
// category and today's date.
func (s *Service) ParseNote(ctx context.Context, note string, categories []string) ([]ParsedTask, error) {
	today := model.Date(s.clock.Today())
	fallback := []ParsedTask{{
		Title:    note,
		Category: category.Guess(note, categories),
		Date:     today,
	}}

	prompt := fmt.Sprintf(`You are a task parsing assistant. Analyze the note and split it into tasks, assigning the most relevant category.

Available categories: %s

Rules:
1. Assign the MOST RELEVANT category from the available categories above.
2. Date: if not mentioned, use today (%s). Parse "tomorrow", "next week", etc. to ISO format.
3. Return ONLY a valid JSON array, no markdown.

Note: %q

Return format:
[{"title": "Task title", "category": "MostRelevantCategory", "date": "YYYY-MM-DD"}]`,
		strings.Join(categories, ", "), today, note)

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil, err
		}
		log.Warn("note parsing failed, falling back to verbatim task", "err", err)
		return fallback, nil
	}

	raw, err := ExtractJSONArray(text)
	if err != nil {
		log.Warn("provider response contained no task array", "err", err)
		return fallback, nil
	}

	var tasks []ParsedTask
	if err := json.Unmarshal(raw, &tasks); err != nil || len(tasks) == 0 {
		log.Warn("provider task array did not decode", "err", err)
		return fallback, nil
	}

	// Sanitize: a missing title falls back to the note, an unknown category
	// to a guess, a missing date to today.
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}
	for i := range tasks {
		if tasks[i].Title == "" {
			tasks[i].Title = note
		}
		if !known[tasks[i].Category] {
			tasks[i].Category = category.Guess(tasks[i].Title, categories)
		}
		if tasks[i].Date.IsZero() {
			tasks[i].Date = today
		}
	}
	return tasks, nil
}

// GenerateCategories derives 5-10 category names from the user's calendar
// events, task titles, and goals. On failure it returns the fixed fallback
// list.
func (s *Service) GenerateCategories(ctx context.Context, eventTitles, taskTitles []string, goals []model.Goal) ([]string, error) {
	var goalLines []string
	for _, g := range goals {
		goalLines = append(goalLines, fmt.Sprintf("%s - %s", g.Title, g.Description))
	}

	prompt := fmt.Sprintf(`You are a categorization assistant. Analyze the user's work data and generate 5-10 relevant work categories.

CALENDAR EVENTS:
%s

TASKS:
%s

GOALS:
%s

Rules:
1. Categories should be broad enough to group multiple tasks but specific enough to be meaningful.
2. Use professional, clear category names (1-2 words each).
3. Return ONLY a JSON array of category names, nothing else.

Example output format:
["Product", "Engineering", "Fundraising", "Marketing"]`,
		numberedList(eventTitles), numberedList(taskTitles), numberedList(goalLines))

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil, err
		}
		log.Warn("category generation failed, using fallback list", "err", err)
		return category.Fallback, nil
	}

	raw, err := ExtractJSONArray(text)
	if err != nil {
		log.Warn("provider response contained no category array", "err", err)
		return category.Fallback, nil
	}
	var cats []string
	if err := json.Unmarshal(raw, &cats); err != nil || len(cats) == 0 {
		log.Warn("provider category array did not decode", "err", err)
		return category.Fallback, nil
	}
	return cats, nil
}

// AnalyzeWeek reviews a week's completed tasks against one goal. On failure
// it returns a fixed encouraging message rather than an error.
func (s *Service) AnalyzeWeek(ctx context.Context, goal model.Goal, completedTitles []string) (string, error) {
	prompt := fmt.Sprintf(`You are a productivity coach analyzing weekly progress.

Goal: %s
Description: %s

Tasks completed this week:
%s

Provide a brief analysis (2-3 sentences) on:
1. Are these tasks aligned with the goal?
2. What's going well?
3. What should be the focus for next week?

Keep it motivating and actionable.`,
		goal.Title, goal.Description, numberedList(completedTitles))

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return "", err
		}
		log.Warn("weekly analysis failed, using fallback message", "err", err)
		return "Unable to generate analysis at this time. Keep up the great work!", nil
	}
	return text, nil
}

func numberedList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	const limit = 50
	if len(items) > limit {
		items = items[:limit]
	}
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(b.String(), "\n")
}
