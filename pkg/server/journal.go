package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/daypilot/pkg/ai"
	"github.com/harrisonrobin/daypilot/pkg/model"
	"github.com/harrisonrobin/daypilot/pkg/store"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

func (s *Server) handleListGoals(c *gin.Context) {
	goals, err := s.store.ListGoals(c.Request.Context(), s.userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Active      bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	goal, err := s.store.CreateGoal(c.Request.Context(), model.Goal{
		UserID:      s.userID(c),
		Title:       req.Title,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (s *Server) handleUpdateGoal(c *gin.Context) {
	var goal model.Goal
	if err := c.ShouldBindJSON(&goal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	goal.ID = c.Param("id")
	goal.UserID = s.userID(c)

	err := s.store.UpdateGoal(c.Request.Context(), goal)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "goal not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) handleDeleteGoal(c *gin.Context) {
	err := s.store.DeleteGoal(c.Request.Context(), s.userID(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "goal not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListDays(c *gin.Context) {
	start, err := model.ParseDate(c.DefaultQuery("start", "0001-01-01"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end, err := model.ParseDate(c.DefaultQuery("end", "9999-12-31"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.store.ListDailyEntries(c.Request.Context(), s.userID(c), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleGetDay(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := s.store.GetDailyEntry(c.Request.Context(), s.userID(c), date)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no entry for that date"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleSaveDay(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var entry model.DailyEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry.UserID = s.userID(c)
	entry.Date = date

	if err := s.store.SaveDailyEntry(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleListWeeks(c *gin.Context) {
	entries, err := s.store.ListWeeklyEntries(c.Request.Context(), s.userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleGetWeek(c *gin.Context) {
	weekStart, err := model.ParseDate(c.Param("weekStart"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := s.store.GetWeeklyEntry(c.Request.Context(), s.userID(c), weekStart)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no entry for that week"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleSaveWeek(c *gin.Context) {
	weekStart, err := model.ParseDate(c.Param("weekStart"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var entry model.WeeklyEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry.UserID = s.userID(c)
	entry.WeekStart = weekStart

	if err := s.store.SaveWeeklyEntry(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	analyses, err := s.store.ListWeeklyAnalyses(c.Request.Context(), s.userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analyses)
}

// handleCreateAnalysis reviews one week's completed tasks against a goal and
// stores the generated write-up.
func (s *Server) handleCreateAnalysis(c *gin.Context) {
	var req struct {
		GoalID    string `json:"goalId"`
		WeekStart string `json:"weekStart"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	weekStart, err := model.ParseDate(req.WeekStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := s.userID(c)
	goals, err := s.store.ListGoals(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var goal *model.Goal
	for i := range goals {
		if goals[i].ID == req.GoalID {
			goal = &goals[i]
			break
		}
	}
	if goal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "goal not found"})
		return
	}

	titles, err := s.completedTitlesForWeek(c, userID, weekStart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	text, err := s.ai.AnalyzeWeek(c.Request.Context(), *goal, titles)
	if errors.Is(err, ai.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generative provider is not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	analysis, err := s.store.CreateWeeklyAnalysis(c.Request.Context(), model.WeeklyAnalysis{
		UserID:        userID,
		WeekStart:     weekStart,
		GoalID:        goal.ID,
		GoalTitle:     goal.Title,
		Analysis:      text,
		TasksReviewed: len(titles),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, analysis)
}

func (s *Server) completedTitlesForWeek(c *gin.Context, userID string, weekStart model.Date) ([]string, error) {
	start, err := time.Parse(timezone.DateLayout, string(weekStart))
	if err != nil {
		return nil, err
	}
	weekEnd := model.NewDate(start.AddDate(0, 0, 7))

	tasks, err := s.store.ListTasks(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}

	var titles []string
	for _, t := range tasks {
		if t.Completed && !t.Date.Before(weekStart) && t.Date.Before(weekEnd) {
			titles = append(titles, t.Title)
		}
	}
	return titles, nil
}
