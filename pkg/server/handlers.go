package server

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/daypilot/pkg/ai"
	"github.com/harrisonrobin/daypilot/pkg/category"
	"github.com/harrisonrobin/daypilot/pkg/model"
	"github.com/harrisonrobin/daypilot/pkg/store"
)

// handleDashboard runs the day-start housekeeping (overdue rollover, the
// once-per-day calendar sync, the expired-event sweep) and returns today's
// tasks. Sync trouble is reported inside the payload so a flaky calendar
// provider never takes the dashboard down.
func (s *Server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	userID := s.userID(c)
	today := model.Date(s.clock.Today())

	resp := gin.H{"date": today}

	rolled, err := s.sweeper.RolloverIncomplete(ctx, userID)
	if err != nil {
		log.Warn("rollover incomplete", "user", userID, "err", err)
		resp["rolloverError"] = err.Error()
	}
	resp["rolledOver"] = rolled

	accounts, err := s.users.Accounts(userID)
	if err != nil {
		resp["syncError"] = err.Error()
	} else if len(accounts) > 0 {
		auto, err := s.engine.AutoSyncIfNeeded(ctx, userID, accounts)
		if err != nil {
			log.Warn("auto-sync failed", "user", userID, "err", err)
			resp["syncError"] = err.Error()
		} else {
			resp["autoSync"] = auto
		}
	}

	completed, err := s.engine.AutoCompleteExpired(ctx, userID)
	if err != nil {
		log.Warn("auto-complete sweep failed", "user", userID, "err", err)
	}
	resp["autoCompleted"] = completed

	tasks, err := s.store.ListTasksByDate(ctx, userID, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp["tasks"] = tasks

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListTasks(c *gin.Context) {
	userID := s.userID(c)

	if raw := c.Query("date"); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tasks, err := s.store.ListTasksByDate(c.Request.Context(), userID, date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tasks)
		return
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req struct {
		Title    string     `json:"title"`
		Category string     `json:"category"`
		Tags     []string   `json:"tags"`
		Date     model.Date `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if req.Date.IsZero() {
		req.Date = model.Date(s.clock.Today())
	}
	if req.Category == "" {
		req.Category = "Other"
	}

	task, err := s.store.CreateTask(c.Request.Context(), model.Task{
		UserID:   s.userID(c),
		Title:    req.Title,
		Category: req.Category,
		Tags:     req.Tags,
		Date:     req.Date,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handlePatchTask(c *gin.Context) {
	var patch model.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.store.UpdateTask(c.Request.Context(), s.userID(c), c.Param("id"), patch)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), s.userID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	err := s.store.DeleteTask(c.Request.Context(), s.userID(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleParseNote feeds a free-text note through the generative provider and
// creates one task per extracted item. A missing provider credential is the
// only hard failure; anything else degrades to a single verbatim task.
func (s *Server) handleParseNote(c *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Note == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "note is required"})
		return
	}

	userID := s.userID(c)
	cats, err := s.mergedCategories(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	parsed, err := s.ai.ParseNote(c.Request.Context(), req.Note, cats)
	if errors.Is(err, ai.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generative provider is not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	created := make([]model.Task, 0, len(parsed))
	for _, p := range parsed {
		task, err := s.store.CreateTask(c.Request.Context(), model.Task{
			UserID:   userID,
			Title:    p.Title,
			Category: p.Category,
			Tags:     p.Tags,
			Date:     p.Date,
		})
		if err != nil {
			log.Warn("failed to create task from note", "user", userID, "title", p.Title, "err", err)
			continue
		}
		created = append(created, task)
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) mergedCategories(userID string) ([]string, error) {
	custom, err := s.users.CustomCategories(userID)
	if err != nil {
		return nil, err
	}
	generated, _, err := s.users.GeneratedCategories(userID)
	if err != nil {
		return nil, err
	}
	return category.Merge(custom, generated, category.Builtin), nil
}
