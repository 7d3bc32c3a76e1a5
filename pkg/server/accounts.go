package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/daypilot/pkg/ai"
)

func (s *Server) handleListCategories(c *gin.Context) {
	cats, err := s.mergedCategories(s.userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (s *Server) handleAddCategory(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := s.users.AddCustomCategory(s.userID(c), req.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cats, err := s.mergedCategories(s.userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"categories": cats})
}

// handleGenerateCategories asks the provider for category suggestions based
// on the user's recent activity, at most once per canonical day. Repeat
// calls on the same day serve the cached set.
func (s *Server) handleGenerateCategories(c *gin.Context) {
	userID := s.userID(c)
	today := s.clock.Today()

	cached, date, err := s.users.GeneratedCategories(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if date == today && len(cached) > 0 {
		c.JSON(http.StatusOK, gin.H{"categories": cached, "cached": true})
		return
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var eventTitles, taskTitles []string
	for _, t := range tasks {
		if t.FromCalendar {
			eventTitles = append(eventTitles, t.Title)
		} else {
			taskTitles = append(taskTitles, t.Title)
		}
	}

	goals, err := s.store.ListGoals(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cats, err := s.ai.GenerateCategories(c.Request.Context(), eventTitles, taskTitles, goals)
	if errors.Is(err, ai.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generative provider is not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.users.SaveGeneratedCategories(userID, cats, today); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats, "cached": false})
}

// accountView is the wire shape for a connected account. The stored
// credential never leaves the server.
type accountView struct {
	Email       string    `json:"email"`
	ConnectedAt time.Time `json:"connectedAt"`
}

func (s *Server) handleListAccounts(c *gin.Context) {
	accounts, err := s.users.Accounts(s.userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{Email: a.Email, ConnectedAt: a.ConnectedAt})
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleDisconnectAccount(c *gin.Context) {
	if err := s.users.RemoveAccount(s.userID(c), c.Param("email")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleSync imports today's events from every connected account. Per-account
// and per-event failures are counted in the result, not surfaced as errors.
func (s *Server) handleSync(c *gin.Context) {
	userID := s.userID(c)
	accounts, err := s.users.Accounts(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := s.engine.SyncAllAccounts(c.Request.Context(), userID, accounts)
	c.JSON(http.StatusOK, result)
}

// handleReset wipes every record and every piece of key/value state the user
// owns.
func (s *Server) handleReset(c *gin.Context) {
	userID := s.userID(c)
	if err := s.store.ClearUserData(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.users.ClearUser(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
