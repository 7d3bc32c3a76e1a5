package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/daypilot/pkg/ai"
	"github.com/harrisonrobin/daypilot/pkg/auth"
	"github.com/harrisonrobin/daypilot/pkg/rollover"
	"github.com/harrisonrobin/daypilot/pkg/state"
	"github.com/harrisonrobin/daypilot/pkg/store"
	daysync "github.com/harrisonrobin/daypilot/pkg/sync"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

// Server is the HTTP API surface. All routes live under /api and require a
// bearer token identifying the user.
type Server struct {
	store   store.Store
	users   *state.Users
	clock   *timezone.Clock
	engine  *daysync.Engine
	sweeper *rollover.Sweeper
	ai      *ai.Service
	tokens  *auth.Tokens
	router  *gin.Engine
}

func NewServer(st store.Store, users *state.Users, clock *timezone.Clock,
	engine *daysync.Engine, sweeper *rollover.Sweeper, aiSvc *ai.Service,
	tokens *auth.Tokens) *Server {

	router := gin.Default()

	s := &Server{
		store:   st,
		users:   users,
		clock:   clock,
		engine:  engine,
		sweeper: sweeper,
		ai:      aiSvc,
		tokens:  tokens,
		router:  router,
	}

	api := router.Group("/api", s.requireUser)
	{
		api.GET("/dashboard", s.handleDashboard)

		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PATCH("/tasks/:id", s.handlePatchTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.POST("/notes", s.handleParseNote)

		api.GET("/goals", s.handleListGoals)
		api.POST("/goals", s.handleCreateGoal)
		api.PUT("/goals/:id", s.handleUpdateGoal)
		api.DELETE("/goals/:id", s.handleDeleteGoal)

		api.GET("/days", s.handleListDays)
		api.GET("/days/:date", s.handleGetDay)
		api.PUT("/days/:date", s.handleSaveDay)

		api.GET("/weeks", s.handleListWeeks)
		api.GET("/weeks/:weekStart", s.handleGetWeek)
		api.PUT("/weeks/:weekStart", s.handleSaveWeek)

		api.GET("/analyses", s.handleListAnalyses)
		api.POST("/analyses", s.handleCreateAnalysis)

		api.GET("/categories", s.handleListCategories)
		api.POST("/categories", s.handleAddCategory)
		api.POST("/categories/generate", s.handleGenerateCategories)

		api.GET("/accounts", s.handleListAccounts)
		api.DELETE("/accounts/:email", s.handleDisconnectAccount)
		api.POST("/sync", s.handleSync)

		api.POST("/reset", s.handleReset)
	}

	return s
}

// Run starts the server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// requireUser validates the Authorization bearer token and stashes the user
// ID in the request context.
func (s *Server) requireUser(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	userID, err := s.tokens.Verify(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.Set("userID", userID)
	c.Next()
}

func (s *Server) userID(c *gin.Context) string {
	return c.GetString("userID")
}
