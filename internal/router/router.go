package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/handlers"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"go.uber.org/zap"
)

// Deps holds everything the router wires together.
type Deps struct {
	AuthHandler *handlers.AuthHandler
	TeamHandler *handlers.TeamHandler
	TaskHandler *handlers.TaskHandler

	Tokens       *auth.TokenManager
	SessionStore sessions.Store
	SessionName  string

	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// New builds the HTTP engine with every route registered.
func New(d Deps) *gin.Engine {
	r := gin.New()

	log := logger.OrNop(d.Logger)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(d.Metrics))

	sessionName := d.SessionName
	if sessionName == "" {
		sessionName = constants.SessionCookieName
	}
	r.Use(sessions.Sessions(sessionName, d.SessionStore))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Team Task API is running",
		})
	})

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	requireAuth := middleware.RequireAuth(d.Tokens)
	pathID := middleware.RequireUUIDParam("id")

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", d.AuthHandler.Login)
			authGroup.POST("/logout", d.AuthHandler.Logout)
			authGroup.GET("/me", requireAuth, d.AuthHandler.GetCurrentUser)
		}

		api.POST("/users", requireAuth, middleware.RequireGlobalRole(models.RoleSuperAdmin), d.AuthHandler.RegisterUser)

		teams := api.Group("/teams")
		teams.Use(requireAuth)
		{
			teams.POST("", d.TeamHandler.CreateTeam)
			teams.GET("", d.TeamHandler.ListTeams)
			teams.GET("/:id/members", pathID, d.TeamHandler.ListMembers)
			teams.POST("/:id/users", pathID, d.TeamHandler.InviteUser)
			teams.POST("/:id/tasks", pathID, d.TaskHandler.CreateTask)
			teams.GET("/:id/tasks", pathID, d.TaskHandler.ListTasks)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/:id", pathID, d.TaskHandler.GetTask)
			tasks.PUT("/:id", pathID, d.TaskHandler.UpdateTask)
			tasks.PATCH("/:id/status", pathID, d.TaskHandler.UpdateTaskStatus)
			tasks.DELETE("/:id", pathID, d.TaskHandler.DeleteTask)
		}
	}

	return r
}
