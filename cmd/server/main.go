package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/handlers"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/router"
	"github.com/yukikurage/team-task-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	gin.SetMode(cfg.Server.GinMode)

	db, err := database.Connect(cfg.Database, cfg.Server.GinMode == gin.DebugMode)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("Failed to run migrations", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	store := repository.NewStore(db)
	emails := services.NewEmailValidator(cfg.Auth.AllowedEmailDomains)
	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	})

	authService := services.NewAuthService(store.Users, emails, zl.Named("auth"))
	teamService := services.NewTeamService(store, emails, zl.Named("teams"), m)
	taskService := services.NewTaskService(store, services.TaskPolicy{
		RequireMembershipOnCreate: cfg.Tasks.RequireMembershipOnCreate,
	}, zl.Named("tasks"), m)

	if created, err := authService.EnsureSuperAdmin(context.Background(), cfg.Auth.Bootstrap); err != nil {
		zl.Fatal("Failed to seed super admin", zap.Error(err))
	} else if created {
		zl.Info("Seeded bootstrap super admin", zap.String("email", cfg.Auth.Bootstrap.Email))
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		zl.Fatal("Failed to create session store", zap.Error(err))
	}

	engine := router.New(router.Deps{
		AuthHandler:  handlers.NewAuthHandler(authService, tokens),
		TeamHandler:  handlers.NewTeamHandler(teamService),
		TaskHandler:  handlers.NewTaskHandler(taskService),
		Tokens:       tokens,
		SessionStore: sessionStore,
		SessionName:  cfg.Session.CookieName,
		Logger:       zl.Named("http"),
		Metrics:      m,
		Gatherer:     registry,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zl.Info("Server starting", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
}

// newSessionStore returns the Redis session store, or a cookie store when
// Redis is disabled.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	isProduction := cfg.Server.GinMode == gin.ReleaseMode
	options := sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}

	if !cfg.Redis.Enabled {
		store := cookie.NewStore([]byte(cfg.Session.Secret))
		store.Options(options)
		return store, nil
	}

	store, err := redisStore.NewStore(
		cfg.Redis.PoolSize,
		"tcp",
		cfg.Redis.Address(),
		cfg.Redis.Password,
		[]byte(cfg.Session.Secret),
	)
	if err != nil {
		return nil, err
	}
	store.Options(options)
	return store, nil
}
