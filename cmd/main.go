package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hellofresh/health-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/yakoovad/gitlab-mr-batch/internal/api"
	"github.com/yakoovad/gitlab-mr-batch/internal/auth"
	"github.com/yakoovad/gitlab-mr-batch/internal/config"
	"github.com/yakoovad/gitlab-mr-batch/internal/db"
	"github.com/yakoovad/gitlab-mr-batch/internal/gitlab"
	"github.com/yakoovad/gitlab-mr-batch/internal/repository"
	"github.com/yakoovad/gitlab-mr-batch/internal/service"
	"github.com/yakoovad/gitlab-mr-batch/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application")

	auth.TokenSecretKey = cfg.Auth.Secret

	ctx := context.Background()

	transactor := db.NewNopTransactor()
	persistentRepo := repository.NewMemoryKeyValueRepository()
	sessionRepo := repository.NewMemoryKeyValueRepository()

	gitlabClient := gitlab.NewClient(cfg.GitLab.APIURL, &http.Client{Timeout: cfg.GitLab.Timeout})

	checks := []health.Config{api.PingCheck("gitlab", gitlabClient.Ping, true)}

	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		pool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err = pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}

		logger.Info("database connection established")

		if err = db.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}

		transactor = db.NewPgxTransactor(pool)
		persistentRepo = repository.NewPgxKeyValueRepository(pool)
		checks = append(checks, api.PingCheck("postgres", pool.Ping, false))
	} else {
		logger.Warn("no database configured, remembered logins will not survive a restart")
	}

	projectCache := service.NewProjectCache(persistentRepo, cfg.Cache.ProjectTTL)

	session := service.NewSessionService(transactor).
		WithPersistentRepo(persistentRepo).
		WithSessionRepo(sessionRepo).
		WithProjectCache(projectCache).
		WithGitLab(gitlabClient).
		WithTTL(cfg.Auth.SessionTTL, cfg.Auth.PersistentTTL)
	projects := service.NewProjectService(gitlabClient).WithProjectCache(projectCache)
	check := service.NewCheckService(gitlabClient).WithConcurrency(cfg.Batch.CheckConcurrency)
	batch := service.NewBatchService(gitlabClient).WithChecker(check)

	healthChecker, err := api.NewHealthChecker(checks...)
	if err != nil {
		logger.Fatal("failed to create health checker", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true

	handler := api.NewHandler(logger).
		WithHealthChecker(healthChecker).
		WithSessionService(session).
		WithProjectService(projects).
		WithCheckService(check).
		WithBatchService(batch)

	handler.RegisterRoutes(e)

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTP.Addr))
		if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err = e.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", zap.Error(err))
	}

	logger.Info("app shutdown completed")
}
