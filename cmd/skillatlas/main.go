package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/skillatlas/skillatlas/internal/app"
	"github.com/skillatlas/skillatlas/internal/assets"
	"github.com/skillatlas/skillatlas/internal/audit"
	audithttp "github.com/skillatlas/skillatlas/internal/audit/http"
	"github.com/skillatlas/skillatlas/internal/auth"
	"github.com/skillatlas/skillatlas/internal/observability"
	"github.com/skillatlas/skillatlas/internal/platform/cache"
	"github.com/skillatlas/skillatlas/internal/platform/db"
	"github.com/skillatlas/skillatlas/internal/portfolio"
	"github.com/skillatlas/skillatlas/internal/rbac"
	"github.com/skillatlas/skillatlas/internal/sfia"
	"github.com/skillatlas/skillatlas/internal/shared"
	"github.com/skillatlas/skillatlas/internal/tpqi"
	"github.com/skillatlas/skillatlas/internal/users"
	"github.com/skillatlas/skillatlas/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "skillatlas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()
	auditLogger := audit.NewLogger()

	policyStore := rbac.NewRepository(dbpool, auditLogger)
	resolver := rbac.NewResolver(policyStore, redisClient, cfg.AuthzCacheTTL, logger)
	engine := rbac.NewEngine(resolver, policyStore, logger, metrics)
	rbacMiddleware := rbac.Middleware{Engine: engine, Logger: logger}
	rbacService := rbac.NewService(policyStore, resolver, logger)
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	assetsRepo := assets.NewRepository(dbpool)
	assetsService := assets.NewService(assetsRepo)
	assetsHandler := assets.NewHandler(logger, assetsService, rbacMiddleware)

	auditRepo := audit.NewSQLRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService, rbacMiddleware)

	sfiaRepo := sfia.NewRepository(dbpool, auditLogger)
	sfiaService := sfia.NewService(sfiaRepo)
	sfiaHandler := sfia.NewHandler(logger, sfiaService, rbacMiddleware)

	tpqiRepo := tpqi.NewRepository(dbpool, auditLogger)
	tpqiService := tpqi.NewService(tpqiRepo)
	tpqiHandler := tpqi.NewHandler(logger, tpqiService, rbacMiddleware)

	portfolioRepo := portfolio.NewRepository(dbpool, auditLogger)
	portfolioService := portfolio.NewService(portfolioRepo)
	portfolioHandler := portfolio.NewHandler(logger, portfolioService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Metrics:          metrics,
		AuthHandler:      authHandler,
		RBACHandler:      rbacHandler,
		UsersHandler:     usersHandler,
		AssetsHandler:    assetsHandler,
		AuditHandler:     auditHandler,
		SfiaHandler:      sfiaHandler,
		TpqiHandler:      tpqiHandler,
		PortfolioHandler: portfolioHandler,
		JobsHandler:      jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
