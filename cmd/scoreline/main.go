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

	"github.com/scoreline/scoreline/internal/app"
	"github.com/scoreline/scoreline/internal/audit"
	audithttp "github.com/scoreline/scoreline/internal/audit/http"
	"github.com/scoreline/scoreline/internal/auth"
	"github.com/scoreline/scoreline/internal/evaluations"
	"github.com/scoreline/scoreline/internal/gdpr"
	"github.com/scoreline/scoreline/internal/observability"
	"github.com/scoreline/scoreline/internal/orgs"
	"github.com/scoreline/scoreline/internal/platform/cache"
	"github.com/scoreline/scoreline/internal/platform/db"
	"github.com/scoreline/scoreline/internal/ratelimit"
	"github.com/scoreline/scoreline/internal/rbac"
	"github.com/scoreline/scoreline/internal/salespeople"
	"github.com/scoreline/scoreline/internal/scorecards"
	"github.com/scoreline/scoreline/internal/users"
	"github.com/scoreline/scoreline/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := observability.NewMetrics()

	auditRepo := audit.NewRepository(pool)
	recorder := audit.NewRecorder(auditRepo, logger)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService, recorder)

	rbacStore := rbac.NewPgStore(pool)
	evaluator := rbac.NewEvaluator(rbacStore, rbacStore, logger)
	guard := rbac.Middleware{Evaluator: evaluator, Logger: logger, Metrics: metrics}
	permissionsHandler := rbac.NewHandler(logger, guard)

	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	denylist := auth.NewDenylist(redisClient)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, issuer, denylist, recorder, logger)
	authHandler := auth.NewHandler(logger, authService)
	authenticator := auth.Authenticator{Issuer: issuer, Denylist: denylist, Logger: logger}

	limiter := ratelimit.NewLimiter(ratelimit.NewRedisStore(redisClient), ratelimit.DefaultRules(), ratelimit.DefaultRule, logger)
	go limiter.RunSweeper(ctx, 5*time.Minute)
	rateLimiter := ratelimit.Middleware{Limiter: limiter, Logger: logger, Metrics: metrics}

	usersService := users.NewService(users.NewRepository(pool), recorder, logger)
	usersHandler := users.NewHandler(logger, usersService)

	orgsService := orgs.NewService(orgs.NewRepository(pool), recorder, logger)
	orgsHandler := orgs.NewHandler(logger, orgsService)

	salespeopleService := salespeople.NewService(salespeople.NewRepository(pool), recorder, logger)
	salespeopleHandler := salespeople.NewHandler(logger, salespeopleService)

	scorecardsService := scorecards.NewService(scorecards.NewRepository(pool), recorder, logger)
	scorecardsHandler := scorecards.NewHandler(logger, scorecardsService)

	analyticsCache := evaluations.NewCache(redisClient, 10*time.Minute)
	evaluationsService := evaluations.NewService(evaluations.NewRepository(pool), recorder, logger).WithCache(analyticsCache)
	evaluationsHandler := evaluations.NewHandler(logger, evaluationsService)

	gdprService := gdpr.NewService(gdpr.NewRepository(pool), recorder, logger)
	gdprHandler := gdpr.NewHandler(logger, gdprService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pool:               pool,
		Authenticator:      authenticator,
		RateLimiter:        rateLimiter,
		RBACMiddleware:     guard,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		OrgsHandler:        orgsHandler,
		SalespeopleHandler: salespeopleHandler,
		ScorecardsHandler:  scorecardsHandler,
		EvaluationsHandler: evaluationsHandler,
		AuditHandler:       auditHandler,
		GDPRHandler:        gdprHandler,
		PermissionsHandler: permissionsHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
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
