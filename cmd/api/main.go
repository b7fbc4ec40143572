package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-gateway/internal/api/http"
	"github.com/spec-kit/auth-gateway/internal/api/http/handlers"
	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/observability"
	"github.com/spec-kit/auth-gateway/internal/persistence"
	"github.com/spec-kit/auth-gateway/internal/repository"
	"github.com/spec-kit/auth-gateway/internal/service"
	"github.com/spec-kit/auth-gateway/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.Auth.UsingDefaultSecret() {
		logger.Warn("AUTH_JWT_SECRET not set; tokens are signed with the development secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var credentials repository.CredentialRepository
	if pg.Configured() {
		credentials = repository.NewCredentialRepository(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory credential store; accounts are lost on restart")
		credentials = repository.NewMemoryCredentialRepository(cfg.Auth.BcryptCost)
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Credentials: credentials,
		Events:      dispatcher,
		Logger:      logger,
	})
	identityMiddleware := auth.NewIdentityMiddleware(authService.TokenManager(), logger)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	dependencies := map[string]handlers.Pinger{"credentials": credentials, "redis": nil}
	if redis.Configured() {
		dependencies["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Metrics:       handlers.NewMetricsHandler(metrics),
		Auth:          handlers.NewAuthHandler(authService),
		Query:         handlers.NewQueryHandler(cfg.Query.UpstreamURL, logger),
		Identity:      identityMiddleware,
		AuthRateLimit: httptransport.RateLimit(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
