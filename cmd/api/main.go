package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/release-queue/internal/api/http"
	"github.com/spec-kit/release-queue/internal/api/http/handlers"
	"github.com/spec-kit/release-queue/internal/auth"
	"github.com/spec-kit/release-queue/internal/config"
	"github.com/spec-kit/release-queue/internal/events"
	"github.com/spec-kit/release-queue/internal/observability"
	"github.com/spec-kit/release-queue/internal/persistence"
	"github.com/spec-kit/release-queue/internal/repository"
	"github.com/spec-kit/release-queue/internal/repository/memory"
	"github.com/spec-kit/release-queue/internal/service"
	"github.com/spec-kit/release-queue/internal/worker"
)

type repositories struct {
	users   repository.UserRepository
	queues  repository.QueueRepository
	ledger  repository.LedgerRepository
	freezes repository.FreezeRepository
	ids     repository.IdentifierRepository
}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(pg.PoolHandle(), logger)
	dependencies := map[string]handlers.Pinger{}
	if pg.PoolHandle() != nil {
		dependencies["postgres"] = pg
	}
	if redis.Handle() != nil {
		dependencies["redis"] = redis
	}

	hasher, err := auth.NewCredentialHasher(cfg.Policy.Salts)
	if err != nil {
		logger.Fatal("invalid credential salts", zap.Error(err))
	}
	ids := auth.NewIDGenerator(repos.ids, cfg.Auth.MaxIDAttempts)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, redis.Handle(), logger, cfg.Notification)
	stopNotifications := worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:       repos.users,
		Hasher:         hasher,
		IDs:            ids,
		AllowedDomains: cfg.Policy.AllowedEmailDomains,
		Logger:         logger,
	})
	queueService := service.NewQueueService(service.QueueDependencies{
		QueueRepo:  repos.queues,
		Auth:       authService,
		IDs:        ids,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	ledgerService := service.NewLedgerService(repos.ledger, nil)
	freezeService := service.NewFreezeService(service.FreezeDependencies{
		FreezeRepo: repos.freezes,
		Auth:       authService,
		IDs:        ids,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	sweeper := worker.NewFreezeSweeper(freezeService, cfg.Worker.FreezeSweepInterval(), logger)
	sweeper.Start(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Users:       handlers.NewUsersHandler(authService),
		Queues:      handlers.NewQueueHandler(queueService),
		Ledger:      handlers.NewLedgerHandler(ledgerService),
		Freezes:     handlers.NewFreezeHandler(freezeService),
		RateLimiter: httptransport.NewRateLimiter(redis.Handle(), cfg.RateLimit.PerMinute, logger),
		Metrics:     metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	sweeper.Stop()
	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	// after the server so events from draining requests are still delivered
	stopNotifications()
}

// buildRepositories returns Postgres repositories, or one shared in-memory
// store when no pool is configured.
func buildRepositories(pool *pgxpool.Pool, logger *zap.Logger) repositories {
	if pool == nil {
		logger.Warn("running on in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return repositories{
			users:   store,
			queues:  store,
			ledger:  store.Ledger(),
			freezes: store.Freezes(),
			ids:     store,
		}
	}
	return repositories{
		users:   repository.NewUserRepository(pool),
		queues:  repository.NewQueueRepository(pool),
		ledger:  repository.NewLedgerRepository(pool),
		freezes: repository.NewFreezeRepository(pool),
		ids:     repository.NewIdentifierRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
