package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/release-queue/internal/api/http/handlers"
	"github.com/spec-kit/release-queue/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Users       *handlers.UsersHandler
	Queues      *handlers.QueueHandler
	Ledger      *handlers.LedgerHandler
	Freezes     *handlers.FreezeHandler
	RateLimiter *RateLimiter
	Metrics     *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get("/", cfg.Freezes.Status)
	app.Get("/getQueueNames", cfg.Queues.QueueNames)
	app.Get("/checkQueue", cfg.Queues.CheckQueue)
	app.Get("/checkMasterQueue", cfg.Ledger.CheckMasterQueue)
	app.Get("/checkFreezes", cfg.Freezes.CheckFreezes)

	throttle := cfg.RateLimiter.Handle
	app.Post("/register", throttle, cfg.Users.Register)
	app.Post("/enterQueue", throttle, cfg.Queues.EnterQueue)
	app.Delete("/exitQueue", throttle, cfg.Queues.ExitQueue)
	app.Post("/startCodeFreeze", throttle, cfg.Freezes.StartCodeFreeze)
	app.Delete("/endActiveCodeFreeze", throttle, cfg.Freezes.EndActiveCodeFreeze)
	app.Delete("/endCodeFreeze", throttle, cfg.Freezes.EndCodeFreeze)
}
