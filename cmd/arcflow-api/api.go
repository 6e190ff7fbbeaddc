// Package main provides the Arcflow API server implementation.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/arcflow/arcflow/pkg/engine"
	"github.com/arcflow/arcflow/pkg/eventbus"
	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/arcflow/arcflow/pkg/queue"
	"github.com/arcflow/arcflow/pkg/registry"
	"github.com/arcflow/arcflow/pkg/scheduler"
	"github.com/arcflow/arcflow/pkg/services"
	"github.com/arcflow/arcflow/pkg/web"
)

type APIConfig struct {
	Port           int
	RedisURL       string
	WorkerLimit    int
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	config      APIConfig
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	config APIConfig,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		config:      config,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Run wires the engine, services and HTTP surface together and blocks until
// the process receives an interrupt.
func (a *API) Run(ctx context.Context) error {
	eng := engine.NewEngine(a.logger, a.persistence, a.registry, a.eventBus, engine.Config{
		WorkerLimit:    a.config.WorkerLimit,
		ConfirmTimeout: a.config.ConfirmTimeout,
	})

	runService := services.NewRun(a.logger, a.persistence, eng, a.eventBus)

	app := a.app(eng, runService)

	poller := scheduler.NewPoller(a.logger, a.persistence, runService, a.config.PollInterval)
	poller.Start(ctx)

	var receiver *queue.Receiver

	if a.config.RedisURL != "" {
		var err error

		receiver, err = queue.NewReceiver(ctx, a.logger, a.config.RedisURL, queue.DefaultQueue, runService)
		if err != nil {
			return err
		}

		receiver.Start(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":" + strconv.Itoa(a.config.Port))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down Arcflow API")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown failed", "error", err)
	}

	poller.Stop()

	if receiver != nil {
		if err := receiver.Stop(shutdownCtx); err != nil {
			a.logger.Error("Queue receiver shutdown failed", "error", err)
		}
	}

	return eng.Shutdown(shutdownCtx)
}

func (a *API) app(eng *engine.Engine, runService *services.Run) *fiber.App {
	workflowService := services.NewWorkflow(a.persistence, a.registry)
	scheduleService := services.NewSchedule(a.persistence)

	handlers := web.NewAPIHandlers(workflowService, runService, scheduleService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Arcflow API")
	})

	app.Get("/health", handlers.HealthCheck)
	app.Get("/nodes", handlers.GetNodeTypes)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/mutations", handlers.MutateWorkflow)
	w.Post("/:id/validate", handlers.ValidateWorkflow)
	w.Post("/:id/publish", handlers.PublishWorkflow)
	w.Get("/:id/runs", handlers.GetWorkflowRuns)

	r := app.Group("/runs")
	r.Post("/", handlers.CreateRun)
	r.Get("/:id", handlers.GetRun)
	r.Post("/:id/start", handlers.StartRun)
	r.Post("/:id/cancel", handlers.CancelRun)
	r.Post("/:id/confirm", handlers.ConfirmRun)
	r.Get("/:id/executions", handlers.GetRunNodeExecutions)
	r.Get("/:id/confirmations", handlers.GetRunConfirmations)
	r.Get("/:id/events", handlers.GetRunEvents)
	r.Get("/:id/stream", handlers.StreamRun)

	s := app.Group("/schedules")
	s.Get("/", handlers.GetSchedules)
	s.Post("/", handlers.CreateSchedule)
	s.Get("/:id", handlers.GetSchedule)
	s.Patch("/:id", handlers.UpdateSchedule)
	s.Delete("/:id", handlers.DeleteSchedule)

	return app
}
