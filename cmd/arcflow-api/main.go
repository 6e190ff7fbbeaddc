package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/arcflow/arcflow/pkg/cmd"
	"github.com/arcflow/arcflow/pkg/log"
	"github.com/arcflow/arcflow/pkg/otelhelper"
)

const (
	defaultPort            = 9091
	defaultConfirmTimeout  = 5 * time.Minute
	defaultPollInterval    = 15 * time.Second
	defaultWorkerLimit     = 8
	defaultShutdownTimeout = 30 * time.Second
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "arcflow-api",
		Usage:                 "Create, publish and execute workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a filesystem root)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the run request queue; empty disables the queue receiver",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "worker-limit",
				Usage:   "Maximum concurrent node executions per run",
				Value:   defaultWorkerLimit,
				Sources: cli.EnvVars("WORKER_LIMIT"),
			},
			&cli.DurationFlag{
				Name:    "confirm-timeout",
				Usage:   "How long a side-effect confirmation waits before being denied",
				Value:   defaultConfirmTimeout,
				Sources: cli.EnvVars("CONFIRM_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often the schedule poller checks for due schedules",
				Value:   defaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			&cli.StringFlag{
				Name:  "plugins-path",
				Usage: "Path to the directory containing node plugins",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export run and node spans over OTLP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Arcflow API")

			if command.Bool("tracing") {
				if _, err := otelhelper.NewTracer(ctx, "arcflow-api"); err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)
				}
			}

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))
			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger, "api")

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(logger, store, registry, eventBus, APIConfig{
				Port:           int(command.Int("port")),
				RedisURL:       command.String("redis-url"),
				WorkerLimit:    int(command.Int("worker-limit")),
				ConfirmTimeout: command.Duration("confirm-timeout"),
				PollInterval:   command.Duration("poll-interval"),
			})

			return api.Run(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
