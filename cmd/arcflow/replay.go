package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	cli "github.com/urfave/cli/v3"

	"github.com/arcflow/arcflow/pkg/cmd"
	"github.com/arcflow/arcflow/pkg/log"
	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

const replayPageSize = 256

// ReplayCommand pages a run's event log from the store and prints one JSON
// event per line, in sequence order. The payload bytes are exactly what the
// recorder appended.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Replay a run's event log from the beginning or a cursor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "run",
				Usage:    "Run ID to replay",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Event channel to replay (all, run, node)",
				Value: "all",
			},
			&cli.StringFlag{
				Name:  "cursor",
				Usage: "Resume replay after this cursor",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("cli")
			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			runID := command.String("run")
			cursor := command.String("cursor")

			for {
				page, err := store.Events().List(ctx, runID, persistence.EventQuery{
					Channel: models.EventChannel(command.String("channel")),
					Cursor:  cursor,
					Limit:   replayPageSize,
				})
				if err != nil {
					return err
				}

				for _, event := range page.Events {
					line, err := json.Marshal(event)
					if err != nil {
						return err
					}

					fmt.Println(string(line))
				}

				if !page.HasMore {
					return nil
				}

				cursor = page.NextCursor
			}
		},
	}
}
